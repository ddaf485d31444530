// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

// Package database provides the Postgres persistence layer.
//
// Open establishes a pooled connection, applies pending migrations, and
// hands out one repository per aggregate: users, movies, ratings, and
// recommendation history. Repositories follow two conventions:
//
//   - Single-row lookups return (nil, nil) when the row is absent.
//     Callers decide whether absence is an error for their operation.
//   - Every query is observed with an operation/table latency metric.
//
// Writes are upserts keyed on the primary key, so the service layer can
// save without read-modify-write races at the SQL level. Recommendation
// batches are replaced wholesale inside a transaction using COPY.
package database
