// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package database

import (
	"database/sql"
	"io"
	"strings"

	"github.com/Isaque-Sangley/recolab-v2/internal/logging"
)

// closeQuietly closes a resource in an error path where the Close
// error is not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}

// closeRows closes a result set and logs an error if one surfaces.
func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close result set")
	}
}

// rollbackQuietly rolls back a transaction in an error path. A rollback
// after commit returns sql.ErrTxDone, which is not actionable.
func rollbackQuietly(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
		logging.Warn().Err(err).Msg("Failed to roll back transaction")
	}
}

// isConnectionError distinguishes connection loss from query errors so
// the health endpoint can report a degraded database.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "driver: bad connection") ||
		strings.Contains(msg, "sql: database is closed")
}
