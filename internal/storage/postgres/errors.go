/*
Copyright 2026 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package postgres

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/jordigilh/tunneledge/internal/errors"
)

// pgUniqueViolation is the Postgres error code for a unique constraint
// conflict (23505).
const pgUniqueViolation = "23505"

// mapError translates a raw database/sql or pgx error into the service's
// structured AppError taxonomy (§7), so repositories never leak a bare
// driver error across their boundary.
func mapError(err error, action string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.Wrap(err, apperrors.ErrorTypeNotFound, "record not found")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return apperrors.Wrap(err, apperrors.ErrorTypeConflict, "record already exists")
	}

	return apperrors.Wrap(err, apperrors.ErrorTypeDatabase, "failed to "+action)
}
