package database

import (
	"errors"

	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// MapPostgresError translates driver errors into model sentinels
func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23502", // not_null_violation
			"23514", // check_violation
			"22001": // string_data_right_truncation
			return models.ErrBadRequest
		}
	}

	return err
}
