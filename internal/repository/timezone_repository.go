package repository

import (
	"context"
	"errors"

	models "github.com/jetbridge/checkin/internal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DBConn interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
}

// TimezoneRepository resolves airport codes to IANA zone names from the
// airport_timezones reference table.
type TimezoneRepository struct {
	db DBConn
}

func NewTimezoneRepository(db DBConn) *TimezoneRepository {
	return &TimezoneRepository{db: db}
}

func (r *TimezoneRepository) GetAirportTimezone(ctx context.Context, airportCode string) (string, error) {
	query := `
        SELECT tz_name FROM airport_timezones
        WHERE airport_code = $1
    `
	var tzName string
	err := r.db.QueryRow(ctx, query, airportCode).Scan(&tzName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", models.ErrUnknownAirport
		}
		return "", err
	}
	return tzName, nil
}
