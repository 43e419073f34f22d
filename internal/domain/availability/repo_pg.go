package availability

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voidsystems/appointment-service/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// ErrNotFound is returned when no availability matches the lookup.
var ErrNotFound = errors.New("availability not found")

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const availCols = `id, provider_id, recurring, day_of_week, specific_date, start_time, end_time, created_at, updated_at`

const microsPerMinute = 60_000_000

func encodeTimeOfDay(t TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t) * microsPerMinute, Valid: true}
}

func decodeTimeOfDay(pt pgtype.Time) TimeOfDay {
	return TimeOfDay(pt.Microseconds / microsPerMinute)
}

func encodeWeekday(w *time.Weekday) *int16 {
	if w == nil {
		return nil
	}
	d := int16(*w)
	return &d
}

func scanAvailability(row pgx.Row) (*Availability, error) {
	var a Availability
	var dow *int16
	var start, end pgtype.Time
	err := row.Scan(&a.ID, &a.ProviderID, &a.Recurring, &dow, &a.SpecificDate,
		&start, &end, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if dow != nil {
		wd := time.Weekday(*dow)
		a.DayOfWeek = &wd
	}
	a.StartTime = decodeTimeOfDay(start)
	a.EndTime = decodeTimeOfDay(end)
	return &a, nil
}

func (r *repoPG) Create(ctx context.Context, a *Availability) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO availabilities (id, provider_id, recurring, day_of_week, specific_date, start_time, end_time)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		a.ID, a.ProviderID, a.Recurring, encodeWeekday(a.DayOfWeek), a.SpecificDate,
		encodeTimeOfDay(a.StartTime), encodeTimeOfDay(a.EndTime))
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Availability, error) {
	return scanAvailability(r.conn(ctx).QueryRow(ctx, `SELECT `+availCols+` FROM availabilities WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, a *Availability) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE availabilities SET recurring=$2, day_of_week=$3, specific_date=$4, start_time=$5, end_time=$6, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.Recurring, encodeWeekday(a.DayOfWeek), a.SpecificDate,
		encodeTimeOfDay(a.StartTime), encodeTimeOfDay(a.EndTime))
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM availabilities WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListByProvider(ctx context.Context, providerID uuid.UUID, recurring *bool, limit, offset int) ([]*Availability, int, error) {
	where := ` WHERE provider_id = $1`
	args := []interface{}{providerID}
	if recurring != nil {
		where += ` AND recurring = $2`
		args = append(args, *recurring)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM availabilities`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + availCols + ` FROM availabilities` + where + ` ORDER BY recurring DESC, day_of_week, specific_date, start_time`
	if recurring != nil {
		query += ` LIMIT $3 OFFSET $4`
	} else {
		query += ` LIMIT $2 OFFSET $3`
	}
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Availability
	for rows.Next() {
		a, err := scanAvailability(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repoPG) ListForDate(ctx context.Context, providerID uuid.UUID, date time.Time) ([]*Availability, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+availCols+` FROM availabilities
		WHERE provider_id = $1
		  AND ((recurring AND day_of_week = $2) OR (NOT recurring AND specific_date = $3))
		ORDER BY start_time`,
		providerID, int16(date.Weekday()), date.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Availability
	for rows.Next() {
		a, err := scanAvailability(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
