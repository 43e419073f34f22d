package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voidsystems/appointment-service/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

var (
	// ErrNotFound is returned when no appointment matches the lookup.
	ErrNotFound = errors.New("appointment not found")
	// ErrSlotTaken is returned when the database exclusion constraint
	// rejects a write because the provider's slot is already booked.
	ErrSlotTaken = errors.New("slot already booked")
)

// exclusionViolation is the SQLSTATE raised by EXCLUDE constraints.
const exclusionViolation = "23P01"

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const apptCols = `id, client_id, provider_id, service_id, start_time, end_time, status, notes, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.ClientID, &a.ProviderID, &a.ServiceID, &a.StartTime, &a.EndTime,
		&a.Status, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &a, err
}

func slotTaken(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == exclusionViolation {
		return ErrSlotTaken
	}
	return err
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointments (id, client_id, provider_id, service_id, start_time, end_time, status, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		a.ID, a.ClientID, a.ProviderID, a.ServiceID, a.StartTime, a.EndTime, a.Status, a.Notes)
	return slotTaken(err)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointments WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET service_id=$2, start_time=$3, end_time=$4, status=$5, notes=$6, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.ServiceID, a.StartTime, a.EndTime, a.Status, a.Notes)
	return slotTaken(err)
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	add := func(clause string, arg interface{}) {
		where += fmt.Sprintf(clause, idx)
		args = append(args, arg)
		idx++
	}

	if f.ClientID != nil {
		add(` AND client_id = $%d`, *f.ClientID)
	}
	if f.ProviderID != nil {
		add(` AND provider_id = $%d`, *f.ProviderID)
	}
	if f.ServiceID != nil {
		add(` AND service_id = $%d`, *f.ServiceID)
	}
	if f.Status != nil {
		add(` AND status = $%d`, *f.Status)
	}
	if f.Date != nil {
		day := time.Date(f.Date.Year(), f.Date.Month(), f.Date.Day(), 0, 0, 0, 0, f.Date.Location())
		add(` AND start_time >= $%d`, day)
		add(` AND start_time < $%d`, day.AddDate(0, 0, 1))
	}
	if f.From != nil {
		add(` AND start_time >= $%d`, *f.From)
	}
	if f.To != nil {
		add(` AND start_time < $%d`, *f.To)
	}
	if f.Upcoming {
		where += ` AND start_time >= NOW()`
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointments`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + apptCols + ` FROM appointments` + where +
		fmt.Sprintf(` ORDER BY start_time LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
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

func (r *repoPG) ExistsOverlapping(ctx context.Context, providerID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (bool, error) {
	var exclude *uuid.UUID
	if excludeID != uuid.Nil {
		exclude = &excludeID
	}
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM appointments
			WHERE provider_id = $1
			  AND status <> 'CANCELLED'
			  AND start_time < $3 AND end_time > $2
			  AND ($4::uuid IS NULL OR id <> $4)
		)`, providerID, start, end, exclude).Scan(&exists)
	return exists, err
}

func (r *repoPG) CountByService(ctx context.Context, serviceID uuid.UUID) (int, error) {
	var count int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointments WHERE service_id = $1`, serviceID).Scan(&count)
	return count, err
}
