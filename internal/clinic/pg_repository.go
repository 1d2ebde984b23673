package clinic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so the same
// repository code serves pooled reads and transaction-scoped orchestration.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	pool *pgxpool.Pool // nil when scoped to a transaction
	q    querier
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool, q: pool}
}

func (r *PgRepository) InTx(ctx context.Context, fn func(Repository) error) error {
	if r.pool == nil {
		return errors.New("nested transactions are not supported")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&PgRepository{q: tx}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) queryBool(ctx context.Context, query string, args ...any) (bool, error) {
	var found bool
	if err := r.q.QueryRow(ctx, query, args...).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}

func (r *PgRepository) ClinicExists(ctx context.Context, name string) (bool, error) {
	return r.queryBool(ctx, `
		SELECT EXISTS (SELECT 1 FROM clinics WHERE name = $1)
	`, name)
}

func (r *PgRepository) SpecialtyExists(ctx context.Context, name string) (bool, error) {
	return r.queryBool(ctx, `
		SELECT EXISTS (SELECT 1 FROM doctors WHERE specialty = $1)
	`, name)
}

func (r *PgRepository) PatientExists(ctx context.Context, ssn string) (bool, error) {
	return r.queryBool(ctx, `
		SELECT EXISTS (SELECT 1 FROM patients WHERE ssn = $1)
	`, ssn)
}

func (r *PgRepository) DoctorExists(ctx context.Context, taxID string) (bool, error) {
	return r.queryBool(ctx, `
		SELECT EXISTS (SELECT 1 FROM doctors WHERE tax_id = $1)
	`, taxID)
}

// ScheduleIsBookable delegates the comparison to the database clock.
func (r *PgRepository) ScheduleIsBookable(ctx context.Context, s Schedule) (bool, error) {
	return r.queryBool(ctx, `
		SELECT ($1::date + $2::time) > NOW() + INTERVAL '1 hour'
	`, s.Date, s.Time)
}

func (r *PgRepository) DoctorIsFree(ctx context.Context, taxID string, s Schedule) (bool, error) {
	return r.queryBool(ctx, `
		SELECT NOT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_tax_id = $1 AND slot_date = $2::date AND slot_time = $3::time
		)
	`, taxID, s.Date, s.Time)
}

func (r *PgRepository) PatientIsFree(ctx context.Context, ssn string, s Schedule) (bool, error) {
	return r.queryBool(ctx, `
		SELECT NOT EXISTS (
			SELECT 1 FROM appointments
			WHERE ssn = $1 AND slot_date = $2::date AND slot_time = $3::time
		)
	`, ssn, s.Date, s.Time)
}

func (r *PgRepository) AppointmentExists(ctx context.Context, clinicName, ssn, taxID string, s Schedule) (bool, error) {
	return r.queryBool(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE clinic_name = $1 AND ssn = $2 AND doctor_tax_id = $3
			  AND slot_date = $4::date AND slot_time = $5::time
		)
	`, clinicName, ssn, taxID, s.Date, s.Time)
}

func (r *PgRepository) InsertAppointment(ctx context.Context, clinicName, ssn, taxID string, s Schedule) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO appointments (clinic_name, ssn, doctor_tax_id, slot_date, slot_time)
		VALUES ($1, $2, $3, $4::date, $5::time)
		RETURNING id
	`, clinicName, ssn, taxID, s.Date, s.Time).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *PgRepository) DeleteAppointment(ctx context.Context, clinicName, ssn, taxID string, s Schedule) error {
	_, err := r.q.Exec(ctx, `
		DELETE FROM appointments
		WHERE clinic_name = $1 AND ssn = $2 AND doctor_tax_id = $3
		  AND slot_date = $4::date AND slot_time = $5::time
	`, clinicName, ssn, taxID, s.Date, s.Time)
	return err
}

func (r *PgRepository) ListClinics(ctx context.Context) ([]Clinic, error) {
	rows, err := r.q.Query(ctx, `
		SELECT name, address
		FROM clinics
		ORDER BY name DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Clinic
	for rows.Next() {
		var c Clinic
		if err := rows.Scan(&c.Name, &c.Address); err != nil {
			return nil, err
		}
		result = append(result, c)
	}

	return result, rows.Err()
}

func (r *PgRepository) ListSpecialties(ctx context.Context, clinicName string) ([]string, error) {
	rows, err := r.q.Query(ctx, `
		SELECT DISTINCT d.specialty
		FROM doctor_clinics dc
		JOIN doctors d ON d.tax_id = dc.doctor_tax_id
		WHERE dc.clinic_name = $1
	`, clinicName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var specialty string
		if err := rows.Scan(&specialty); err != nil {
			return nil, err
		}
		result = append(result, specialty)
	}

	return result, rows.Err()
}

// ListFreeSlots returns every strictly-future working slot of the clinic's
// doctors in the given specialty that has no appointment on it, ordered by
// date then time. Grouping and the per-doctor cap happen in the service.
func (r *PgRepository) ListFreeSlots(ctx context.Context, clinicName, specialty string) ([]FreeSlot, error) {
	rows, err := r.q.Query(ctx, `
		SELECT d.name, s.slot_date::text, to_char(s.slot_time, 'HH24:MI')
		FROM doctor_slots s
		JOIN doctors d ON d.tax_id = s.doctor_tax_id
		LEFT JOIN appointments a
		  ON a.doctor_tax_id = s.doctor_tax_id
		 AND a.slot_date = s.slot_date
		 AND a.slot_time = s.slot_time
		WHERE s.clinic_name = $1
		  AND s.specialty = $2
		  AND (s.slot_date + s.slot_time) > NOW() + INTERVAL '1 hour'
		  AND a.id IS NULL
		ORDER BY s.slot_date, s.slot_time
	`, clinicName, specialty)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []FreeSlot
	for rows.Next() {
		var slot FreeSlot
		if err := rows.Scan(&slot.DoctorName, &slot.Date, &slot.Time); err != nil {
			return nil, err
		}
		result = append(result, slot)
	}

	return result, rows.Err()
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
