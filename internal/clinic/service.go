package clinic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	redisclient "github.com/saude/clinic-scheduling/internal/redis"
)

const (
	EventAppointmentBooked    = "APPOINTMENT_BOOKED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
)

// maxSlotsPerDoctor caps how many upcoming free slots a listing shows per
// doctor.
const maxSlotsPerDoctor = 3

var (
	ErrMissingArguments    = errors.New("ssn, nif, data and hora are all required")
	ErrClinicNotFound      = errors.New("clinic not found")
	ErrSpecialtyNotFound   = errors.New("specialty not found")
	ErrInvalidPatient      = errors.New("no patient registered with this ssn")
	ErrInvalidDoctor       = errors.New("no doctor registered with this nif")
	ErrInvalidSchedule     = errors.New("data must be YYYY-MM-DD and hora HH:MM, between 08:00-13:00 and 14:00-20:00 in 30 minute steps")
	ErrNotInFuture         = errors.New("only appointments more than one hour in the future can be booked or cancelled")
	ErrDoctorUnavailable   = errors.New("the doctor already has an appointment at this time")
	ErrPatientUnavailable  = errors.New("the patient already has an appointment at this time")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrBookingContended    = errors.New("this time slot is being booked right now, please retry")
	ErrNoClinics           = errors.New("no clinics found")
	ErrNoSpecialties       = errors.New("no specialties found")
	ErrNoDoctors           = errors.New("no doctors found")
)

// Postgres error codes surfaced by the appointments table constraints.
const (
	pgInvalidDatetimeFormat = "22007"
	pgDatetimeOutOfRange    = "22008"
	pgUniqueViolation       = "23505"
	pgCheckViolation        = "23514"
	pgRaiseException        = "P0001" // weekday-affiliation trigger
)

// BookingArgs are the raw query parameters of a booking or cancellation
// request. Date and Time stay unvalidated strings until the orchestrator
// reaches the schedule-shape step; check ordering is part of the contract.
type BookingArgs struct {
	SSN         string
	DoctorTaxID string
	Date        string
	Time        string
}

type Service struct {
	repo   Repository
	locker redisclient.BookingLocker
	log    zerolog.Logger
}

func NewService(repo Repository, locker redisclient.BookingLocker, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		log:    log,
	}
}

// BookAppointment runs the booking checklist inside one transaction, under a
// Redis lock covering the doctor's and the patient's slot. The checks run in
// a fixed order and the first failure aborts with zero writes:
// arguments, clinic, patient, doctor, schedule shape, future cutoff, doctor
// conflict, patient conflict, insert.
func (s *Service) BookAppointment(ctx context.Context, clinicName string, args BookingArgs) error {
	if clinicName == "" || args.SSN == "" || args.DoctorTaxID == "" || args.Date == "" || args.Time == "" {
		return ErrMissingArguments
	}

	var booked int64

	err := s.locker.WithBookingLock(ctx, args.DoctorTaxID, args.SSN, args.Date, args.Time, func(lockCtx context.Context) error {
		return s.repo.InTx(lockCtx, func(r Repository) error {
			if ok, err := r.ClinicExists(lockCtx, clinicName); err != nil {
				return fmt.Errorf("check clinic: %w", err)
			} else if !ok {
				return ErrClinicNotFound
			}

			if ok, err := r.PatientExists(lockCtx, args.SSN); err != nil {
				return fmt.Errorf("check patient: %w", err)
			} else if !ok {
				return ErrInvalidPatient
			}

			if ok, err := r.DoctorExists(lockCtx, args.DoctorTaxID); err != nil {
				return fmt.Errorf("check doctor: %w", err)
			} else if !ok {
				return ErrInvalidDoctor
			}

			sched, err := ParseSchedule(args.Date, args.Time)
			if err != nil {
				return err
			}

			if ok, err := r.ScheduleIsBookable(lockCtx, sched); err != nil {
				return fmt.Errorf("check cutoff: %w", err)
			} else if !ok {
				return ErrNotInFuture
			}

			if free, err := r.DoctorIsFree(lockCtx, args.DoctorTaxID, sched); err != nil {
				return fmt.Errorf("check doctor conflict: %w", err)
			} else if !free {
				return ErrDoctorUnavailable
			}

			if free, err := r.PatientIsFree(lockCtx, args.SSN, sched); err != nil {
				return fmt.Errorf("check patient conflict: %w", err)
			} else if !free {
				return ErrPatientUnavailable
			}

			id, err := r.InsertAppointment(lockCtx, clinicName, args.SSN, args.DoctorTaxID, sched)
			if err != nil {
				return fmt.Errorf("insert appointment: %w", err)
			}

			booked = id
			return nil
		})
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return ErrBookingContended
		}
		return mapStoreError(err)
	}

	s.logEvent(ctx, booked, EventAppointmentBooked, map[string]any{
		"clinic": clinicName,
		"ssn":    args.SSN,
		"nif":    args.DoctorTaxID,
		"data":   args.Date,
		"hora":   args.Time,
	})

	return nil
}

// CancelAppointment removes a future appointment inside one transaction.
// The checklist mirrors booking except that the clinic is never verified on
// its own: the appointment-exists check matches on clinic name, so an unknown
// clinic surfaces as "appointment not found".
func (s *Service) CancelAppointment(ctx context.Context, clinicName string, args BookingArgs) error {
	if clinicName == "" || args.SSN == "" || args.DoctorTaxID == "" || args.Date == "" || args.Time == "" {
		return ErrMissingArguments
	}

	err := s.repo.InTx(ctx, func(r Repository) error {
		if ok, err := r.PatientExists(ctx, args.SSN); err != nil {
			return fmt.Errorf("check patient: %w", err)
		} else if !ok {
			return ErrInvalidPatient
		}

		if ok, err := r.DoctorExists(ctx, args.DoctorTaxID); err != nil {
			return fmt.Errorf("check doctor: %w", err)
		} else if !ok {
			return ErrInvalidDoctor
		}

		sched, err := ParseSchedule(args.Date, args.Time)
		if err != nil {
			return err
		}

		if ok, err := r.ScheduleIsBookable(ctx, sched); err != nil {
			return fmt.Errorf("check cutoff: %w", err)
		} else if !ok {
			return ErrNotInFuture
		}

		if ok, err := r.AppointmentExists(ctx, clinicName, args.SSN, args.DoctorTaxID, sched); err != nil {
			return fmt.Errorf("check appointment: %w", err)
		} else if !ok {
			return ErrAppointmentNotFound
		}

		if err := r.DeleteAppointment(ctx, clinicName, args.SSN, args.DoctorTaxID, sched); err != nil {
			return fmt.Errorf("delete appointment: %w", err)
		}

		return nil
	})

	if err != nil {
		return mapStoreError(err)
	}

	s.logEvent(ctx, 0, EventAppointmentCancelled, map[string]any{
		"clinic": clinicName,
		"ssn":    args.SSN,
		"nif":    args.DoctorTaxID,
		"data":   args.Date,
		"hora":   args.Time,
	})

	return nil
}

func (s *Service) ListClinics(ctx context.Context) ([]Clinic, error) {
	clinics, err := s.repo.ListClinics(ctx)
	if err != nil {
		return nil, fmt.Errorf("list clinics: %w", err)
	}
	if len(clinics) == 0 {
		return nil, ErrNoClinics
	}
	return clinics, nil
}

func (s *Service) ListSpecialties(ctx context.Context, clinicName string) ([]string, error) {
	if ok, err := s.repo.ClinicExists(ctx, clinicName); err != nil {
		return nil, fmt.Errorf("check clinic: %w", err)
	} else if !ok {
		return nil, ErrClinicNotFound
	}

	specialties, err := s.repo.ListSpecialties(ctx, clinicName)
	if err != nil {
		return nil, fmt.Errorf("list specialties: %w", err)
	}
	if len(specialties) == 0 {
		return nil, ErrNoSpecialties
	}
	return specialties, nil
}

// ListFreeSlots groups the clinic's free working slots per doctor, keeping at
// most the first three (date, time) pairs each in ascending order.
func (s *Service) ListFreeSlots(ctx context.Context, clinicName, specialty string) (map[string][][2]string, error) {
	if ok, err := s.repo.ClinicExists(ctx, clinicName); err != nil {
		return nil, fmt.Errorf("check clinic: %w", err)
	} else if !ok {
		return nil, ErrClinicNotFound
	}

	if ok, err := s.repo.SpecialtyExists(ctx, specialty); err != nil {
		return nil, fmt.Errorf("check specialty: %w", err)
	} else if !ok {
		return nil, ErrSpecialtyNotFound
	}

	slots, err := s.repo.ListFreeSlots(ctx, clinicName, specialty)
	if err != nil {
		return nil, fmt.Errorf("list free slots: %w", err)
	}
	if len(slots) == 0 {
		return nil, ErrNoDoctors
	}

	grouped := make(map[string][][2]string)
	for _, slot := range slots {
		name := strings.TrimSpace(slot.DoctorName)
		if len(grouped[name]) >= maxSlotsPerDoctor {
			continue
		}
		grouped[name] = append(grouped[name], [2]string{slot.Date, slot.Time})
	}

	return grouped, nil
}

// mapStoreError translates constraint violations raised by the store into the
// errors the orchestrators would have produced themselves. Slot-grid CHECKs,
// the weekday-affiliation trigger and malformed date casts all report as an
// invalid schedule; a unique-violation race loser reports as the matching
// unavailable error.
func mapStoreError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgCheckViolation, pgRaiseException, pgInvalidDatetimeFormat, pgDatetimeOutOfRange:
		return ErrInvalidSchedule
	case pgUniqueViolation:
		if strings.Contains(pgErr.ConstraintName, "patient") {
			return ErrPatientUnavailable
		}
		return ErrDoctorUnavailable
	}

	return err
}

// logEvent records an audit row best effort; a failed event never fails the
// request that produced it.
func (s *Service) logEvent(ctx context.Context, appointmentID int64, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event", eventType).Msg("marshal event payload")
		data = nil
	}

	ev := EventLog{
		EventType: eventType,
		Payload:   data,
	}
	if appointmentID != 0 {
		ev.AppointmentID = &appointmentID
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Error().Err(err).Str("event", eventType).Msg("insert event log")
	}
}
