package clinic

import (
	"context"
)

// Repository contains all DB interactions needed by the service. Existence
// and conflict checks are plain predicates with no side effects; true from
// DoctorIsFree/PatientIsFree means free to book.
type Repository interface {
	ClinicExists(ctx context.Context, name string) (bool, error)
	SpecialtyExists(ctx context.Context, name string) (bool, error)
	PatientExists(ctx context.Context, ssn string) (bool, error)
	DoctorExists(ctx context.Context, taxID string) (bool, error)

	// ScheduleIsBookable reports whether the schedule is strictly more than
	// one hour after the database's NOW(), so every instance of the service
	// agrees on the cutoff regardless of clock skew.
	ScheduleIsBookable(ctx context.Context, s Schedule) (bool, error)

	DoctorIsFree(ctx context.Context, taxID string, s Schedule) (bool, error)
	PatientIsFree(ctx context.Context, ssn string, s Schedule) (bool, error)
	AppointmentExists(ctx context.Context, clinicName, ssn, taxID string, s Schedule) (bool, error)

	InsertAppointment(ctx context.Context, clinicName, ssn, taxID string, s Schedule) (int64, error)
	DeleteAppointment(ctx context.Context, clinicName, ssn, taxID string, s Schedule) error

	ListClinics(ctx context.Context) ([]Clinic, error)
	ListSpecialties(ctx context.Context, clinicName string) ([]string, error)
	ListFreeSlots(ctx context.Context, clinicName, specialty string) ([]FreeSlot, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error

	// InTx runs fn against a transaction-scoped repository. fn returning an
	// error rolls everything back; nil commits.
	InTx(ctx context.Context, fn func(Repository) error) error
}
