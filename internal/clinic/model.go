package clinic

import "time"

type Clinic struct {
	Name    string
	Address string
}

type Doctor struct {
	TaxID     string
	Name      string
	Specialty string
}

type Patient struct {
	SSN  string
	Name string
}

// Appointment links one patient, one doctor and one clinic at a date+time.
// ID is a surrogate key; the business identity is (doctor, schedule) and
// (patient, schedule), each unique.
type Appointment struct {
	ID          int64
	ClinicName  string
	SSN         string
	DoctorTaxID string
	Schedule    Schedule
}

// FreeSlot is one row of the availability listing: a working slot of a
// doctor at a clinic with no appointment on it. Date is rendered date-only,
// Time as HH:MM.
type FreeSlot struct {
	DoctorName string
	Date       string
	Time       string
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *int64
	Payload       []byte
	CreatedAt     time.Time
}
