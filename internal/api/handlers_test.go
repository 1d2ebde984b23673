package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saude/clinic-scheduling/internal/clinic"
)

// stubRepo is a minimal in-memory clinic.Repository for exercising the full
// router stack.
type stubRepo struct {
	clinics      []clinic.Clinic
	patients     map[string]bool
	doctors      map[string]bool
	specialties  map[string]bool
	freeSlots    []clinic.FreeSlot
	appointments []clinic.Appointment
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		clinics:     []clinic.Clinic{{Name: "ClinicA", Address: "1 Main St"}},
		patients:    map[string]bool{"111111111": true},
		doctors:     map[string]bool{"222222222": true},
		specialties: map[string]bool{"Cardiology": true},
	}
}

func (s *stubRepo) ClinicExists(_ context.Context, name string) (bool, error) {
	for _, c := range s.clinics {
		if c.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubRepo) SpecialtyExists(_ context.Context, name string) (bool, error) {
	return s.specialties[name], nil
}

func (s *stubRepo) PatientExists(_ context.Context, ssn string) (bool, error) {
	return s.patients[ssn], nil
}

func (s *stubRepo) DoctorExists(_ context.Context, taxID string) (bool, error) {
	return s.doctors[taxID], nil
}

func (s *stubRepo) ScheduleIsBookable(_ context.Context, _ clinic.Schedule) (bool, error) {
	return true, nil
}

func (s *stubRepo) DoctorIsFree(_ context.Context, taxID string, sched clinic.Schedule) (bool, error) {
	for _, a := range s.appointments {
		if a.DoctorTaxID == taxID && a.Schedule == sched {
			return false, nil
		}
	}
	return true, nil
}

func (s *stubRepo) PatientIsFree(_ context.Context, ssn string, sched clinic.Schedule) (bool, error) {
	for _, a := range s.appointments {
		if a.SSN == ssn && a.Schedule == sched {
			return false, nil
		}
	}
	return true, nil
}

func (s *stubRepo) AppointmentExists(_ context.Context, clinicName, ssn, taxID string, sched clinic.Schedule) (bool, error) {
	for _, a := range s.appointments {
		if a.ClinicName == clinicName && a.SSN == ssn && a.DoctorTaxID == taxID && a.Schedule == sched {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubRepo) InsertAppointment(_ context.Context, clinicName, ssn, taxID string, sched clinic.Schedule) (int64, error) {
	s.appointments = append(s.appointments, clinic.Appointment{
		ID:          int64(len(s.appointments) + 1),
		ClinicName:  clinicName,
		SSN:         ssn,
		DoctorTaxID: taxID,
		Schedule:    sched,
	})
	return int64(len(s.appointments)), nil
}

func (s *stubRepo) DeleteAppointment(_ context.Context, clinicName, ssn, taxID string, sched clinic.Schedule) error {
	kept := s.appointments[:0]
	for _, a := range s.appointments {
		if a.ClinicName == clinicName && a.SSN == ssn && a.DoctorTaxID == taxID && a.Schedule == sched {
			continue
		}
		kept = append(kept, a)
	}
	s.appointments = kept
	return nil
}

func (s *stubRepo) ListClinics(_ context.Context) ([]clinic.Clinic, error) {
	return s.clinics, nil
}

func (s *stubRepo) ListSpecialties(_ context.Context, _ string) ([]string, error) {
	var out []string
	for name := range s.specialties {
		out = append(out, name)
	}
	return out, nil
}

func (s *stubRepo) ListFreeSlots(_ context.Context, _, _ string) ([]clinic.FreeSlot, error) {
	return s.freeSlots, nil
}

func (s *stubRepo) InsertEvent(_ context.Context, _ clinic.EventLog) error {
	return nil
}

func (s *stubRepo) InTx(_ context.Context, fn func(clinic.Repository) error) error {
	snapshot := make([]clinic.Appointment, len(s.appointments))
	copy(snapshot, s.appointments)
	if err := fn(s); err != nil {
		s.appointments = snapshot
		return err
	}
	return nil
}

type stubLocker struct{}

func (stubLocker) WithBookingLock(ctx context.Context, _, _, _, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestRouter(repo *stubRepo) http.Handler {
	svc := clinic.NewService(repo, stubLocker{}, zerolog.Nop())
	return NewRouter(RouterConfig{
		Service: svc,
		Logger:  zerolog.Nop(),
		Env:     "test",
		Version: "test",
	})
}

func doRequest(t *testing.T, router http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

const bookingQuery = "?ssn=111111111&nif=222222222&data=2099-01-01&hora=09:00"

func TestListClinics(t *testing.T) {
	router := newTestRouter(newStubRepo())

	rec := doRequest(t, router, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	var body [][2]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, [][2]string{{"ClinicA", "1 Main St"}}, body)
}

func TestListClinicsEmpty(t *testing.T) {
	repo := newStubRepo()
	repo.clinics = nil
	router := newTestRouter(repo)

	rec := doRequest(t, router, http.MethodGet, "/")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "error", decodeError(t, rec).Status)
}

func TestListSpecialtiesUnknownClinic(t *testing.T) {
	router := newTestRouter(newStubRepo())

	rec := doRequest(t, router, http.MethodGet, "/c/UnknownClinic/")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "clinic not found", decodeError(t, rec).Message)
}

func TestListFreeSlots(t *testing.T) {
	repo := newStubRepo()
	repo.freeSlots = []clinic.FreeSlot{
		{DoctorName: "Dr. Silva", Date: "2099-01-01", Time: "09:00"},
	}
	router := newTestRouter(repo)

	rec := doRequest(t, router, http.MethodGet, "/c/ClinicA/Cardiology/")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string][][2]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, [][2]string{{"2099-01-01", "09:00"}}, body["Dr. Silva"])
}

func TestListFreeSlotsNoneAvailable(t *testing.T) {
	router := newTestRouter(newStubRepo())

	rec := doRequest(t, router, http.MethodGet, "/c/ClinicA/Cardiology/")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no doctors found", decodeError(t, rec).Message)
}

func TestRegisterAppointment(t *testing.T) {
	repo := newStubRepo()
	router := newTestRouter(repo)

	rec := doRequest(t, router, http.MethodPut, "/a/ClinicA/registar/"+bookingQuery)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
	require.Len(t, repo.appointments, 1)

	// The identical request again fails: the doctor already has this slot.
	rec = doRequest(t, router, http.MethodPost, "/a/ClinicA/registar/"+bookingQuery)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, clinic.ErrDoctorUnavailable.Error(), decodeError(t, rec).Message)
	assert.Len(t, repo.appointments, 1)
}

func TestRegisterMissingArguments(t *testing.T) {
	repo := newStubRepo()
	router := newTestRouter(repo)

	rec := doRequest(t, router, http.MethodPost, "/a/ClinicA/registar/?ssn=111111111")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, clinic.ErrMissingArguments.Error(), decodeError(t, rec).Message)
	assert.Empty(t, repo.appointments)
}

func TestRegisterBadSchedule(t *testing.T) {
	router := newTestRouter(newStubRepo())

	rec := doRequest(t, router, http.MethodPut, "/a/ClinicA/registar/?ssn=111111111&nif=222222222&data=2099.01.01&hora=09:00")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, clinic.ErrInvalidSchedule.Error(), decodeError(t, rec).Message)
}

func TestCancelAppointment(t *testing.T) {
	repo := newStubRepo()
	router := newTestRouter(repo)

	rec := doRequest(t, router, http.MethodPut, "/a/ClinicA/registar/"+bookingQuery)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, router, http.MethodDelete, "/a/ClinicA/cancelar/"+bookingQuery)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, repo.appointments)

	rec = doRequest(t, router, http.MethodPost, "/a/ClinicA/cancelar/"+bookingQuery)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, clinic.ErrAppointmentNotFound.Error(), decodeError(t, rec).Message)
}

func TestLiveness(t *testing.T) {
	router := newTestRouter(newStubRepo())

	rec := doRequest(t, router, http.MethodGet, "/health/live")
	require.Equal(t, http.StatusOK, rec.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
}

func TestRequestIDHeader(t *testing.T) {
	router := newTestRouter(newStubRepo())

	rec := doRequest(t, router, http.MethodGet, "/")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}
