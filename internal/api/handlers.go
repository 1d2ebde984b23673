package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/saude/clinic-scheduling/internal/clinic"
)

func listClinicsHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinics, err := svc.ListClinics(r.Context())
		if err != nil {
			handleReadError(w, err)
			return
		}

		// The response is an array of [name, address] pairs, not objects.
		out := make([][2]string, 0, len(clinics))
		for _, c := range clinics {
			out = append(out, [2]string{c.Name, c.Address})
		}

		writeJSON(w, http.StatusOK, out)
	}
}

func listSpecialtiesHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		specialties, err := svc.ListSpecialties(r.Context(), chi.URLParam(r, "clinic"))
		if err != nil {
			handleReadError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, specialties)
	}
}

func listFreeSlotsHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slots, err := svc.ListFreeSlots(r.Context(), chi.URLParam(r, "clinic"), chi.URLParam(r, "specialty"))
		if err != nil {
			handleReadError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, slots)
	}
}

func registerHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.BookAppointment(r.Context(), chi.URLParam(r, "clinic"), bookingArgs(r)); err != nil {
			handleMutationError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func cancelHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.CancelAppointment(r.Context(), chi.URLParam(r, "clinic"), bookingArgs(r)); err != nil {
			handleMutationError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func bookingArgs(r *http.Request) clinic.BookingArgs {
	q := r.URL.Query()
	return clinic.BookingArgs{
		SSN:         q.Get("ssn"),
		DoctorTaxID: q.Get("nif"),
		Date:        q.Get("data"),
		Time:        q.Get("hora"),
	}
}

func handleReadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, clinic.ErrClinicNotFound),
		errors.Is(err, clinic.ErrSpecialtyNotFound),
		errors.Is(err, clinic.ErrNoClinics),
		errors.Is(err, clinic.ErrNoSpecialties),
		errors.Is(err, clinic.ErrNoDoctors):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func handleMutationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, clinic.ErrMissingArguments),
		errors.Is(err, clinic.ErrClinicNotFound),
		errors.Is(err, clinic.ErrInvalidPatient),
		errors.Is(err, clinic.ErrInvalidDoctor),
		errors.Is(err, clinic.ErrInvalidSchedule),
		errors.Is(err, clinic.ErrNotInFuture),
		errors.Is(err, clinic.ErrDoctorUnavailable),
		errors.Is(err, clinic.ErrPatientUnavailable),
		errors.Is(err, clinic.ErrAppointmentNotFound),
		errors.Is(err, clinic.ErrBookingContended):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
