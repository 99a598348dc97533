package scheduling

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc := NewService(newTestRegistry(t), DefaultPolicy(), time.UTC, 5, nil, nil)
	svc.SetClock(fixedClock(2026, time.January, 1, 8, 0))

	r := chi.NewRouter()
	r.Route("/api/calendar", NewHandler(svc, nil).RegisterRoutes)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp, payload
}

func TestHandlerAvailability(t *testing.T) {
	srv := newTestServer(t)

	resp, payload := doJSON(t, http.MethodGet,
		srv.URL+"/api/calendar/availability?date="+testDate+"&appointment_type=follow_up", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, float64(5), payload["count"])

	resp, payload = doJSON(t, http.MethodGet, srv.URL+"/api/calendar/availability", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errObj := payload["error"].(map[string]any)
	assert.Equal(t, "validation_error", errObj["kind"])
}

func TestHandlerBookAndConflict(t *testing.T) {
	srv := newTestServer(t)

	resp, payload := doJSON(t, http.MethodPost, srv.URL+"/api/calendar/book", validBooking())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, true, payload["success"])
	assert.NotEmpty(t, payload["appointment_id"])
	assert.Equal(t, "09:30", payload["end_time"])

	// The same span again is a conflict, not a validation problem.
	resp, payload = doJSON(t, http.MethodPost, srv.URL+"/api/calendar/book", validBooking())
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	errObj := payload["error"].(map[string]any)
	assert.Equal(t, "slot_unavailable", errObj["kind"])
}

func TestHandlerBookBadBody(t *testing.T) {
	srv := newTestServer(t)
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/calendar/book",
		bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandlerCancelStatuses(t *testing.T) {
	srv := newTestServer(t)

	_, payload := doJSON(t, http.MethodPost, srv.URL+"/api/calendar/book", validBooking())
	id := payload["appointment_id"].(string)

	// Wrong email is forbidden.
	resp, payload := doJSON(t, http.MethodPost, srv.URL+"/api/calendar/cancel", CancelRequest{
		AppointmentID: id,
		PatientEmail:  "mallory@example.com",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	errObj := payload["error"].(map[string]any)
	assert.Equal(t, "verification_error", errObj["kind"])

	resp, payload = doJSON(t, http.MethodPost, srv.URL+"/api/calendar/cancel", CancelRequest{
		AppointmentID: id,
		PatientEmail:  "asha.verma@example.com",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	freed := payload["freed_slot"].(map[string]any)
	assert.Equal(t, "09:00", freed["start_time"])
	assert.Equal(t, "09:45", freed["end_time"])

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/calendar/cancel", CancelRequest{AppointmentID: id})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandlerReschedule(t *testing.T) {
	srv := newTestServer(t)

	_, payload := doJSON(t, http.MethodPost, srv.URL+"/api/calendar/book", validBooking())
	id := payload["appointment_id"].(string)

	resp, payload := doJSON(t, http.MethodPost, srv.URL+"/api/calendar/reschedule", RescheduleRequest{
		AppointmentID: id,
		NewDate:       testDate,
		NewStartTime:  "14:00",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	newSlot := payload["new"].(map[string]any)
	assert.Equal(t, "14:00", newSlot["start_time"])
	assert.Equal(t, "14:30", newSlot["end_time"])
}

func TestHandlerWaitlist(t *testing.T) {
	srv := newTestServer(t)

	resp, payload := doJSON(t, http.MethodPost, srv.URL+"/api/calendar/waitlist", WaitlistRequest{
		PatientName:   "Asha Verma",
		PatientEmail:  "asha.verma@example.com",
		PatientPhone:  "+91 9812345678",
		PreferredDate: testDate,
		Type:          TypeGeneralConsultation,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := payload["waitlist_id"].(string)

	resp, payload = doJSON(t, http.MethodGet, srv.URL+"/api/calendar/waitlist?date="+testDate, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), payload["count"])

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/calendar/waitlist/"+id, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/calendar/waitlist/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandlerGetAppointment(t *testing.T) {
	srv := newTestServer(t)

	_, payload := doJSON(t, http.MethodPost, srv.URL+"/api/calendar/book", validBooking())
	id := payload["appointment_id"].(string)

	resp, payload := doJSON(t, http.MethodGet, srv.URL+"/api/calendar/appointments/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	appt := payload["appointment"].(map[string]any)
	assert.Equal(t, "Asha Verma", appt["patient_name"])

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/calendar/appointments/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
