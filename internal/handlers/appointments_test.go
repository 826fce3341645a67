package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/clause"

	"smart-health-server/internal/models"
	"smart-health-server/internal/notify"
	"smart-health-server/internal/testutil"
	"smart-health-server/internal/utils"
)

type recordingNotifier struct {
	mu        sync.Mutex
	booked    []notify.AppointmentNotice
	cancelled []notify.AppointmentNotice
}

func (n *recordingNotifier) NotifyBooked(_ context.Context, a notify.AppointmentNotice) notify.Result {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.booked = append(n.booked, a)
	return notify.Result{EmailSent: true}
}

func (n *recordingNotifier) NotifyCancelled(_ context.Context, a notify.AppointmentNotice) notify.Result {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, a)
	return notify.Result{EmailSent: true}
}

// 2025-01-06 is a Monday.
var bookingNow = time.Date(2025, time.January, 1, 8, 0, 0, 0, time.UTC)

type bookingFixture struct {
	*testEnv
	notifier *recordingNotifier
	doctor   *models.DoctorProfile
	patient  *models.PatientProfile
	window   models.Availability
}

func newBookingFixture(t *testing.T) *bookingFixture {
	e := newTestEnv(t)
	n := &recordingNotifier{}
	h := NewAppointmentHandler(e.db, e.cfg, n, nil, zerolog.Nop())
	h.Validator.Now = func() time.Time { return bookingNow }

	e.private.POST("/appointments", h.CreateAppointment)
	e.private.GET("/appointments", h.ListPatientAppointments)
	e.private.PATCH("/appointments/:id/cancel", h.CancelAppointment)
	e.private.GET("/doctors/appointments", h.ListDoctorAppointments)
	e.private.PATCH("/doctors/appointments/:id/status", h.UpdateAppointmentStatus)
	e.private.GET("/admin/appointments", h.ListAllAppointments)

	f := &bookingFixture{
		testEnv:  e,
		notifier: n,
		doctor:   testutil.CreateDoctor(t, e.db, "drnora"),
		patient:  testutil.CreatePatient(t, e.db, "oscar"),
	}
	f.window = models.Availability{DoctorID: f.doctor.ID, DayOfWeek: "Monday", StartTime: "09:00:00", EndTime: "12:00:00"}
	require.NoError(t, e.db.Create(&f.window).Error)
	return f
}

func (f *bookingFixture) book(date, at string) *models.AppointmentView {
	f.t.Helper()
	rec := f.do(http.MethodPost, "/api/v1/appointments", &f.patient.User, map[string]any{
		"doctor":           f.doctor.ID,
		"date":             date,
		"time":             at,
		"reason_for_visit": "checkup",
	})
	require.Equal(f.t, http.StatusCreated, rec.Code, rec.Body.String())
	var view models.AppointmentView
	decodeData(f.t, rec, &view)
	return &view
}

// insert stores an appointment without going through the validator.
func (f *bookingFixture) insert(patientID, date, at, reason string, status models.AppointmentStatus) models.Appointment {
	f.t.Helper()
	a := models.Appointment{
		PatientID:      patientID,
		DoctorID:       f.doctor.ID,
		Date:           date,
		Time:           at,
		ReasonForVisit: reason,
		Status:         status,
	}
	require.NoError(f.t, f.db.Omit(clause.Associations).Create(&a).Error)
	return a
}

func (f *bookingFixture) setStatus(id, status string) *statusResult {
	f.t.Helper()
	rec := f.do(http.MethodPatch, "/api/v1/doctors/appointments/"+id+"/status", &f.doctor.User, map[string]string{"status": status})
	return &statusResult{code: rec.Code, env: decodeEnvelope(f.t, rec)}
}

type statusResult struct {
	code int
	env  envelope
}

func TestBookInsideWeeklyWindow(t *testing.T) {
	f := newBookingFixture(t)

	view := f.book("2025-01-06", "10:00")
	assert.Equal(t, models.StatusPending, view.Status)
	assert.Equal(t, "10:00:00", view.Time)
	assert.Equal(t, "2025-01-06", view.Date)
	assert.Equal(t, "drnora", view.DoctorName)
	assert.Equal(t, "oscar", view.PatientName)
	assert.Nil(t, view.Availability)

	require.Len(t, f.notifier.booked, 1)
	notice := f.notifier.booked[0]
	assert.Equal(t, view.ID, notice.AppointmentID)
	assert.Equal(t, "oscar@example.com", notice.Patient.Email)
	assert.Equal(t, "+250788000000", notice.Patient.Phone)
	assert.Equal(t, "10:00:00", notice.Time)
}

func TestBookWithExplicitAvailability(t *testing.T) {
	f := newBookingFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/appointments", &f.patient.User, map[string]any{
		"doctor":       f.doctor.ID,
		"availability": f.window.ID,
		"date":         "2025-01-13",
		"time":         "11:59",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var view models.AppointmentView
	decodeData(t, rec, &view)
	require.NotNil(t, view.Availability)
	assert.Equal(t, f.window.ID, *view.Availability)
}

func TestBookRejections(t *testing.T) {
	f := newBookingFixture(t)
	other := testutil.CreateDoctor(t, f.db, "drpaul")

	tests := []struct {
		name string
		body map[string]any
		want string
	}{
		{"window end is exclusive", map[string]any{"doctor": f.doctor.ID, "date": "2025-01-06", "time": "12:00"}, "Doctor is not available at this time."},
		{"before window", map[string]any{"doctor": f.doctor.ID, "date": "2025-01-06", "time": "08:59"}, "Doctor is not available at this time."},
		{"no window that day", map[string]any{"doctor": f.doctor.ID, "date": "2025-01-07", "time": "10:00"}, "Doctor is not available at this time."},
		{"in the past", map[string]any{"doctor": f.doctor.ID, "date": "2024-12-30", "time": "10:00"}, "Cannot book an appointment in the past."},
		{"unknown doctor", map[string]any{"doctor": "missing", "date": "2025-01-06", "time": "10:00"}, "Doctor does not exist."},
		{"unknown availability", map[string]any{"doctor": f.doctor.ID, "availability": "missing", "date": "2025-01-06", "time": "10:00"}, "Availability does not exist."},
		{"availability of another doctor", map[string]any{"doctor": other.ID, "availability": f.window.ID, "date": "2025-01-06", "time": "10:00"}, "Selected availability does not belong to this doctor."},
		{"availability on another day", map[string]any{"doctor": f.doctor.ID, "availability": f.window.ID, "date": "2025-01-08", "time": "10:00"}, "Availability does not match appointment date."},
		{"outside explicit availability", map[string]any{"doctor": f.doctor.ID, "availability": f.window.ID, "date": "2025-01-06", "time": "13:00"}, "Appointment time is outside availability range."},
		{"malformed date", map[string]any{"doctor": f.doctor.ID, "date": "06/01/2025", "time": "10:00"}, "Validation failed: date must be a date in YYYY-MM-DD format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodPost, "/api/v1/appointments", &f.patient.User, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, tt.want, decodeEnvelope(t, rec).Error)
		})
	}

	var count int64
	f.db.Model(&models.Appointment{}).Count(&count)
	assert.Zero(t, count)
	assert.Empty(t, f.notifier.booked)
}

func TestBookRequiresPatientProfile(t *testing.T) {
	f := newBookingFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/appointments", &f.doctor.User, map[string]any{
		"doctor": f.doctor.ID, "date": "2025-01-06", "time": "10:00",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Patient profile not found.", decodeEnvelope(t, rec).Error)
}

func TestStatusLifecycle(t *testing.T) {
	f := newBookingFixture(t)
	view := f.book("2025-01-06", "09:30")

	for _, status := range []string{"Approved", "APPROVED", " approved"} {
		res := f.setStatus(view.ID, status)
		assert.Equal(t, http.StatusBadRequest, res.code, status)
		assert.Equal(t, "Invalid status.", res.env.Error, status)
	}

	res := f.setStatus(view.ID, "approved")
	require.Equal(t, http.StatusOK, res.code, res.env.Error)
	var updated models.AppointmentView
	require.NoError(t, json.Unmarshal(res.env.Data, &updated))
	assert.Equal(t, models.StatusApproved, updated.Status)

	res = f.setStatus(view.ID, "pending")
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Equal(t, "Cannot change status from 'approved' to 'pending'.", res.env.Error)

	res = f.setStatus(view.ID, "completed")
	require.Equal(t, http.StatusOK, res.code, res.env.Error)

	rec := f.do(http.MethodPatch, "/api/v1/appointments/"+view.ID+"/cancel", &f.patient.User, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Cannot change status from 'completed' to 'cancelled'.", decodeEnvelope(t, rec).Error)
	assert.Empty(t, f.notifier.cancelled)

	res = f.setStatus(view.ID, "archived")
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Equal(t, "Invalid status.", res.env.Error)

	var stored models.Appointment
	require.NoError(t, f.db.First(&stored, "id = ?", view.ID).Error)
	assert.Equal(t, models.StatusCompleted, stored.Status)
}

func TestPatientCancel(t *testing.T) {
	f := newBookingFixture(t)
	view := f.book("2025-01-06", "11:00")

	intruder := testutil.CreatePatient(t, f.db, "quinn")
	rec := f.do(http.MethodPatch, "/api/v1/appointments/"+view.ID+"/cancel", &intruder.User, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodPatch, "/api/v1/appointments/"+view.ID+"/cancel", &f.patient.User, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	require.Len(t, f.notifier.cancelled, 1)
	assert.Equal(t, view.ID, f.notifier.cancelled[0].AppointmentID)
	assert.Equal(t, "drnora", f.notifier.cancelled[0].Doctor.FullName)

	rec = f.do(http.MethodPatch, "/api/v1/appointments/"+view.ID+"/cancel", &f.patient.User, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDoctorCannotTouchOthersAppointments(t *testing.T) {
	f := newBookingFixture(t)
	view := f.book("2025-01-06", "10:15")
	other := testutil.CreateDoctor(t, f.db, "drrita")

	rec := f.do(http.MethodPatch, "/api/v1/doctors/appointments/"+view.ID+"/status", &other.User, map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Appointment not found.", decodeEnvelope(t, rec).Error)
}

func listPage(t *testing.T, f *bookingFixture, path string, user *models.User) (utils.Page, []models.AppointmentView) {
	t.Helper()
	rec := f.do(http.MethodGet, path, user, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page struct {
		utils.Page
		Results []models.AppointmentView `json:"results"`
	}
	decodeData(t, rec, &page)
	return page.Page, page.Results
}

func TestListPatientAppointments(t *testing.T) {
	f := newBookingFixture(t)
	other := testutil.CreatePatient(t, f.db, "sam")

	f.insert(f.patient.ID, "2025-01-06", "09:00:00", "flu symptoms", models.StatusPending)
	f.insert(f.patient.ID, "2025-01-13", "09:00:00", "follow-up", models.StatusApproved)
	f.insert(f.patient.ID, "2025-01-20", "09:00:00", "annual checkup", models.StatusCancelled)
	f.insert(other.ID, "2025-01-06", "10:00:00", "someone else", models.StatusPending)

	page, results := listPage(t, f, "/api/v1/appointments?page_size=2", &f.patient.User)
	assert.Equal(t, int64(3), page.Count)
	assert.True(t, page.HasNext)
	require.Len(t, results, 2)
	assert.Equal(t, "2025-01-20", results[0].Date, "newest date first by default")

	page, results = listPage(t, f, "/api/v1/appointments?page_size=2&page=2", &f.patient.User)
	assert.False(t, page.HasNext)
	require.Len(t, results, 1)
	assert.Equal(t, "2025-01-06", results[0].Date)

	_, results = listPage(t, f, "/api/v1/appointments?ordering=date", &f.patient.User)
	require.Len(t, results, 3)
	assert.Equal(t, "2025-01-06", results[0].Date)

	page, results = listPage(t, f, "/api/v1/appointments?search=FLU", &f.patient.User)
	assert.Equal(t, int64(1), page.Count)
	require.Len(t, results, 1)
	assert.Equal(t, "flu symptoms", results[0].ReasonForVisit)

	page, _ = listPage(t, f, "/api/v1/appointments?search=drnor", &f.patient.User)
	assert.Equal(t, int64(3), page.Count)

	rec := f.do(http.MethodGet, "/api/v1/appointments?ordering=reason", &f.patient.User, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListDoctorAndAdminAppointments(t *testing.T) {
	f := newBookingFixture(t)
	admin := testutil.CreateUser(t, f.db, "root", models.RoleAdmin)

	f.insert(f.patient.ID, "2025-01-06", "09:00:00", "a", models.StatusPending)
	f.insert(f.patient.ID, "2025-01-13", "09:00:00", "b", models.StatusApproved)

	page, results := listPage(t, f, "/api/v1/doctors/appointments?status=approved", &f.doctor.User)
	assert.Equal(t, int64(1), page.Count)
	require.Len(t, results, 1)
	assert.Equal(t, models.StatusApproved, results[0].Status)

	rec := f.do(http.MethodGet, "/api/v1/doctors/appointments?status=unknown", &f.doctor.User, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid status.", decodeEnvelope(t, rec).Error)

	page, _ = listPage(t, f, "/api/v1/admin/appointments", admin)
	assert.Equal(t, int64(2), page.Count)
}
