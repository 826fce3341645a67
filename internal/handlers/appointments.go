package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"smart-health-server/internal/booking"
	"smart-health-server/internal/config"
	"smart-health-server/internal/metrics"
	"smart-health-server/internal/models"
	"smart-health-server/internal/notify"
	"smart-health-server/internal/utils"
)

// AppointmentNotifier announces booking events to the patient.
type AppointmentNotifier interface {
	NotifyBooked(ctx context.Context, a notify.AppointmentNotice) notify.Result
	NotifyCancelled(ctx context.Context, a notify.AppointmentNotice) notify.Result
}

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	DB        *gorm.DB
	Cfg       *config.Config
	Validator *booking.Validator
	Notifier  AppointmentNotifier
	Metrics   *metrics.BookingMetrics
	Logger    zerolog.Logger
}

// NewAppointmentHandler creates a new AppointmentHandler. notifier may be nil.
func NewAppointmentHandler(db *gorm.DB, cfg *config.Config, notifier AppointmentNotifier, m *metrics.BookingMetrics, logger zerolog.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		DB:        db,
		Cfg:       cfg,
		Validator: booking.NewValidator(booking.GormAvailabilitySource{DB: db}, cfg.Location()),
		Notifier:  notifier,
		Metrics:   m,
		Logger:    logger,
	}
}

// CreateAppointmentRequest represents the request body for booking.
type CreateAppointmentRequest struct {
	Doctor         string  `json:"doctor" binding:"required"`
	Availability   *string `json:"availability"`
	Date           string  `json:"date" binding:"required,date"`
	Time           string  `json:"time" binding:"required,clock"`
	ReasonForVisit string  `json:"reason_for_visit" binding:"max=2000"`
}

// CreateAppointment books a pending appointment for the authenticated patient.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ctx := c.Request.Context()

	patient, ok := currentPatient(c, h.DB)
	if !ok {
		return
	}

	var doctor models.DoctorProfile
	if err := h.DB.WithContext(ctx).Preload("User").First(&doctor, "id = ?", req.Doctor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.BadRequest(c, "Doctor does not exist.")
		} else {
			utils.InternalServerError(c, "Database error verifying doctor: "+err.Error())
		}
		return
	}

	var window *models.Availability
	if req.Availability != nil && *req.Availability != "" {
		var a models.Availability
		if err := h.DB.WithContext(ctx).First(&a, "id = ?", *req.Availability).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.BadRequest(c, "Availability does not exist.")
			} else {
				utils.InternalServerError(c, "Database error verifying availability: "+err.Error())
			}
			return
		}
		window = &a
	}

	date, err := booking.ParseDate(req.Date, h.Validator.Location)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	at, err := booking.ParseClock(req.Time)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	err = h.Validator.Validate(ctx, booking.Request{
		DoctorID:     doctor.ID,
		Date:         date,
		Time:         at,
		Availability: window,
	})
	if err != nil {
		if booking.IsRejection(err) {
			h.Metrics.ObserveBooking("rejected")
			utils.BadRequest(c, err.Error())
			return
		}
		utils.InternalServerError(c, "Failed to check doctor availability: "+err.Error())
		return
	}

	appointment := models.Appointment{
		PatientID:      patient.ID,
		DoctorID:       doctor.ID,
		Date:           date.Format(booking.DateLayout),
		Time:           at.String(),
		ReasonForVisit: req.ReasonForVisit,
		Status:         models.StatusPending,
	}
	if window != nil {
		appointment.AvailabilityID = &window.ID
	}
	if err := h.DB.WithContext(ctx).Omit("Patient", "Doctor", "Availability").Create(&appointment).Error; err != nil {
		utils.InternalServerError(c, "Failed to create appointment: "+err.Error())
		return
	}
	h.Metrics.ObserveBooking("created")

	appointment.Patient = *patient
	appointment.Doctor = doctor
	if h.Notifier != nil {
		h.Notifier.NotifyBooked(ctx, notice(&appointment))
	}

	utils.Created(c, "Appointment booked successfully", appointment.View())
}

// notice expects Patient.User and Doctor.User to be loaded.
func notice(a *models.Appointment) notify.AppointmentNotice {
	return notify.AppointmentNotice{
		AppointmentID: a.ID,
		Patient: notify.Party{
			FullName: a.Patient.User.FullName(),
			LastName: a.Patient.User.LastName,
			Email:    a.Patient.User.Email,
			Phone:    a.Patient.Phone,
		},
		Doctor: notify.Party{
			FullName: a.Doctor.User.FullName(),
			LastName: a.Doctor.User.LastName,
			Email:    a.Doctor.User.Email,
		},
		Date: a.Date,
		Time: a.Time,
	}
}

var appointmentOrderings = map[string]string{
	"date":        "appointments.date asc, appointments.time asc",
	"-date":       "appointments.date desc, appointments.time desc",
	"created_at":  "appointments.created_at asc",
	"-created_at": "appointments.created_at desc",
}

// listAppointments writes one page of appointments matching scope.
func (h *AppointmentHandler) listAppointments(c *gin.Context, scope func(*gorm.DB) *gorm.DB) {
	ctx := c.Request.Context()
	p := utils.PaginationFromContext(c, h.Cfg.PageSize)

	order, ok := appointmentOrderings[c.DefaultQuery("ordering", "-date")]
	if !ok {
		utils.BadRequest(c, "ordering must be one of: date, -date, created_at, -created_at")
		return
	}

	var total int64
	if err := h.DB.WithContext(ctx).Model(&models.Appointment{}).Scopes(scope).Count(&total).Error; err != nil {
		utils.InternalServerError(c, "Failed to count appointments: "+err.Error())
		return
	}

	var appointments []models.Appointment
	err := h.DB.WithContext(ctx).
		Scopes(scope).
		Preload("Patient.User").
		Preload("Doctor.User").
		Order(order).
		Limit(p.PageSize).
		Offset(p.Offset()).
		Find(&appointments).Error
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch appointments: "+err.Error())
		return
	}

	views := make([]models.AppointmentView, len(appointments))
	for i := range appointments {
		views[i] = appointments[i].View()
	}
	utils.Success(c, "Appointments fetched successfully", utils.NewPage(views, total, p))
}

// searchScope matches the doctor's username or the reason for visit.
func searchScope(term string) func(*gorm.DB) *gorm.DB {
	term = strings.TrimSpace(term)
	like := "%" + strings.ToLower(term) + "%"
	return func(db *gorm.DB) *gorm.DB {
		if term == "" {
			return db
		}
		return db.
			Joins("JOIN doctor_profiles ON doctor_profiles.id = appointments.doctor_id").
			Joins("JOIN users doctor_users ON doctor_users.id = doctor_profiles.user_id").
			Where("LOWER(doctor_users.username) LIKE ? OR LOWER(appointments.reason_for_visit) LIKE ?", like, like)
	}
}

// ListPatientAppointments lists the authenticated patient's appointments.
// Supports search, ordering and pagination.
func (h *AppointmentHandler) ListPatientAppointments(c *gin.Context) {
	patient, ok := currentPatient(c, h.DB)
	if !ok {
		return
	}
	search := searchScope(c.Query("search"))
	h.listAppointments(c, func(db *gorm.DB) *gorm.DB {
		return search(db.Where("appointments.patient_id = ?", patient.ID))
	})
}

// ListDoctorAppointments lists the authenticated doctor's appointments,
// optionally filtered by status.
func (h *AppointmentHandler) ListDoctorAppointments(c *gin.Context) {
	doctor, ok := currentDoctor(c, h.DB)
	if !ok {
		return
	}
	status := models.AppointmentStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		utils.BadRequest(c, "Invalid status.")
		return
	}
	h.listAppointments(c, func(db *gorm.DB) *gorm.DB {
		db = db.Where("appointments.doctor_id = ?", doctor.ID)
		if status != "" {
			db = db.Where("appointments.status = ?", status)
		}
		return db
	})
}

// ListAllAppointments lists every appointment for administrators.
func (h *AppointmentHandler) ListAllAppointments(c *gin.Context) {
	h.listAppointments(c, func(db *gorm.DB) *gorm.DB { return db })
}

// loadAppointment fetches :id restricted by column = owner, with names
// preloaded. It writes a 404 when nothing matches.
func (h *AppointmentHandler) loadAppointment(c *gin.Context, column, owner string) (*models.Appointment, bool) {
	var appointment models.Appointment
	err := h.DB.WithContext(c.Request.Context()).
		Preload("Patient.User").
		Preload("Doctor.User").
		Where("id = ? AND "+column+" = ?", c.Param("id"), owner).
		First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Appointment not found.")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return nil, false
	}
	return &appointment, true
}

// changeStatus runs the transition guard and persists the new status.
// It writes the error response and returns false on failure.
func (h *AppointmentHandler) changeStatus(c *gin.Context, appointment *models.Appointment, requested models.AppointmentStatus) bool {
	from := appointment.Status
	if err := booking.Transition(appointment, requested); err != nil {
		utils.BadRequest(c, err.Error())
		return false
	}
	err := h.DB.WithContext(c.Request.Context()).
		Model(&models.Appointment{}).
		Where("id = ?", appointment.ID).
		Update("status", appointment.Status).Error
	if err != nil {
		utils.InternalServerError(c, "Failed to update appointment: "+err.Error())
		return false
	}
	h.Metrics.ObserveTransition(string(from), string(requested))
	if requested == models.StatusCancelled && h.Notifier != nil {
		h.Notifier.NotifyCancelled(c.Request.Context(), notice(appointment))
	}
	return true
}

// CancelAppointment lets a patient cancel one of their appointments.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	patient, ok := currentPatient(c, h.DB)
	if !ok {
		return
	}
	appointment, ok := h.loadAppointment(c, "patient_id", patient.ID)
	if !ok {
		return
	}
	if !h.changeStatus(c, appointment, models.StatusCancelled) {
		return
	}
	utils.NoContent(c)
}

// UpdateStatusRequest represents the body of a doctor status change.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateAppointmentStatus lets a doctor move one of their appointments
// through the status lifecycle.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	doctor, ok := currentDoctor(c, h.DB)
	if !ok {
		return
	}
	appointment, ok := h.loadAppointment(c, "doctor_id", doctor.ID)
	if !ok {
		return
	}
	requested := models.AppointmentStatus(req.Status)
	if !h.changeStatus(c, appointment, requested) {
		return
	}
	utils.Success(c, "Appointment status updated successfully", appointment.View())
}
