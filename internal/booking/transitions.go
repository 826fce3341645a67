package booking

import (
	"fmt"

	"smart-health-server/internal/models"
)

var allowedTransitions = map[models.AppointmentStatus][]models.AppointmentStatus{
	models.StatusPending:   {models.StatusApproved, models.StatusCancelled},
	models.StatusApproved:  {models.StatusCompleted, models.StatusCancelled},
	models.StatusCompleted: {},
	models.StatusCancelled: {},
}

// CheckTransition decides whether an appointment may move from current to
// requested. It returns a *RejectionError describing the violated rule.
func CheckTransition(current, requested models.AppointmentStatus) error {
	if !requested.Valid() {
		return reject("Invalid status.")
	}
	for _, s := range allowedTransitions[current] {
		if s == requested {
			return nil
		}
	}
	return reject(fmt.Sprintf("Cannot change status from '%s' to '%s'.", current, requested))
}

// Transition applies the requested status to the appointment if the guard
// allows it. The caller persists the change.
func Transition(appt *models.Appointment, requested models.AppointmentStatus) error {
	if err := CheckTransition(appt.Status, requested); err != nil {
		return err
	}
	appt.Status = requested
	return nil
}
