// Package reports generates analytics documents asynchronously and exposes
// their lifecycle.
package reports

import "smart-health-server/internal/models"

// Status is derived on read from the stored report fields.
type Status string

const (
	StatusPending Status = "pending"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// StatusOf derives the tri-state status of a report.
func StatusOf(r *models.Report) Status {
	switch {
	case !r.IsReady:
		return StatusPending
	case r.HasFile():
		return StatusReady
	default:
		return StatusError
	}
}
