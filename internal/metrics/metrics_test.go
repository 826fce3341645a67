package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestReportMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewReportMetrics(reg)
	m.ObserveJob("finance", "ready", 0.2)
	m.ObserveJob("finance", "retried", 0.1)
	m.ObserveJob("finance", "retried", 0.1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.jobsTotal.WithLabelValues("finance", "retried")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobsTotal.WithLabelValues("finance", "ready")))
}

func TestBookingAndNotificationMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	b := NewBookingMetrics(reg)
	n := NewNotificationMetrics(reg)

	b.ObserveBooking("created")
	b.ObserveTransition("pending", "approved")
	n.ObserveSend("sms", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(b.bookingsTotal.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(n.sentTotal.WithLabelValues("sms", "failed")))
}

func TestMetricsNilSafe(t *testing.T) {
	var r *ReportMetrics
	var b *BookingMetrics
	var n *NotificationMetrics
	r.ObserveJob("activity", "failed", 1)
	b.ObserveBooking("rejected")
	b.ObserveTransition("approved", "completed")
	n.ObserveSend("email", true)
}

func TestHandlerExposesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewBookingMetrics(reg).ObserveBooking("created")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "smart_health_appointments_bookings_total")
}
