// Package notify holds NotificationSink implementations. Delivery
// formatting and user-facing content belong to the notification service;
// this server only hands events over.
package notify

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"github.com/skillswap/live/internal/domain"
)

var metricNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "live_notifications_total",
	Help: "Notifications handed to the sink per kind",
}, []string{"kind"})

// LogSink logs the notification and counts it. It stands in for the real
// notification service client; both are fire-and-forget.
type LogSink struct{}

func NewLogSink() *LogSink { return &LogSink{} }

func (LogSink) Notify(_ context.Context, to domain.UserID, kind string, payload map[string]any) {
	metricNotifications.WithLabelValues(kind).Inc()
	log.Info().
		Str("module", "notify").
		Str("to", string(to)).
		Str("kind", kind).
		Interface("payload", payload).
		Msg("notification")
}
