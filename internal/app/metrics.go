package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricSessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "live_sessions_created_total",
		Help: "Total live sessions created",
	})

	metricSessionsEnded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "live_sessions_ended_total",
		Help: "Total live sessions ended",
	}, []string{"reason"})

	metricSignalsRelayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "live_signals_relayed_total",
		Help: "Signaling payloads forwarded to a connected target",
	}, []string{"kind"})

	metricSignalsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "live_signals_failed_total",
		Help: "Signaling payloads that could not be delivered",
	}, []string{"kind"})

	metricChatActivity = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "live_chat_activity_total",
		Help: "Chat messages logged per message type",
	}, []string{"message_type"})

	metricEditorOps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "live_editor_operations_total",
		Help: "Synchronized editor operations relayed",
	})

	metricConnectedUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "live_connected_users",
		Help: "Users with a registered live connection",
	})

	metricInvitations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "live_invitations_total",
		Help: "Invitation workflow transitions",
	}, []string{"action"})
)
