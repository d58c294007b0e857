// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChannelReconnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_channel_reconnects_total",
			Help: "Total number of reconnect attempts scheduled per channel",
		},
		[]string{"channel"},
	)

	ChannelState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "realtime_channel_state",
			Help: "Current channel state (0 idle, 1 connecting, 2 open, 3 closed-will-retry, 4 closed-final)",
		},
		[]string{"channel"},
	)

	FramesDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_frames_dispatched_total",
			Help: "Total number of frames dispatched to subscribers by kind",
		},
		[]string{"kind"},
	)

	FramesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_frames_dropped_total",
			Help: "Total number of inbound frames dropped",
		},
		[]string{"reason"},
	)

	ToastsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_toasts_active",
			Help: "Number of toasts currently displayed",
		},
	)

	UnreadCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_unread_count",
			Help: "Currently displayed unread notification count",
		},
	)

	ChatMessagesMerged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_chat_messages_merged_total",
			Help: "Total number of live chat messages merged into a room list",
		},
		[]string{"room"},
	)
)
