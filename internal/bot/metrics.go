package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics структура для метрик Prometheus
type Metrics struct {
	UpdateProcessingTime prometheus.Histogram
	UpdatesTotal         *prometheus.CounterVec
	ResponsesTotal       *prometheus.CounterVec
	InvitationsSent      prometheus.Counter
	ErrorsTotal          prometheus.Counter
}

// NewMetrics registers the bot metrics on reg; nil means the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		UpdateProcessingTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "appointly_bot_update_processing_time_seconds",
			Help:    "Time spent processing updates",
			Buckets: prometheus.DefBuckets,
		}),
		UpdatesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "appointly_bot_updates_total",
			Help: "Telegram updates by kind",
		}, []string{"kind"}),
		ResponsesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "appointly_bot_attendee_responses_total",
			Help: "Invitation answers received through the bot",
		}, []string{"status"}),
		InvitationsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "appointly_bot_invitations_sent_total",
			Help: "Meeting invitations delivered to attendees",
		}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "appointly_bot_errors_total",
			Help: "Panics recovered in update handlers",
		}),
	}
}
