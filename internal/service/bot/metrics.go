package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"uk.co.dudmesh.viberrelay/internal/model"
)

var (
	messagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "viberrelay",
		Name:      "messages_sent_total",
		Help:      "Outbound messages by type and result.",
	}, []string{"type", "result"})

	probes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "viberrelay",
		Name:      "probes_total",
		Help:      "Liveness probes by resulting status.",
	}, []string{"status"})

	remoteDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "viberrelay",
		Name:      "remote_call_duration_seconds",
		Help:      "Latency of platform API calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	botsByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "viberrelay",
		Name:      "bots",
		Help:      "Registered bots by status.",
	}, []string{"status"})

	inboundEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "viberrelay",
		Name:      "inbound_events_total",
		Help:      "Webhook callbacks observed for registered bots.",
	}, []string{"event"})
)

func trackTransition(from, to model.BotStatus) {
	if from == to {
		return
	}
	botsByStatus.WithLabelValues(from.String()).Dec()
	botsByStatus.WithLabelValues(to.String()).Inc()
}

func sendResultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return model.ErrorCode(err)
}
