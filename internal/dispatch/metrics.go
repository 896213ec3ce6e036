package dispatch

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"eventping/internal/channel"
	"eventping/internal/db"
)

var (
	deliveriesTotal  *prometheus.CounterVec
	deliveryDuration *prometheus.HistogramVec
)

// InitPrometheusMetrics registers the delivery instruments. Call once
// at startup; dispatchers constructed without it (tests) skip
// observation.
func InitPrometheusMetrics() {
	deliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventping",
			Name:      "deliveries_total",
			Help:      "Total delivery attempts by tenant, channel and outcome.",
		},
		[]string{"user", "channel", "outcome"},
	)
	deliveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "eventping",
			Name:      "delivery_duration_seconds",
			Help:      "Histogram of outbound channel delivery durations in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"channel"},
	)
	prometheus.MustRegister(deliveriesTotal, deliveryDuration)
}

func observeDelivery(u *db.User, ch db.Channel, res channel.Result, elapsed time.Duration) {
	if deliveriesTotal == nil {
		return
	}
	outcome := "delivered"
	if !res.Success {
		outcome = "failed"
	}
	deliveriesTotal.WithLabelValues(strconv.Itoa(int(u.ID)), string(ch), outcome).Inc()
	deliveryDuration.WithLabelValues(string(ch)).Observe(elapsed.Seconds())
}
