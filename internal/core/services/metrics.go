package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var notificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notifier_events_total",
		Help: "Helpdesk events processed by the notification pipeline, by event and result.",
	},
	[]string{"event", "result"},
)
