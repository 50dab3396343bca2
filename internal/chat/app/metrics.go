package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var inboundEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "chat_client",
	Subsystem: "store",
	Name:      "inbound_events_total",
	Help:      "Inbound gateway events by name and outcome.",
}, []string{"event", "result"})
