package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultDispatched   = "dispatched"
	resultDropped      = "dropped"
	resultUnhandled    = "unhandled"
	resultQueued       = "queued"
	resultNotConnected = "not_connected"
	resultQueueFull    = "queue_full"
)

var (
	framesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chat_client",
		Subsystem: "socket",
		Name:      "frames_received_total",
		Help:      "Inbound socket frames by outcome.",
	}, []string{"result"})

	emits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chat_client",
		Subsystem: "socket",
		Name:      "emits_total",
		Help:      "Outbound events by name and outcome.",
	}, []string{"event", "result"})

	connects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chat_client",
		Subsystem: "socket",
		Name:      "connects_total",
		Help:      "Connections attached, reconnects included.",
	})

	handlerPanics = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chat_client",
		Subsystem: "socket",
		Name:      "handler_panics_total",
		Help:      "Recovered panics in event handlers.",
	}, []string{"event"})
)
