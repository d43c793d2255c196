package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus collectors exposed on the /metrics endpoint.
var (
	// VoiceEvents counts processed voice state transitions by type
	// (join, leave, move, status, noop).
	VoiceEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicetime_voice_events_total",
		Help: "Voice state transitions processed, by transition type.",
	}, []string{"transition"})

	// StoreErrors counts failed activity store operations.
	StoreErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicetime_store_errors_total",
		Help: "Activity store operations that returned an error.",
	})

	// Commands counts command invocations by command name.
	Commands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicetime_commands_total",
		Help: "Command invocations, by command name.",
	}, []string{"command"})
)
