// Package observability exposes the Prometheus instrumentation of the
// session engine. Register must be called once at startup; every recording
// helper is a no-op before that, so tests never need a registry.
package observability

import (
	"errors"
	"sync"

	apperrors "poker-lab/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeRooms        prometheus.Gauge
	connectedUsers     prometheus.Gauge
	commandsTotal      *prometheus.CounterVec
	rejectionsTotal    *prometheus.CounterVec
	broadcastsTotal    *prometheus.CounterVec
	sessionsTerminated prometheus.Counter
	registerOnce       sync.Once
)

// Register initializes all metrics on the default registry.
func Register() {
	registerOnce.Do(func() {
		activeRooms = promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "poker",
			Name:      "active_rooms",
			Help:      "Number of live room sessions.",
		})
		connectedUsers = promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "poker",
			Name:      "connected_participants",
			Help:      "Participants currently joined across all rooms.",
		})
		commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "poker",
			Name:      "commands_total",
			Help:      "Room commands applied, by command and outcome.",
		}, []string{"command", "outcome"})
		rejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "poker",
			Name:      "rejections_total",
			Help:      "Rejected room commands, by reason.",
		}, []string{"reason"})
		broadcastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "poker",
			Name:      "broadcasts_total",
			Help:      "Broadcast events fanned out, by event type.",
		}, []string{"event"})
		sessionsTerminated = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "poker",
			Name:      "sessions_terminated_total",
			Help:      "Room sessions torn down after their grace period.",
		})
	})
}

func RoomOpened() {
	if activeRooms != nil {
		activeRooms.Inc()
	}
}

func RoomClosed() {
	if activeRooms != nil {
		activeRooms.Dec()
	}
}

func ParticipantJoined() {
	if connectedUsers != nil {
		connectedUsers.Inc()
	}
}

func ParticipantLeft() {
	if connectedUsers != nil {
		connectedUsers.Dec()
	}
}

// CommandApplied records one processed command and, when rejected, the
// rejection reason.
func CommandApplied(command string, err error) {
	if commandsTotal == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "rejected"
		rejectionsTotal.WithLabelValues(reason(err)).Inc()
	}
	commandsTotal.WithLabelValues(command, outcome).Inc()
}

func BroadcastDelivered(event string, subscribers int) {
	if broadcastsTotal != nil {
		broadcastsTotal.WithLabelValues(event).Add(float64(subscribers))
	}
}

func SessionTerminated() {
	if sessionsTerminated != nil {
		sessionsTerminated.Inc()
	}
}

func reason(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrForbidden):
		return "forbidden"
	case errors.Is(err, apperrors.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, apperrors.ErrConflict):
		return "conflict"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperrors.ErrBackpressure):
		return "backpressure"
	case errors.Is(err, apperrors.ErrMalformed):
		return "malformed"
	case errors.Is(err, apperrors.ErrInvalidEstimate):
		return "invalid_estimate"
	default:
		return "other"
	}
}
