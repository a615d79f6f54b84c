// Package metrics exports conversation and relay counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/Doe880/telegram-feedback-bot1/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns the bot's metrics on a dedicated registry.
type Recorder struct {
	registry      *prometheus.Registry
	transitions   *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	submissions   *prometheus.CounterVec
	relays        *prometheus.CounterVec
	relayFailures prometheus.Counter
}

// NewRecorder creates a recorder. Go runtime and process collectors are
// registered alongside the bot metrics.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feedback_transitions_total",
				Help: "Conversation state transitions",
			},
			[]string{"from", "to"},
		),
		rejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feedback_rejections_total",
				Help: "Inputs refused without a state change",
			},
			[]string{"state", "reason"},
		),
		submissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feedback_submissions_total",
				Help: "Finalization attempts by message type and outcome",
			},
			[]string{"type", "outcome"},
		),
		relays: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feedback_relays_total",
				Help: "Record deliveries to administrators",
			},
			[]string{"outcome"},
		),
		relayFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "feedback_relay_failures_total",
				Help: "Record deliveries that failed",
			},
		),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Hooks returns lifecycle hooks that feed the recorder.
func (r *Recorder) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			r.transitions.WithLabelValues(string(e.From), string(e.To)).Inc()
		},
		OnReject: func(_ context.Context, e *domain.RejectionEvent) {
			r.rejections.WithLabelValues(string(e.State), RejectionReason(e.Err)).Inc()
		},
		OnSubmit: func(_ context.Context, e *domain.SubmissionEvent) {
			r.submissions.WithLabelValues(string(e.Record.Type), SubmissionOutcome(e.Err)).Inc()
		},
		OnRelay: func(_ context.Context, e *domain.RelayEvent) {
			if e.Err != nil {
				r.relays.WithLabelValues("failed").Inc()
				r.relayFailures.Inc()
				return
			}
			r.relays.WithLabelValues("delivered").Inc()
		},
	}
}

// RejectionReason reduces a refusal to a low-cardinality label.
func RejectionReason(err error) string {
	var (
		rej   *domain.ValidationRejection
		guard *domain.GuardViolation
		stale *domain.StaleHistoryError
		att   *domain.AttachmentError
	)
	switch {
	case errors.As(err, &rej):
		return rej.Reason
	case errors.As(err, &guard):
		return guard.Rule
	case errors.As(err, &stale):
		return "stale_history"
	case errors.As(err, &att):
		if att.Unsupported() {
			return "unsupported_file"
		}
		return "attachment_io"
	}
	return "other"
}

// SubmissionOutcome labels the result of a finalization.
func SubmissionOutcome(err error) string {
	var (
		incomplete *domain.IncompleteSubmissionError
		guard      *domain.GuardViolation
		storage    *domain.StorageError
	)
	switch {
	case err == nil:
		return "stored"
	case errors.As(err, &incomplete):
		return "incomplete"
	case errors.As(err, &guard):
		return "guard"
	case errors.As(err, &storage):
		return "storage_error"
	}
	return "error"
}
