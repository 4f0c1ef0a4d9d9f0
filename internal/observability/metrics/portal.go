package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	obserrors "github.com/hostelhub/portal/internal/observability/errors"
	"github.com/hostelhub/portal/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess   = "success"
	ResultRejected  = "rejected"
	ResultThrottled = "throttled"
	ResultError     = "error"
)

// DecisionMetric captures one access gate evaluation.
type DecisionMetric struct {
	Outcome   string
	Reason    string
	Protected bool
	Duration  time.Duration
	Err       error
}

// AuthMetric captures one sign-in or sign-up attempt.
type AuthMetric struct {
	Flow   string
	Result string
	Err    error
}

// Recorder fans portal metrics out to StatsD and Prometheus. Either side may be absent.
type Recorder struct {
	sink statsd.Sink

	decisions        *prometheus.CounterVec
	decisionDuration *prometheus.HistogramVec
	authAttempts     *prometheus.CounterVec
}

// RecorderOptions configures NewRecorder.
type RecorderOptions struct {
	Sink      statsd.Sink
	Registry  prometheus.Registerer
	Namespace string
}

// NewRecorder registers the portal collectors on opts.Registry when one is provided.
func NewRecorder(opts RecorderOptions) *Recorder {
	r := &Recorder{sink: opts.Sink}
	if opts.Registry == nil {
		return r
	}
	ns := opts.Namespace
	if ns == "" {
		ns = "hostel"
	}
	factory := promauto.With(opts.Registry)
	r.decisions = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Subsystem: "gate",
		Name:      "decisions_total",
		Help:      "Access gate decisions by outcome and reason.",
	}, []string{"outcome", "reason"})
	r.decisionDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Subsystem: "gate",
		Name:      "decision_duration_seconds",
		Help:      "Time spent resolving identity and role per request.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"protected"})
	r.authAttempts = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Subsystem: "auth",
		Name:      "attempts_total",
		Help:      "Sign-in and sign-up attempts by result.",
	}, []string{"flow", "result"})
	return r
}

// RecordDecision emits the gate decision counter and duration.
func (r *Recorder) RecordDecision(in DecisionMetric) {
	if r == nil {
		return
	}
	protected := "false"
	if in.Protected {
		protected = "true"
	}
	if r.decisions != nil {
		r.decisions.WithLabelValues(in.Outcome, in.Reason).Inc()
		r.decisionDuration.WithLabelValues(protected).Observe(in.Duration.Seconds())
	}
	if r.sink == nil {
		return
	}

	tags := map[string]string{
		"outcome":   in.Outcome,
		"reason":    in.Reason,
		"protected": protected,
	}
	if class := obserrors.Classify(in.Err); class != "" {
		tags["error_class"] = class
	}
	r.sink.Count("gate.decision", 1, tags)
	if in.Duration > 0 {
		r.sink.Timing("gate.duration", in.Duration, CloneTags(tags))
	}
}

// RecordAuth emits a sign-in or sign-up attempt.
func (r *Recorder) RecordAuth(in AuthMetric) {
	if r == nil {
		return
	}
	if r.authAttempts != nil {
		r.authAttempts.WithLabelValues(in.Flow, in.Result).Inc()
	}
	if r.sink == nil {
		return
	}
	tags := map[string]string{"flow": in.Flow, "result": in.Result}
	if in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}
	r.sink.Count("auth.attempt", 1, tags)
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
