package metrics

import (
	"time"

	obserrors "github.com/rajapam/broker/internal/observability/errors"
	"github.com/rajapam/broker/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
	ResultDenied  = "denied"
)

// SessionMetric captures details about a session lifecycle event for metric emission.
type SessionMetric struct {
	Mode       string
	Transition string
	Result     string
	Duration   time.Duration
	Err        error
}

// EmitSessionLifecycle emits standardised session lifecycle metrics.
func EmitSessionLifecycle(sink statsd.Sink, in SessionMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"mode":       in.Mode,
		"transition": in.Transition,
		"result":     in.Result,
	}

	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("session.transition", 1, tags)

	if in.Duration > 0 {
		sink.Timing("session.duration", in.Duration, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map, filtering out empty keys.
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
