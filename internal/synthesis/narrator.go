// Package synthesis turns a numeric analysis result into a narrative, either
// by prompting an external language model or from deterministic templates.
package synthesis

import (
	"context"
	"errors"

	"github.com/attunelabs/attune/internal/analysis"
	"github.com/attunelabs/attune/internal/synthesis/breaker"
)

// Status reports the narrator's health surface.
type Status struct {
	RemoteEnabled bool          `json:"remote_enabled"`
	CircuitState  breaker.State `json:"circuit_state"`
	FailureCount  int           `json:"failure_count"`
}

// Narrator chooses between the remote and fallback strategies. The remote
// path is guarded by a circuit breaker; while the breaker refuses calls the
// fallback templates serve instead.
type Narrator struct {
	remote   analysis.Synthesizer
	fallback *Fallback
	circuit  *breaker.Breaker
	logf     func(format string, args ...any)
}

// NewNarrator builds a narrator. A nil remote disables the remote strategy
// entirely and every narrative comes from the fallback templates.
func NewNarrator(remote analysis.Synthesizer, circuit *breaker.Breaker, logf func(format string, args ...any)) *Narrator {
	if circuit == nil {
		circuit = breaker.New()
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Narrator{
		remote:   remote,
		fallback: NewFallback(),
		circuit:  circuit,
		logf:     logf,
	}
}

// Synthesize produces a narrative for the result. Remote failures count
// against the breaker and surface as errors rather than being silently
// replaced; only a refusing breaker (or a disabled remote) routes to the
// fallback templates.
func (n *Narrator) Synthesize(ctx context.Context, result *analysis.GroupAnalysisResult) (analysis.Narrative, error) {
	if n.remote == nil {
		return n.fallback.Synthesize(ctx, result)
	}
	if err := n.circuit.Allow(); err != nil {
		if errors.Is(err, breaker.ErrOpen) {
			n.logf("synthesis circuit is %s, serving fallback narrative", n.circuit.State())
			return n.fallback.Synthesize(ctx, result)
		}
		return analysis.Narrative{}, err
	}
	narrative, err := n.remote.Synthesize(ctx, result)
	if err != nil {
		n.circuit.RecordFailure()
		return analysis.Narrative{}, err
	}
	n.circuit.RecordSuccess()
	return narrative, nil
}

// Status exposes the circuit state and failure count for health checks.
func (n *Narrator) Status() Status {
	return Status{
		RemoteEnabled: n.remote != nil,
		CircuitState:  n.circuit.State(),
		FailureCount:  n.circuit.Failures(),
	}
}

var _ analysis.Synthesizer = (*Narrator)(nil)
