package engine

import (
	"time"

	"github.com/soyeahso/relay/internal/domain"
)

// Sink receives status events in emission order. Events are observational:
// the engine never reads them back.
type Sink interface {
	Publish(evt domain.StatusEvent)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(evt domain.StatusEvent)

// Publish calls f.
func (f SinkFunc) Publish(evt domain.StatusEvent) { f(evt) }

// MultiSink fans events out to several sinks in order.
type MultiSink []Sink

// Publish forwards the event to each sink.
func (m MultiSink) Publish(evt domain.StatusEvent) {
	for _, s := range m {
		s.Publish(evt)
	}
}

// emit builds a StatusEvent, forwards it to the sink, and records it on the
// execution context's ordered log.
func (e *Engine) emit(ec *executionContext, agentIndex int, phase domain.Phase, message string) {
	evt := domain.StatusEvent{
		AgentIndex: agentIndex,
		Phase:      phase,
		Message:    message,
		Timestamp:  time.Now(),
	}
	ec.events = append(ec.events, evt)
	if e.sink != nil {
		e.sink.Publish(evt)
	}
}
