package pipeline

import (
	"fmt"

	"github.com/banshee-data/tablepose/internal/vision"
	"github.com/banshee-data/tablepose/internal/vision/l5entities"
)

// Sink receives one assembled result per qualifying frame. It runs
// synchronously on the pipeline goroutine; sinks doing I/O should hand off
// to their own queue.
type Sink interface {
	HandleResult(res *l5entities.Result) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(res *l5entities.Result) error

// HandleResult calls f(res).
func (f SinkFunc) HandleResult(res *l5entities.Result) error { return f(res) }

type namedSink struct {
	name string
	sink Sink
}

// Dispatcher fans results out to registered sinks. A failing or panicking
// sink is logged and counted; it never stops the other sinks or the frame
// loop.
type Dispatcher struct {
	sinks []namedSink
	stats *Stats
}

// NewDispatcher returns a Dispatcher with no sinks.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Register adds a sink. Sinks are called in registration order.
func (d *Dispatcher) Register(name string, s Sink) {
	if s == nil {
		return
	}
	d.sinks = append(d.sinks, namedSink{name: name, sink: s})
}

// Len returns the number of registered sinks.
func (d *Dispatcher) Len() int {
	return len(d.sinks)
}

// Dispatch invokes every sink once with res and returns the sink failures,
// each wrapping vision.ErrCallback.
func (d *Dispatcher) Dispatch(res *l5entities.Result) []error {
	var errs []error
	for _, ns := range d.sinks {
		if err := callSink(ns, res); err != nil {
			opsf("frame %d: %v", res.Seq, err)
			if d.stats != nil {
				d.stats.SinkErrors.Add(1)
			}
			errs = append(errs, err)
		}
	}
	return errs
}

func callSink(ns namedSink, res *l5entities.Result) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink %q: %w: panic: %v", ns.name, vision.ErrCallback, r)
		}
	}()
	if serr := ns.sink.HandleResult(res); serr != nil {
		return fmt.Errorf("sink %q: %w: %w", ns.name, vision.ErrCallback, serr)
	}
	return nil
}
