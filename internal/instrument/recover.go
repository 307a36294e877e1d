package instrument

import (
	"fmt"
	"runtime/debug"

	"github.com/GriffinCanCode/telemetry/internal/telemetry/report"
)

// CapturePanic forwards an in-flight panic to the error reporter and stops
// it from unwinding further. Use in deferred position at goroutine tops:
//
//	defer instrument.CapturePanic(reporter)
//
// Panics go to the reporter, not straight to span creation, so
// classification stays centralized.
func CapturePanic(reporter *report.Reporter) {
	if r := recover(); r != nil {
		reporter.Report(fmt.Errorf("panic: %v", r), map[string]any{
			"stack": string(debug.Stack()),
		})
	}
}

// Go runs fn on a new goroutine with panic capture attached, the analog of
// a global unhandled-rejection hook for fire-and-forget work.
func Go(reporter *report.Reporter, fn func()) {
	go func() {
		defer CapturePanic(reporter)
		fn()
	}()
}
