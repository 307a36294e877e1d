/*
Package resilience provides a circuit breaker for the export transport.

# Overview

When the collector is down, every batch transmission would otherwise ride out
its full request timeout before the pipeline requeues and reschedules. The
breaker trips after consecutive transmission failures so subsequent batch
cycles fail fast, and probes the collector again after a cool-off period.

# States

  - Closed: transmissions pass through; failures are counted
  - Open: transmissions are rejected immediately with ErrCircuitOpen
  - Half-open: a limited number of probe transmissions are allowed; success
    closes the breaker, failure re-opens it

# Usage

	breaker := resilience.New("collector", resilience.Settings{
		Timeout: 30 * time.Second,
	})

	err := breaker.Execute(func() error {
		return transport.send(batch)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		// collector known-down, batch requeued without a network attempt
	}
*/
package resilience
