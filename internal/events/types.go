package events

// Event enumerates topics published around the decision engine.
type Event string

const (
	// EventDecision carries an engine.Decision after every run.
	EventDecision Event = "decision"
	// EventProductFailed carries an engine.ProductResult whose Err is set.
	EventProductFailed Event = "product.failed"
	// EventSimulationStep carries a sim.Step from the local simulator.
	EventSimulationStep Event = "simulation.step"
)
