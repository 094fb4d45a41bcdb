package simulation

import "fmt"

// ScenarioIsolationError records the failure of one scenario in a multi-scenario
// run. The other scenarios are unaffected; errors.As reaches the cause.
type ScenarioIsolationError struct {
	Scenario string
	Err      error
}

func (e *ScenarioIsolationError) Error() string {
	return fmt.Sprintf("scenario %s failed: %v", e.Scenario, e.Err)
}

func (e *ScenarioIsolationError) Unwrap() error { return e.Err }

// PanicError is a panic recovered from a scenario worker.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
