package engine

import "fmt"

// ConfigError is raised during Pipeline construction: a cycle, an
// unresolved source, an ambiguous producer, or a duplicate node id.
// Fatal — the caller must not start the engine with one in hand.
// Grounded on spec.md §7's error taxonomy.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "config error: " + e.Reason }

func newConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// DataInsufficient and NumericError are runtime, per-node conditions.
// Neither aborts Calculate(). A node whose calculate() returns an error
// is logged at debug level and emits nothing; a NaN result is recorded as
// a numeric error but is still emitted in the batch (and not written to
// the store). They are exported as sentinel-ish types
// only so tests can assert on the kind of failure a node hit; production
// code never propagates them past the worker loop.
type DataInsufficient struct {
	Node   string
	Reason string
}

func (e *DataInsufficient) Error() string {
	return fmt.Sprintf("data insufficient for node %s: %s", e.Node, e.Reason)
}

type NumericError struct {
	Node   string
	Reason string
}

func (e *NumericError) Error() string {
	return fmt.Sprintf("numeric error in node %s: %s", e.Node, e.Reason)
}
