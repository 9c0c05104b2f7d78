// Package workflow walks booking workflow graphs and decides which workflows a booking event triggers.
package workflow

import "errors"

var (
	// ErrIterationLimit is returned when a run visits more nodes than the engine allows.
	ErrIterationLimit = errors.New("iteration limit exceeded")

	// ErrExecutionCancelled is returned when the caller's context ends mid-run.
	ErrExecutionCancelled = errors.New("execution cancelled")

	// ErrInvalidNodeConfig marks node data the engine cannot act on.
	ErrInvalidNodeConfig = errors.New("invalid node configuration")

	// ErrRecipientMissing is returned when a notification has nobody to address.
	ErrRecipientMissing = errors.New("notification recipient missing")

	// ErrConditionEvaluation wraps failures compiling or running a condition.
	ErrConditionEvaluation = errors.New("condition evaluation failed")

	// ErrNodePanicked wraps a panic raised while running a node.
	ErrNodePanicked = errors.New("node panicked")
)
