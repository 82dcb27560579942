package domain

import "context"

// ReceiverPort is the public surface exposed by the webhook module
type ReceiverPort interface {
	// Receive dispatches one verified event to its registered handler
	Receive(ctx context.Context, event Event) (Outcome, error)

	// ComplexityCheck computes the whole tree complexity change between two
	// commits and bands it into a check conclusion
	ComplexityCheck(ctx context.Context, projectSlug, before, after string) (CheckResult, error)
}
