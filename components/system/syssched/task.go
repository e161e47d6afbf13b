package syssched

import "context"

// Task represents an entity of the execution.
type Task interface {
	// Run executes a single operational loop.
	//
	// Remarks:
	//  - ctx is canceled when the runner is stopped.
	Run(ctx context.Context) error
}
