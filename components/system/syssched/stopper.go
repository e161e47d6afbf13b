package syssched

// Stopper implementation should free all allocated resources.
type Stopper interface {
	// Stop stops the resource.
	//
	// Remarks:
	//  - Implementation should block until the resource is fully stopped.
	//  - Implementation should be idempotent.
	Stop() error
}
