package stkv

const (
	// TargetBucket holds ping.Target blobs.
	TargetBucket = "ping_target"

	// ResultBucket holds ping.Result blobs.
	ResultBucket = "ping_result"

	// AlertStateBucket holds ping.AlertState blobs.
	AlertStateBucket = "alert_state"
)
