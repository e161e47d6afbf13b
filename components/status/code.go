package status

import "errors"

var (
	// StatusError indicates a failure of an operation.
	StatusError = errors.New("operation failed")

	// StatusInvalidState indicates that an operation can't be performed due to invalid state.
	StatusInvalidState = errors.New("invalid state")

	// StatusNotSupported indicates that an operation isn't supported.
	StatusNotSupported = errors.New("not implemented")

	// StatusNoData indicates that the requested data doesn't exist.
	StatusNoData = errors.New("no data")

	// StatusTimeout indicates that an operation wasn't completed in time.
	StatusTimeout = errors.New("timeout")

	// StatusConflict indicates that the resource already exists.
	StatusConflict = errors.New("already exists")

	// StatusStale indicates that the resource was modified concurrently.
	StatusStale = errors.New("version mismatch")

	// StatusInvalidArg indicates that an operation received malformed input.
	StatusInvalidArg = errors.New("invalid argument")
)
