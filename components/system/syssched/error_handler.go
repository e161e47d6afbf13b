package syssched

// ErrorHandler handles errors.
type ErrorHandler interface {
	// HandleError handles error.
	HandleError(err error)
}

// FuncErrorHandler is a function type that implements the ErrorHandler interface.
type FuncErrorHandler func(err error)

// HandleError calls the function itself to fulfill the ErrorHandler interface.
func (f FuncErrorHandler) HandleError(err error) {
	f(err)
}
