package dispatch

import "codeberg.org/mutker/hdsim/internal/errors"

const (
	ErrNotRegistered     = errors.ErrorCode("dispatch_not_registered")
	ErrAlreadyRegistered = errors.ErrorCode("dispatch_already_registered")
	ErrShuttingDown      = errors.ErrorCode("dispatch_shutting_down")
	ErrShutdownTimeout   = errors.ErrTimeout
)

func init() {
	errors.RegisterMessage(ErrNotRegistered, "Application is not registered yet")
	errors.RegisterMessage(ErrAlreadyRegistered, "Application registration was already attempted")
	errors.RegisterMessage(ErrShuttingDown, "Dispatcher is shutting down")
}
