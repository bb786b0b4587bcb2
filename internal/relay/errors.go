package relay

import "codeberg.org/mutker/hdsim/internal/errors"

const ErrClosed = errors.ErrorCode("relay_closed")

func init() {
	errors.RegisterMessage(ErrClosed, "Relay is closed")
}
