package hds

import "codeberg.org/mutker/hdsim/internal/errors"

const (
	ErrInvalidBaseURL = errors.ErrorCode("hds_invalid_base_url")
	ErrTransport      = errors.ErrorCode("hds_transport_failed")
	ErrSerialization  = errors.ErrorCode("hds_serialization_failed")
)

func init() {
	errors.RegisterMessage(ErrInvalidBaseURL, "Invalid HDS base address")
	errors.RegisterMessage(ErrTransport, "HDS request failed")
	errors.RegisterMessage(ErrSerialization, "Failed to serialize HDS payload")
}

// IsTransport reports whether err is a transport-level failure.
func IsTransport(err error) bool {
	return errors.HasCode(err, ErrTransport)
}

// IsSerialization reports whether err is a payload encoding failure.
func IsSerialization(err error) bool {
	return errors.HasCode(err, ErrSerialization)
}
