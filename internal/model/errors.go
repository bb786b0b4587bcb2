package model

import "codeberg.org/mutker/hdsim/internal/errors"

const (
	ErrMissingField = errors.ErrorCode("model_missing_field")
	ErrEncode       = errors.ErrorCode("model_encode_failed")
	ErrDecode       = errors.ErrorCode("model_decode_failed")
)

func init() {
	errors.RegisterMessage(ErrMissingField, "Required field is empty")
	errors.RegisterMessage(ErrEncode, "Failed to encode payload")
	errors.RegisterMessage(ErrDecode, "Failed to decode payload")
}
