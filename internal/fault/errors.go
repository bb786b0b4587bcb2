package fault

import "codeberg.org/mutker/hdsim/internal/errors"

const ErrUnknownCategory = errors.ErrorCode("fault_unknown_category")

func init() {
	errors.RegisterMessage(ErrUnknownCategory, "Unknown fault category")
}
