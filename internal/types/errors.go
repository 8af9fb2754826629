package types

import "errors"

// ErrRiskParamsInvalid flags a risk parameter set that fails validation.
var ErrRiskParamsInvalid = errors.New("risk parameters are invalid")
