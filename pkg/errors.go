package pkg

import "errors"

var (
	ErrMalformedExpression    = errors.New("malformed dice expression")
	ErrUnknownDieSize         = errors.New("unknown die size")
	ErrInvalidConnectors      = errors.New("invalid connectors")
	ErrDropCountExceedsRolls  = errors.New("drop count must be less than the number of rolls")
	ErrThresholdUnreachable   = errors.New("reroll threshold is equal to or exceeds the max possible roll")
	ErrRerollAttemptsExceeded = errors.New("reroll attempts exceeded")
	ErrNormalization          = errors.New("request could not be normalized")

	ErrFaceNotPresent = errors.New("face not present on die")
	ErrEmptyFaceSet   = errors.New("every face was excluded")
	ErrRepeatLimit    = errors.New("repeat roll limit exceeded")
	ErrOutOfRange     = errors.New("value out of range")

	ErrOddsUnsupported = errors.New("odds are only available without dropLowest or rerollTotal")
)

// IsRequestError reports whether err was caused by the request itself rather
// than an internal failure.
func IsRequestError(err error) bool {
	for _, target := range []error{
		ErrMalformedExpression,
		ErrUnknownDieSize,
		ErrInvalidConnectors,
		ErrDropCountExceedsRolls,
		ErrThresholdUnreachable,
		ErrRerollAttemptsExceeded,
		ErrNormalization,
		ErrFaceNotPresent,
		ErrEmptyFaceSet,
		ErrRepeatLimit,
		ErrOutOfRange,
		ErrOddsUnsupported,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
