package conversation

import "errors"

var (
	// ErrOnboardingRequired halts Start until the user has picked a
	// business type through Onboarding.
	ErrOnboardingRequired = errors.New("onboarding required")
	ErrInvalidState       = errors.New("operation not allowed in current state")
	ErrEmptyInput         = errors.New("input is empty")
	ErrUnknownBusiness    = errors.New("unknown business")
	ErrUnknownTopic       = errors.New("unknown topic")
	ErrUnknownType        = errors.New("unknown business type")
	// ErrReplyFailed wraps gateway failures. The user's message is kept.
	ErrReplyFailed = errors.New("advisor reply failed")
)
