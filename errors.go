package attributex

import "errors"

// Error kinds. Reference resolution failures are usually reported as a false
// validity result rather than through these values; they exist for the write
// paths and for callers that want to distinguish causes.
var (
	ErrUnresolvedReference = errors.New("unresolved attribute reference")
	ErrTypeMismatch        = errors.New("field is not numeric")
	ErrMissingMetadata     = errors.New("missing attribute metadata")
	ErrDegenerateRange     = errors.New("degenerate clamp range")
	ErrUnknownAttribute    = errors.New("attribute not defined in container")
	ErrChangeDepthExceeded = errors.New("attribute change depth exceeded")
	ErrInvalidPath         = errors.New("invalid attribute path")
	ErrRuleAlreadyBound    = errors.New("rule already bound to a container")
)
