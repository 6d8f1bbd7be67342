package gate

import "errors"

// ErrDenied is returned by Gate.Authorize for any denied check: invalid
// subject, missing permission, or failed resource policy.
var ErrDenied = errors.New("access denied")
