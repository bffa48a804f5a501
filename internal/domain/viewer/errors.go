package viewer

import "errors"

// ErrForbidden indicates the resolved role does not permit the action.
var ErrForbidden = errors.New("viewer role does not permit this action")
