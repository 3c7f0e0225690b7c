package jd

import "errors"

// Fetch failure kinds. Callers branch on these to decide fetch_status.
var (
	ErrFetchTimeout   = errors.New("fetch timed out")
	ErrFetchForbidden = errors.New("fetch forbidden")
	ErrEmptyBody      = errors.New("empty response body")
)
