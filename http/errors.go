package http

import "errors"

// ErrRateLimited is returned when a client exceeds its request rate.
var ErrRateLimited = errors.New("rate limit exceeded")

// ErrAlreadyRegistered is returned by RegisterRoutes on a second call.
var ErrAlreadyRegistered = errors.New("routes already registered")
