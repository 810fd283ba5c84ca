package keybackend

import "errors"

// ErrConsumerNotFound is returned when the client id does not exist in the store.
var ErrConsumerNotFound = errors.New("consumer not found")
