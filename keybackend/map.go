// Package keybackend provides ConsumerStore implementations for client credential lookup.
package keybackend

import (
	"fmt"

	"github.com/sagarc03/apicore"
)

// MapConsumerStore looks consumers up in an in-memory map.
type MapConsumerStore struct {
	secrets map[string]string
}

// NewMapConsumerStore creates a store from a client id to stored secret mapping.
// Stored secrets may be plain or argon2id hashes.
func NewMapConsumerStore(secrets map[string]string) *MapConsumerStore {
	return &MapConsumerStore{secrets: secrets}
}

// Lookup returns the stored secret for clientID.
func (s *MapConsumerStore) Lookup(clientID string) (string, error) {
	secret, found := s.secrets[clientID]
	if !found {
		return "", fmt.Errorf("%w: %w", ErrConsumerNotFound, apicore.ErrUnauthorized)
	}
	return secret, nil
}

// Len returns the number of known consumers.
func (s *MapConsumerStore) Len() int {
	return len(s.secrets)
}
