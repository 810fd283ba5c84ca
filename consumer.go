package apicore

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// maxCredentialBody bounds the JSON body read while looking for credentials.
const maxCredentialBody = 16 << 10

// ConsumerStore returns the stored secret for a client ID.
// Implementations return an error wrapping ErrUnauthorized for unknown clients.
type ConsumerStore interface {
	Lookup(clientID string) (string, error)
}

// Credentials identify an API consumer.
type Credentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// ConsumerValidator decides whether the caller of the token endpoint is a
// known consumer.
type ConsumerValidator struct {
	store ConsumerStore
}

func NewConsumerValidator(store ConsumerStore) *ConsumerValidator {
	return &ConsumerValidator{store: store}
}

// IsValid reports whether r carries credentials of a known consumer.
// Credentials are read from HTTP Basic auth, or else from a JSON body.
func (v *ConsumerValidator) IsValid(r *http.Request) bool {
	creds, ok := CredentialsFromRequest(r)
	if !ok {
		slog.Debug("consumer validation: no credentials", "path", r.URL.Path)
		return false
	}

	stored, err := v.store.Lookup(creds.ClientID)
	if err != nil {
		slog.Debug("consumer validation: lookup failed", "client_id", creds.ClientID, "err", err)
		return false
	}

	match, err := VerifySecret(creds.ClientSecret, stored)
	if err != nil {
		slog.Warn("consumer validation: stored secret unreadable", "client_id", creds.ClientID, "err", err)
		return false
	}
	if !match {
		slog.Debug("consumer validation: secret mismatch", "client_id", creds.ClientID)
	}
	return match
}

// CredentialsFromRequest extracts consumer credentials. A JSON body is
// restored on the request after reading so later handlers can read it again.
func CredentialsFromRequest(r *http.Request) (Credentials, bool) {
	if id, secret, ok := r.BasicAuth(); ok {
		if id == "" || secret == "" {
			return Credentials{}, false
		}
		return Credentials{ClientID: id, ClientSecret: secret}, true
	}

	if r.Body == nil || !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return Credentials{}, false
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxCredentialBody))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(data))
	if err != nil {
		return Credentials{}, false
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, false
	}
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return Credentials{}, false
	}
	return creds, true
}
