package http

import (
	"fmt"
	"net/http"

	"github.com/sagarc03/apicore"
)

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	CreateJWT(claims map[string]any) (string, error)
	Lifetime() int
}

// ConsumerChecker decides whether a request comes from a known consumer.
type ConsumerChecker interface {
	IsValid(r *http.Request) bool
}

// NewTokenAction returns the action behind POST /api/tokens.
//
// An unknown consumer gets an empty 401 JSON response and no token is
// created. A signing failure is returned as an error and becomes a 500.
func NewTokenAction(issuer TokenIssuer, consumers ConsumerChecker) apicore.Action {
	return func(ex apicore.Exchange) (apicore.Response, error) {
		if !consumers.IsValid(ex.Request) {
			return ex.Response.
				WithStatus(http.StatusUnauthorized).
				WithHeader("Content-Type", "application/json"), nil
		}

		claims := map[string]any{}
		if creds, ok := apicore.CredentialsFromRequest(ex.Request); ok {
			claims["sub"] = creds.ClientID
		}

		token, err := issuer.CreateJWT(claims)
		if err != nil {
			return ex.Response, fmt.Errorf("issue token: %w", err)
		}

		return ex.Response.WithStatus(http.StatusCreated).WithJSON(apicore.Token{
			AccessToken: token,
			TokenType:   apicore.TokenTypeBearer,
			ExpiresIn:   issuer.Lifetime(),
		})
	}
}
