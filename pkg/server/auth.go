package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthorized is returned when a request carries no usable identity
var ErrUnauthorized = errors.New("unauthorized")

// Authenticator resolves a bearer token to a user id. Session management
// proper is an external collaborator; this is only the hand-off point.
type Authenticator interface {
	UserForToken(ctx context.Context, token string) (string, error)
}

// StaticTokenAuthenticator resolves tokens from a fixed map, typically
// loaded from configuration
type StaticTokenAuthenticator struct {
	tokens map[string]string
}

// NewStaticTokenAuthenticator creates an authenticator over a
// token-to-user-id map
func NewStaticTokenAuthenticator(tokens map[string]string) *StaticTokenAuthenticator {
	return &StaticTokenAuthenticator{tokens: tokens}
}

// UserForToken resolves the user id for a token
func (a *StaticTokenAuthenticator) UserForToken(_ context.Context, token string) (string, error) {
	userID, ok := a.tokens[token]
	if !ok {
		return "", ErrUnauthorized
	}
	return userID, nil
}

// bearerToken extracts the bearer token from a request
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrUnauthorized
	}

	token := strings.TrimPrefix(header, "Bearer ")
	if token == header || token == "" {
		return "", ErrUnauthorized
	}

	return token, nil
}

// userFromRequest extracts and resolves the bearer token on a request
func userFromRequest(auth Authenticator, r *http.Request) (string, error) {
	token, err := bearerToken(r)
	if err != nil {
		return "", err
	}
	return auth.UserForToken(r.Context(), token)
}
