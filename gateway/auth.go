package gateway

import (
	"errors"
	"strconv"
	"strings"

	"chat-gateway/utils"
)

// Identity is the participant bound to an authenticated connection.
type Identity struct {
	ID     uint    `json:"id"`
	Name   string  `json:"name"`
	Avatar string  `json:"avatar"`
	Rating float64 `json:"rating"`
}

// Credentials are the places a client may present its bearer token at handshake.
type Credentials struct {
	// Auth is the handshake auth object; the token lives under "token".
	Auth map[string]any
	// Header is the raw Authorization header.
	Header string
	// Query is the legacy "token" query parameter.
	Query string
}

var errNoCredential = errors.New("no bearer credential presented")

// Authenticator verifies handshake credentials.
type Authenticator struct {
	key []byte
}

func NewAuthenticator(key []byte) *Authenticator {
	return &Authenticator{key: key}
}

// Authenticate returns the identity carried by the first credential found.
// Every failure is Unauthenticated.
func (a *Authenticator) Authenticate(creds Credentials) (*Identity, error) {
	token := bearerToken(creds)
	if token == "" {
		return nil, newError(CodeUnauthenticated, ErrUnauthenticated.Message, errNoCredential)
	}

	claims, err := utils.CheckAndExtractTokenMetadata(token, a.key)
	if err != nil {
		return nil, newError(CodeUnauthenticated, "invalid token", err)
	}
	if claims.Otp {
		return nil, newError(CodeUnauthenticated, "second factor pending", nil)
	}
	id, err := strconv.ParseUint(claims.Id, 10, 64)
	if err != nil || id == 0 {
		return nil, newError(CodeUnauthenticated, "invalid token", utils.ErrInvalidClaims)
	}

	return &Identity{
		ID:     uint(id),
		Name:   claims.Name,
		Avatar: claims.Avatar,
		Rating: claims.Rating,
	}, nil
}

func bearerToken(creds Credentials) string {
	if raw, ok := creds.Auth["token"].(string); ok {
		if token := strings.TrimSpace(strings.TrimPrefix(raw, "Bearer ")); token != "" {
			return token
		}
	}

	if scheme, token, ok := strings.Cut(strings.TrimSpace(creds.Header), " "); ok && strings.EqualFold(scheme, "Bearer") {
		if token = strings.TrimSpace(token); token != "" {
			return token
		}
	}

	return strings.TrimSpace(creds.Query)
}
