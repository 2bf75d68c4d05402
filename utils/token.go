package utils

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidClaims = errors.New("token claims are invalid")

// TokenMetadata struct to describe metadata in JWT.
type TokenMetadata struct {
	Id     string
	Name   string
	Avatar string
	Rating float64
	Otp    bool
	Exp    int64
}

// GenerateToken signs an access token for the given metadata. Login lives in
// the marketplace API; the gateway uses this for tooling and tests.
func GenerateToken(meta TokenMetadata, key []byte, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{}

	claims["id"] = meta.Id
	claims["name"] = meta.Name
	claims["avatar"] = meta.Avatar
	claims["rating"] = meta.Rating
	claims["otp"] = meta.Otp
	claims["exp"] = time.Now().Add(ttl).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	return token.SignedString(key)
}

// CheckAndExtractTokenMetadata verifies signature and expiry and decodes the claims.
func CheckAndExtractTokenMetadata(token string, key []byte) (*TokenMetadata, error) {
	t, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return key, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok || !t.Valid {
		return nil, ErrInvalidClaims
	}

	id, err := claimID(claims["id"])
	if err != nil {
		return nil, err
	}

	meta := &TokenMetadata{Id: id}
	meta.Name, _ = claims["name"].(string)
	meta.Avatar, _ = claims["avatar"].(string)
	meta.Rating, _ = claims["rating"].(float64)
	meta.Otp, _ = claims["otp"].(bool)
	if exp, ok := claims["exp"].(float64); ok {
		meta.Exp = int64(exp)
	}
	return meta, nil
}

func claimID(raw interface{}) (string, error) {
	switch v := raw.(type) {
	case string:
		if v != "" {
			return v, nil
		}
	case float64:
		if v > 0 {
			return strconv.FormatUint(uint64(v), 10), nil
		}
	}
	return "", fmt.Errorf("%w: missing id", ErrInvalidClaims)
}
