// Package utils provides token minting and password hashing helpers.
package utils

import (
    "time"

    "github.com/golang-jwt/jwt/v5"

    "github.com/cmis-dev/event-registration/internal/model"
)

// AccessToken is a signed HS256 JWT together with its expiry.  Access
// tokens travel in the Authorization header on protected endpoints.
type AccessToken struct {
    Token string
    Exp   time.Time
}

// NewAccessToken builds and signs a JWT for a user.  Claims: subject
// (sub) is the user ID, role carries the user's role, plus standard
// exp and iat timestamps.
func NewAccessToken(secret string, userID uint64, role model.Role, ttlMin int) (AccessToken, error) {
    now := time.Now().UTC()
    exp := now.Add(time.Duration(ttlMin) * time.Minute)
    claims := jwt.MapClaims{
        "sub":  userID,
        "role": string(role),
        "exp":  exp.Unix(),
        "iat":  now.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}
