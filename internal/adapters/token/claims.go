package token

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/fleet-cli/internal/domain"
	jwtlib "github.com/golang-jwt/jwt/v5"
)

var ErrUnreadableToken = errors.New("token payload unreadable")

// Claims reads an access token without verifying its signature. The fleet API
// is the only party that verifies; the client only needs identity and expiry.
func Claims(raw string) (jwtlib.MapClaims, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrUnreadableToken
	}

	parsed, _, err := jwtlib.NewParser().ParseUnverified(raw, jwtlib.MapClaims{})
	if err != nil {
		return nil, errors.Join(ErrUnreadableToken, err)
	}

	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, ErrUnreadableToken
	}
	return claims, nil
}

// DecodeUser derives a profile from the token payload. ok is false when the
// payload names nobody.
func DecodeUser(raw string) (domain.UserProfile, bool) {
	claims, err := Claims(raw)
	if err != nil {
		return domain.UserProfile{}, false
	}

	user := domain.UserProfile{
		ID:           firstString(claims, "user_id", "id", "sub"),
		Username:     firstString(claims, "username", "preferred_username"),
		Email:        firstString(claims, "email"),
		FirstName:    firstString(claims, "first_name", "given_name"),
		LastName:     firstString(claims, "last_name", "family_name"),
		Role:         firstString(claims, "role"),
		CustomerName: firstString(claims, "customer_Name", "customer_name"),
	}
	if user.IsZero() {
		return domain.UserProfile{}, false
	}
	return user, true
}

// ExpiresAt reports the exp claim. ok is false for unreadable tokens and for
// tokens that carry no expiry.
func ExpiresAt(raw string) (time.Time, bool) {
	claims, err := Claims(raw)
	if err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Expired treats unreadable tokens as expired and tokens without exp as
// valid. skew moves the deadline earlier.
func Expired(raw string, now time.Time, skew time.Duration) bool {
	if _, err := Claims(raw); err != nil {
		return true
	}

	exp, ok := ExpiresAt(raw)
	if !ok {
		return false
	}
	return !now.Before(exp.Add(-skew))
}

func firstString(claims jwtlib.MapClaims, keys ...string) string {
	for _, key := range keys {
		switch v := claims[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case nil:
		default:
			return fmt.Sprint(v)
		}
	}
	return ""
}
