package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	ErrMalformed   = errors.New("malformed token")
	ErrExpired     = errors.New("expired token")
	ErrUnsupported = errors.New("unsupported token")
	ErrEmptyClaims = errors.New("token has empty claims")
)

// Kind is the closed set of codec failure kinds the auth filter
// switches over.
type Kind int

const (
	KindNone Kind = iota
	KindMalformed
	KindExpired
	KindUnsupported
	KindEmptyClaims
	KindInternal
)

type Claims struct {
	Username  string `json:"username"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

func (c *Claims) IsAccess() bool {
	return c.TokenType == TypeAccess
}

type Codec struct {
	Secret []byte
	Issuer string
	Now    func() time.Time
}

func NewCodec(secret []byte, issuer string) *Codec {
	return &Codec{Secret: secret, Issuer: issuer}
}

func (c *Codec) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}

func (c *Codec) Create(username, tokenType string, validity time.Duration) (string, error) {
	now := c.now()
	claims := Claims{
		Username:  username,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
	}
	if tokenType == TypeRefresh {
		claims.ID = uuid.NewString()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.Secret)
}

// Parse verifies the signature and structure of a token. Expiry is not
// validated here: the filter orders its type and expiry checks itself,
// and an expired but well-formed access token must still classify as
// access-type.
func (c *Codec) Parse(tokenStr string) (*Claims, error) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrUnsupported
		}
		return c.Secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, ErrMalformed
	}
	if claims.Username == "" {
		return nil, ErrEmptyClaims
	}
	return &claims, nil
}

func (c *Codec) Subject(tokenStr string) (string, error) {
	claims, err := c.Parse(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Username, nil
}

// IsExpired treats an unparseable token as expired: a token we cannot
// verify is never usable.
func (c *Codec) IsExpired(tokenStr string) bool {
	claims, err := c.Parse(tokenStr)
	if err != nil {
		return true
	}
	return c.Expired(claims)
}

func (c *Codec) Expired(claims *Claims) bool {
	if claims.ExpiresAt == nil {
		return true
	}
	return claims.ExpiresAt.Time.Before(c.now())
}

func (c *Codec) IsAccessToken(tokenStr string) bool {
	claims, err := c.Parse(tokenStr)
	if err != nil {
		return false
	}
	return claims.IsAccess()
}

// IsRefreshDue reports whether a token has passed the half of its
// validity window. Used on access tokens to decide a silent reissue.
func (c *Codec) IsRefreshDue(tokenStr string) bool {
	claims, err := c.Parse(tokenStr)
	if err != nil {
		return false
	}
	return c.RefreshDue(claims)
}

func (c *Codec) RefreshDue(claims *Claims) bool {
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return false
	}
	issued := claims.IssuedAt.Time
	halfLife := claims.ExpiresAt.Time.Sub(issued) / 2
	return !c.now().Before(issued.Add(halfLife))
}

// Classify maps a Parse error to its kind.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrEmptyClaims):
		return KindEmptyClaims
	case errors.Is(err, ErrUnsupported), errors.Is(err, jwt.ErrTokenUnverifiable):
		return KindUnsupported
	case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, ErrExpired):
		return KindExpired
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, ErrMalformed):
		return KindMalformed
	default:
		return KindInternal
	}
}
