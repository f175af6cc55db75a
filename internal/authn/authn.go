// Package authn validates bearer tokens issued by an external identity provider.
package authn

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/mooover/mooover-services/internal/apperr"
)

const (
	MsgHeaderMissing  = "authorization header missing"
	MsgNotBearer      = "authorization header must be of type bearer"
	MsgTokenExpired   = "token is expired"
	MsgInvalidClaims  = "invalid claims, check audience and issuer"
	MsgInvalidToken   = "token is invalid"
	MsgMalformedToken = "unable to parse authentication token"
)

// Audience accepts both the string and the array form of the aud claim.
type Audience []string

func (a *Audience) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*a = Audience{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*a = many
	return nil
}

type Claims struct {
	jwt.StandardClaims
	Audience Audience `json:"aud,omitempty"`
}

type Config struct {
	Issuer    string
	Audience  string
	Algorithm string
	// JWKSURL defaults to the issuer's well-known key set.
	JWKSURL         string
	RefreshInterval time.Duration
}

// Validator checks the signature, expiry, issuer and audience of bearer tokens.
type Validator struct {
	keys     *KeySet
	parser   *jwt.Parser
	issuer   string
	audience string
}

func NewValidator(cfg Config, keys *KeySet) *Validator {
	if cfg.Algorithm == "" {
		cfg.Algorithm = "RS256"
	}
	if keys == nil {
		url := cfg.JWKSURL
		if url == "" {
			url = strings.TrimSuffix(cfg.Issuer, "/") + "/.well-known/jwks.json"
		}
		keys = NewKeySet(url, cfg.RefreshInterval, nil)
	}
	return &Validator{
		keys:     keys,
		parser:   &jwt.Parser{ValidMethods: []string{cfg.Algorithm}},
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}
}

// Validate parses token and returns its claims. Failures are Unauthenticated errors whose
// message tells expired, wrongly addressed, badly signed and malformed tokens apart.
func (v *Validator) Validate(ctx context.Context, token string) (*Claims, error) {
	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		key, err := v.keys.Key(ctx, kid)
		if err != nil {
			return nil, err
		}
		return key.Key, nil
	})
	if err != nil {
		return nil, classify(err)
	}

	if !claims.VerifyIssuer(v.issuer, true) || !slices.Contains(claims.Audience, v.audience) {
		return nil, apperr.Unauthenticated(apperr.ReasonInvalidClaims, MsgInvalidClaims)
	}
	return claims, nil
}

func classify(err error) error {
	var verr *jwt.ValidationError
	if !errors.As(err, &verr) {
		return apperr.Unauthenticated(apperr.ReasonInvalidToken, MsgInvalidToken)
	}
	switch {
	case verr.Errors&jwt.ValidationErrorMalformed != 0:
		return apperr.Unauthenticated(apperr.ReasonMalformedToken, MsgMalformedToken)
	case verr.Errors&(jwt.ValidationErrorSignatureInvalid|jwt.ValidationErrorUnverifiable) != 0:
		return apperr.Unauthenticated(apperr.ReasonInvalidToken, MsgInvalidToken)
	case verr.Errors&jwt.ValidationErrorExpired != 0:
		return apperr.Unauthenticated(apperr.ReasonTokenExpired, MsgTokenExpired)
	case verr.Errors&(jwt.ValidationErrorAudience|jwt.ValidationErrorIssuer) != 0:
		return apperr.Unauthenticated(apperr.ReasonInvalidClaims, MsgInvalidClaims)
	default:
		return apperr.Unauthenticated(apperr.ReasonInvalidToken, MsgInvalidToken)
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", apperr.Unauthenticated(apperr.ReasonMissingHeader, MsgHeaderMissing)
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", apperr.Unauthenticated(apperr.ReasonInvalidFormat, MsgNotBearer)
	}
	return strings.TrimSpace(token), nil
}
