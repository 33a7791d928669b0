package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// ErrInvalidToken is returned for missing, malformed or expired session tokens.
var ErrInvalidToken = errors.New("session: invalid token")

const (
	claimTenant   = "tid"
	claimOperator = "oid"
)

// TokenConfig configures session token signing.
type TokenConfig struct {
	Secret    string
	Issuer    string
	Audience  string
	TTL       time.Duration
	ClockSkew time.Duration
}

// Claims are the identifiers carried by a session token.
type Claims struct {
	SessionID  string
	TenantID   string
	OperatorID string
	ExpiresAt  time.Time
}

// Tokens issues and parses HS256 session tokens.
type Tokens struct {
	secret    []byte
	issuer    string
	audience  string
	ttl       time.Duration
	clockSkew time.Duration
	validator TokenValidator
	now       func() time.Time
}

// NewTokens validates cfg and constructs the token helper.
func NewTokens(cfg TokenConfig) (*Tokens, error) {
	if len(strings.TrimSpace(cfg.Secret)) < 16 {
		return nil, errors.New("session: secret must be at least 16 characters")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Tokens{
		secret:    []byte(cfg.Secret),
		issuer:    cfg.Issuer,
		audience:  cfg.Audience,
		ttl:       ttl,
		clockSkew: cfg.ClockSkew,
		validator: TokenValidator{
			Issuer:    cfg.Issuer,
			Audience:  cfg.Audience,
			ClockSkew: cfg.ClockSkew,
			Algorithm: jwa.HS256,
		},
		now: time.Now,
	}, nil
}

// Issue signs a token for sess.
func (t *Tokens) Issue(sess *Session) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.ttl)
	builder := jwt.NewBuilder().
		Subject(sess.ID).
		IssuedAt(now).
		NotBefore(now.Add(-t.clockSkew)).
		Expiration(expiresAt).
		Claim(claimTenant, sess.TenantID).
		Claim(claimOperator, sess.OperatorID)
	if t.issuer != "" {
		builder = builder.Issuer(t.issuer)
	}
	if t.audience != "" {
		builder = builder.Audience([]string{t.audience})
	}
	tok, err := builder.Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, t.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}

// Parse verifies the token and returns its claims.
func (t *Tokens) Parse(token string) (Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Claims{}, ErrInvalidToken
	}
	algorithm, err := tokenAlgorithm(trimmed)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if algorithm != t.validator.Algorithm {
		return Claims{}, fmt.Errorf("%w: unexpected algorithm %s", ErrInvalidToken, algorithm)
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, t.secret), jwt.WithValidate(false))
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if err := t.validator.Validate(parsed, algorithm, t.now()); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims := Claims{SessionID: parsed.Subject(), ExpiresAt: parsed.Expiration()}
	if v, ok := parsed.Get(claimTenant); ok {
		claims.TenantID, _ = v.(string)
	}
	if v, ok := parsed.Get(claimOperator); ok {
		claims.OperatorID, _ = v.(string)
	}
	if claims.SessionID == "" {
		return Claims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

func tokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) != 1 {
		return "", errors.New("expected exactly one signature")
	}
	headers := signatures[0].ProtectedHeaders()
	if headers == nil {
		return "", errors.New("missing protected headers")
	}
	alg := headers.Algorithm()
	if alg == "" || alg == jwa.NoSignature {
		return "", fmt.Errorf("unsupported algorithm %q", alg)
	}
	return alg, nil
}
