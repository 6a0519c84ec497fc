package auth

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Verifier turns a raw bearer token into Claims. Any signature, issuer,
// audience, or malformed-token condition is an error; callers must reject the
// request before authorization logic runs.
type Verifier interface {
	Verify(ctx context.Context, raw string) (Claims, error)
}

// NewVerifierFromEnv picks the verifier for this deployment: OIDC against the
// identity provider's key set when OIDC_ISSUER is set, otherwise the HS256
// shared-secret path used in development.
func NewVerifierFromEnv(ctx context.Context) (Verifier, error) {
	if issuer := os.Getenv("OIDC_ISSUER"); issuer != "" {
		return NewOIDCVerifier(ctx, issuer, os.Getenv("OIDC_AUDIENCE"))
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, errors.New("neither OIDC_ISSUER nor JWT_SECRET is set")
	}
	return HS256Verifier{Secret: []byte(secret)}, nil
}

type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

func NewOIDCVerifier(ctx context.Context, issuer, audience string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, err
	}
	cfg := &oidc.Config{ClientID: audience}
	if audience == "" {
		cfg = &oidc.Config{SkipClientIDCheck: true}
	}
	return &OIDCVerifier{verifier: provider.Verifier(cfg)}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, raw string) (Claims, error) {
	tok, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return Claims{}, err
	}
	var extra struct {
		OID   string   `json:"oid"`
		Roles []string `json:"roles"`
	}
	if err := tok.Claims(&extra); err != nil {
		return Claims{}, err
	}
	return Claims{Subject: tok.Subject, OID: extra.OID, Roles: extra.Roles}, nil
}

// HS256Verifier validates tokens signed with a shared secret.
type HS256Verifier struct {
	Secret []byte
}

func (v HS256Verifier) Verify(_ context.Context, raw string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.Secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !tok.Valid {
		return Claims{}, errors.New("invalid token")
	}
	mapc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, errors.New("invalid claims")
	}
	sub, _ := mapc["sub"].(string)
	oid, _ := mapc["oid"].(string)
	var roles []string
	if arr, ok := mapc["roles"].([]interface{}); ok {
		for _, v := range arr {
			if s, ok := v.(string); ok {
				roles = append(roles, s)
			}
		}
	}
	return Claims{Subject: sub, OID: oid, Roles: roles}, nil
}

// Sign mints an HS256 token for development and tests.
func Sign(secret []byte, oid string, roles []string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":   oid,
		"oid":   oid,
		"roles": roles,
		"jti":   uuid.NewString(),
		"exp":   time.Now().Add(ttl).Unix(),
		"iat":   time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
