package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

const (
	Issuer  = "https://accounts.google.com"
	CertURL = "https://www.googleapis.com/oauth2/v3/certs"
)

var (
	ErrAudienceMismatch = errors.New("id token audience is not an accepted client id")
	ErrMissingEmail     = errors.New("id token has no email")
)

// Identity is what sign-in needs from a verified token.
type Identity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

type claims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Verifier checks Google ID tokens issued to any of several client ids
// (one per platform).
type Verifier struct {
	verifier  *oidc.IDTokenVerifier
	clientIDs map[string]struct{}
}

func NewVerifier(ctx context.Context, clientIDs []string) *Verifier {
	keySet := oidc.NewRemoteKeySet(ctx, CertURL)
	return newVerifier(oidc.NewVerifier(Issuer, keySet, &oidc.Config{
		// audience is checked against the whole list below
		SkipClientIDCheck: true,
	}), clientIDs)
}

func newVerifier(v *oidc.IDTokenVerifier, clientIDs []string) *Verifier {
	ids := make(map[string]struct{}, len(clientIDs))
	for _, id := range clientIDs {
		if id != "" {
			ids[id] = struct{}{}
		}
	}
	return &Verifier{verifier: v, clientIDs: ids}
}

// Verify validates rawIDToken and returns the signed-in identity.
func (v *Verifier) Verify(ctx context.Context, rawIDToken string) (*Identity, error) {
	token, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}

	if !v.acceptsAudience(token.Audience) {
		return nil, ErrAudienceMismatch
	}

	var c claims
	if err := token.Claims(&c); err != nil {
		return nil, fmt.Errorf("decode id token claims: %w", err)
	}
	if c.Email == "" {
		return nil, ErrMissingEmail
	}

	return &Identity{
		Subject:       token.Subject,
		Email:         c.Email,
		EmailVerified: c.EmailVerified,
		Name:          c.Name,
		Picture:       c.Picture,
	}, nil
}

func (v *Verifier) acceptsAudience(aud []string) bool {
	for _, a := range aud {
		if _, ok := v.clientIDs[a]; ok {
			return true
		}
	}
	return false
}
