package identity

import (
	"context"
	"log/slog"

	"minichat/pkg/domain"
)

// Authenticator resolves a bearer token to an identity: signature and claims
// are checked locally against the provider's JWKS, then the profile is read
// from the cache or fetched from the userinfo endpoint.
type Authenticator struct {
	verifier *Verifier
	provider *ProviderClient
	cache    *ProfileCache // optional
}

// NewAuthenticator wires the verifier, provider client, and optional cache.
func NewAuthenticator(verifier *Verifier, provider *ProviderClient, cache *ProfileCache) *Authenticator {
	return &Authenticator{verifier: verifier, provider: provider, cache: cache}
}

// Authenticate validates the token and returns the caller's identity.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	subject, err := a.verifier.VerifySubject(token)
	if err != nil {
		return domain.Identity{}, err
	}
	if a.cache != nil {
		profile, ok, err := a.cache.Get(ctx, subject)
		if err != nil {
			slog.Warn("profile cache read failed", "err", err)
		} else if ok {
			return profile, nil
		}
	}
	profile, err := a.provider.Userinfo(ctx, token)
	if err != nil {
		return domain.Identity{}, err
	}
	if a.cache != nil {
		if err := a.cache.Put(ctx, profile); err != nil {
			slog.Warn("profile cache write failed", "err", err)
		}
	}
	return profile, nil
}
