package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"minichat/pkg/domain"
)

// ProviderClient fetches user profiles from the identity provider's
// userinfo endpoint.
type ProviderClient struct {
	userinfoURL string
	httpClient  *http.Client
}

// NewProviderClient constructs a userinfo client.
func NewProviderClient(userinfoURL string) (*ProviderClient, error) {
	userinfoURL = strings.TrimSpace(userinfoURL)
	if userinfoURL == "" {
		return nil, errors.New("userinfo URL required")
	}
	return &ProviderClient{
		userinfoURL: userinfoURL,
		httpClient:  &http.Client{Timeout: 5 * time.Second},
	}, nil
}

// Userinfo exchanges a bearer token for the caller's profile.
func (c *ProviderClient) Userinfo(ctx context.Context, token string) (domain.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userinfoURL, nil)
	if err != nil {
		return domain.Identity{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("userinfo request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return domain.Identity{}, fmt.Errorf("userinfo: status %d", resp.StatusCode)
	}
	var profile domain.Identity
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return domain.Identity{}, fmt.Errorf("userinfo decode: %w", err)
	}
	if strings.TrimSpace(profile.Subject) == "" {
		return domain.Identity{}, errors.New("userinfo response missing sub")
	}
	return profile, nil
}
