package authn

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"
)

// KeySet caches the signing keys published at a JSON Web Key Set endpoint. Keys are fetched
// on first use and refetched when a token names an unknown key id, at most once per
// refresh interval.
type KeySet struct {
	url        string
	client     *http.Client
	minRefresh time.Duration

	fetchMu sync.Mutex
	mu      sync.RWMutex
	keys    jose.JSONWebKeySet
	fetched time.Time
}

func NewKeySet(url string, minRefresh time.Duration, client *http.Client) *KeySet {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &KeySet{url: url, client: client, minRefresh: minRefresh}
}

// Key returns the key with the given id.
func (k *KeySet) Key(ctx context.Context, kid string) (jose.JSONWebKey, error) {
	if key, ok := k.lookup(kid); ok {
		return key, nil
	}

	if err := k.refresh(ctx); err != nil {
		return jose.JSONWebKey{}, err
	}

	if key, ok := k.lookup(kid); ok {
		return key, nil
	}
	return jose.JSONWebKey{}, fmt.Errorf("no signing key with id %q", kid)
}

func (k *KeySet) lookup(kid string) (jose.JSONWebKey, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	keys := k.keys.Key(kid)
	if len(keys) == 0 {
		return jose.JSONWebKey{}, false
	}
	return keys[0], true
}

// refresh refetches the key set unless it was fetched within minRefresh. Concurrent
// refreshes are serialized by fetchMu; lookups only wait for the final swap.
func (k *KeySet) refresh(ctx context.Context) error {
	k.fetchMu.Lock()
	defer k.fetchMu.Unlock()

	k.mu.RLock()
	recent := !k.fetched.IsZero() && time.Since(k.fetched) < k.minRefresh
	k.mu.RUnlock()
	if recent {
		return nil
	}

	keys, err := k.fetch(ctx)
	if err != nil {
		return err
	}

	k.mu.Lock()
	k.keys = keys
	k.fetched = time.Now()
	k.mu.Unlock()
	return nil
}

func (k *KeySet) fetch(ctx context.Context) (jose.JSONWebKeySet, error) {
	var keys jose.JSONWebKeySet

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.url, nil)
	if err != nil {
		return keys, err
	}
	resp, err := k.client.Do(req)
	if err != nil {
		return keys, fmt.Errorf("failed to fetch signing keys: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return keys, fmt.Errorf("failed to fetch signing keys: unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(&keys); err != nil {
		return keys, fmt.Errorf("failed to decode signing keys: %w", err)
	}
	return keys, nil
}
