package platform

import (
	"context"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

type tokenKey struct {
	tokenURL     string
	clientID     string
	clientSecret string
}

// tokenCache keeps one refreshing token source per credential set.
type tokenCache struct {
	client *http.Client

	mu      sync.Mutex
	sources map[tokenKey]oauth2.TokenSource
}

func newTokenCache(client *http.Client) *tokenCache {
	return &tokenCache{client: client, sources: make(map[tokenKey]oauth2.TokenSource)}
}

func (c *tokenCache) token(ctx context.Context, tokenURL, clientID, clientSecret string, scopes ...string) (*oauth2.Token, error) {
	key := tokenKey{tokenURL: tokenURL, clientID: clientID, clientSecret: clientSecret}

	c.mu.Lock()
	src, ok := c.sources[key]
	if !ok {
		cfg := clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			Scopes:       scopes,
		}
		// The source outlives ctx, so it gets a background context carrying our client.
		src = cfg.TokenSource(context.WithValue(context.Background(), oauth2.HTTPClient, c.client))
		c.sources[key] = src
	}
	c.mu.Unlock()

	type result struct {
		tok *oauth2.Token
		err error
	}
	done := make(chan result, 1)
	go func() {
		tok, err := src.Token()
		done <- result{tok, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.tok, r.err
	}
}

func bearer(tok *oauth2.Token) http.Header {
	h := http.Header{}
	h.Set("Authorization", tok.Type()+" "+tok.AccessToken)
	return h
}
