package auth

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2/clientcredentials"
)

// TokenSource supplies bearer tokens for outbound requests to downstream
// agents and tools.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource returns a fixed token. Useful for development setups
// where a long-lived service token is provisioned out of band.
type StaticTokenSource struct {
	token string
}

// NewStaticTokenSource creates a TokenSource around a fixed token.
func NewStaticTokenSource(token string) (*StaticTokenSource, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: static token is empty", ErrCredential)
	}
	return &StaticTokenSource{token: token}, nil
}

func (s *StaticTokenSource) Token(ctx context.Context) (string, error) {
	return s.token, nil
}

// ClientCredentialsSource acquires tokens from the identity provider via
// the OAuth2 client credentials grant. Tokens are fetched per call; the
// provider's own caching (and short call paths) keep this cheap.
type ClientCredentialsSource struct {
	cfg clientcredentials.Config
}

// NewClientCredentialsSource creates a TokenSource backed by the client
// credentials flow.
func NewClientCredentialsSource(clientID, clientSecret, tokenURL string, scopes []string) (*ClientCredentialsSource, error) {
	if clientID == "" || clientSecret == "" || tokenURL == "" {
		return nil, fmt.Errorf("%w: client_id, client_secret and token_url are required", ErrCredential)
	}
	return &ClientCredentialsSource{
		cfg: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			Scopes:       scopes,
		},
	}, nil
}

func (s *ClientCredentialsSource) Token(ctx context.Context) (string, error) {
	tok, err := s.cfg.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCredential, err)
	}
	return tok.AccessToken, nil
}

// BearerTransport is an http.RoundTripper that attaches a bearer token
// to every request. It wraps the default transport when Base is nil.
type BearerTransport struct {
	Source TokenSource
	Base   http.RoundTripper
}

func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.Source.Token(req.Context())
	if err != nil {
		return nil, err
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	// Per RoundTripper contract the request must not be mutated.
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+token)
	return base.RoundTrip(clone)
}

// HTTPClient returns an http.Client that authenticates every request
// with tokens from the given source.
func HTTPClient(source TokenSource) *http.Client {
	return &http.Client{Transport: &BearerTransport{Source: source}}
}
