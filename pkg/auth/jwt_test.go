package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://identity.example.com"
	testAudience = "coffeeshop"
)

type signingSetup struct {
	privateKey jwk.Key
	jwksURL    string
	close      func()
}

// newSigningSetup generates an RSA key pair and serves its public half
// from an httptest JWKS endpoint.
func newSigningSetup(t *testing.T) *signingSetup {
	t.Helper()

	rawKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privateKey, err := jwk.FromRaw(rawKey)
	require.NoError(t, err)
	require.NoError(t, privateKey.Set(jwk.KeyIDKey, "test-key"))
	require.NoError(t, privateKey.Set(jwk.AlgorithmKey, jwa.RS256))

	publicKey, err := privateKey.PublicKey()
	require.NoError(t, err)

	keyset := jwk.NewSet()
	require.NoError(t, keyset.AddKey(publicKey))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(keyset)
	}))

	return &signingSetup{
		privateKey: privateKey,
		jwksURL:    server.URL + "/.well-known/jwks.json",
		close:      server.Close,
	}
}

func (s *signingSetup) signToken(t *testing.T, mutate func(b *jwt.Builder) *jwt.Builder) string {
	t.Helper()

	builder := jwt.NewBuilder().
		Subject("customer-1").
		Issuer(testIssuer).
		Audience([]string{testAudience}).
		IssuedAt(time.Now()).
		Expiration(time.Now().Add(time.Hour))
	if mutate != nil {
		builder = mutate(builder)
	}

	token, err := builder.Build()
	require.NoError(t, err)

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.RS256, s.privateKey))
	require.NoError(t, err)
	return string(signed)
}

func TestNewJWTValidatorUnreachableJWKS(t *testing.T) {
	_, err := NewJWTValidator("http://127.0.0.1:1/jwks.json", testIssuer, testAudience)
	assert.Error(t, err)
}

func TestValidateToken(t *testing.T) {
	setup := newSigningSetup(t)
	defer setup.close()

	validator, err := NewJWTValidator(setup.jwksURL, testIssuer, testAudience)
	require.NoError(t, err)

	t.Run("valid_token", func(t *testing.T) {
		signed := setup.signToken(t, func(b *jwt.Builder) *jwt.Builder {
			return b.Claim("email", "customer@example.com").Claim("role", "customer").Claim("shop", "downtown")
		})

		claims, err := validator.ValidateToken(context.Background(), signed)
		require.NoError(t, err)
		assert.Equal(t, "customer-1", claims.Subject)
		assert.Equal(t, "customer@example.com", claims.Email)
		assert.Equal(t, "customer", claims.Role)

		shop, ok := claims.GetClaim("shop")
		require.True(t, ok)
		assert.Equal(t, "downtown", shop)
	})

	t.Run("expired_token", func(t *testing.T) {
		signed := setup.signToken(t, func(b *jwt.Builder) *jwt.Builder {
			return b.Expiration(time.Now().Add(-time.Hour))
		})

		_, err := validator.ValidateToken(context.Background(), signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong_issuer", func(t *testing.T) {
		signed := setup.signToken(t, func(b *jwt.Builder) *jwt.Builder {
			return b.Issuer("https://somewhere-else.example.com")
		})

		_, err := validator.ValidateToken(context.Background(), signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage_token", func(t *testing.T) {
		_, err := validator.ValidateToken(context.Background(), "not-a-jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestHasAnyRole(t *testing.T) {
	claims := &Claims{Role: "barista"}
	assert.True(t, claims.HasAnyRole("manager", "barista"))
	assert.False(t, claims.HasAnyRole("manager"))
	assert.False(t, claims.HasAnyRole())
}
