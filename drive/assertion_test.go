package drive

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeyPEM(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	return key, string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
}

func TestServiceAccountExchanger_Exchange(t *testing.T) {
	key, keyPEM := testKeyPEM(t)

	var tokenURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, jwtBearerGrantType, r.PostForm.Get("grant_type"))

		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(r.PostForm.Get("assertion"), claims, func(token *jwt.Token) (interface{}, error) {
			return &key.PublicKey, nil
		}, jwt.WithValidMethods([]string{"RS256"}))
		assert.NoError(t, err)
		assert.Equal(t, "gallery@project.iam.gserviceaccount.com", claims["iss"])
		assert.Equal(t, "https://www.googleapis.com/auth/drive", claims["scope"])
		assert.Equal(t, tokenURL, claims["aud"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "ya29.abc", "expires_in": 3600, "token_type": "Bearer"})
	}))
	defer srv.Close()
	tokenURL = srv.URL + "/token"

	ex, err := NewServiceAccountExchanger("gallery@project.iam.gserviceaccount.com", keyPEM, tokenURL)
	require.NoError(t, err)

	tok, err := ex.Exchange(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ya29.abc", tok.Value)
	assert.Equal(t, time.Hour, tok.ExpiresIn)
}

func TestServiceAccountExchanger_ErrorResponse(t *testing.T) {
	_, keyPEM := testKeyPEM(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid JWT Signature."}`))
	}))
	defer srv.Close()

	ex, err := NewServiceAccountExchanger("svc@example.com", keyPEM, srv.URL)
	require.NoError(t, err)

	_, err = ex.Exchange(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_grant")
}

func TestNewServiceAccountExchanger_BadKey(t *testing.T) {
	_, err := NewServiceAccountExchanger("svc@example.com", "not a key", "http://localhost/token")
	assert.Error(t, err)
}
