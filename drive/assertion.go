package drive

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	googledrive "google.golang.org/api/drive/v3"
)

const (
	jwtBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	assertionLifetime  = time.Hour
)

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int64  `json:"expires_in"`
	TokenType        string `json:"token_type"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ServiceAccountExchanger signs an RS256 assertion with the service-account
// key and posts it to the token endpoint.
type ServiceAccountExchanger struct {
	Email      string
	TokenURL   string
	Scope      string
	HTTPClient *http.Client

	key *rsa.PrivateKey
	now func() time.Time
}

// NewServiceAccountExchanger parses the PEM private key (PKCS#1 or PKCS#8).
func NewServiceAccountExchanger(email, privateKeyPEM, tokenURL string) (*ServiceAccountExchanger, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(privateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("invalid service account private key: %w", err)
	}
	return &ServiceAccountExchanger{
		Email:      email,
		TokenURL:   tokenURL,
		Scope:      googledrive.DriveScope,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		key:        key,
		now:        time.Now,
	}, nil
}

func (e *ServiceAccountExchanger) assertion() (string, error) {
	now := e.now()
	claims := jwt.MapClaims{
		"iss":   e.Email,
		"scope": e.Scope,
		"aud":   e.TokenURL,
		"iat":   now.Unix(),
		"exp":   now.Add(assertionLifetime).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(e.key)
}

func (e *ServiceAccountExchanger) Exchange(ctx context.Context) (AccessToken, error) {
	signed, err := e.assertion()
	if err != nil {
		return AccessToken{}, fmt.Errorf("failed to sign assertion: %w", err)
	}

	form := url.Values{"grant_type": {jwtBearerGrantType}, "assertion": {signed}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return AccessToken{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return AccessToken{}, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return AccessToken{}, fmt.Errorf("failed to read token response: %w", err)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return AccessToken{}, fmt.Errorf("invalid token response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || tr.AccessToken == "" {
		return AccessToken{}, fmt.Errorf("token endpoint returned status %d: %s %s", resp.StatusCode, tr.Error, tr.ErrorDescription)
	}

	return AccessToken{Value: tr.AccessToken, ExpiresIn: time.Duration(tr.ExpiresIn) * time.Second}, nil
}
