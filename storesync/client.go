package storesync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// storeClient talks to the storefront's REST API. Auth is OAuth client
// credentials; the access token is cached until shortly before expiry.
// Requests are rate limited on our side, the storefront bans bursty
// integrations.
type storeClient struct {
	baseURL      string
	authURL      string
	clientId     string
	clientSecret string
	http         *http.Client
	limiter      <-chan time.Time

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func newStoreClient() (*storeClient, error) {
	baseURL := strings.TrimSpace(os.Getenv("STORE_API_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://www.wixapis.com"
	}
	authURL := strings.TrimSpace(os.Getenv("STORE_AUTH_URL"))
	if authURL == "" {
		authURL = baseURL + "/oauth2/token"
	}
	clientId := strings.TrimSpace(os.Getenv("STORE_CLIENT_ID"))
	clientSecret := strings.TrimSpace(os.Getenv("STORE_CLIENT_SECRET"))
	if clientId == "" || clientSecret == "" {
		return nil, errors.New("store client credentials are empty")
	}

	rateLimitPerMin := int64(60)
	if v := strings.TrimSpace(os.Getenv("STORE_RATE_LIMIT_PER_MIN")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			rateLimitPerMin = n
		}
	}
	interval := time.Minute / time.Duration(rateLimitPerMin)

	return &storeClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		authURL:      authURL,
		clientId:     clientId,
		clientSecret: clientSecret,
		http:         &http.Client{Timeout: 30 * time.Second},
		limiter:      time.Tick(interval),
	}, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (c *storeClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	payload, _ := json.Marshal(map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     c.clientId,
		"client_secret": c.clientSecret,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(string(payload)))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("store auth error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", err
	}
	if parsed.AccessToken == "" {
		return "", errors.New("store auth returned an empty token")
	}

	c.accessToken = parsed.AccessToken
	// refresh a minute early
	c.tokenExpiry = time.Now().Add(time.Duration(parsed.ExpiresIn)*time.Second - time.Minute)
	return c.accessToken, nil
}

func (c *storeClient) getJSON(ctx context.Context, path string, params url.Values, dest interface{}) error {
	<-c.limiter

	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("store api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.Unmarshal(body, dest)
}

func (c *storeClient) listProducts(ctx context.Context) ([]json.RawMessage, error) {
	var parsed storeProductsResponse
	if err := c.getJSON(ctx, "/stores/v1/products", nil, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Products) > 0 {
		return parsed.Products, nil
	}
	return parsed.Items, nil
}
