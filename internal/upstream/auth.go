// Package upstream holds the HTTP clients for the auth-service and
// user-service endpoints this service delegates to.
package upstream

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/VtGoodgame/Chat-service/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

const whoamiCacheTTL = 30 * time.Second

// AuthClient resolves the current user from the request cookies by asking
// the auth-service /auth/me endpoint. When a signing secret is configured it
// first tries to decode the access_token cookie locally, and when a Redis
// client is supplied positive lookups are cached for a short TTL.
type AuthClient struct {
	baseURL    string
	cookieName string
	secret     []byte
	client     *http.Client
	cache      *redis.Client
}

func NewAuthClient(backendURL, authPrefix, cookieName, jwtSecret string, timeout time.Duration, cache *redis.Client) *AuthClient {
	var secret []byte
	if jwtSecret != "" {
		secret = []byte(jwtSecret)
	}
	return &AuthClient{
		baseURL:    backendURL + authPrefix,
		cookieName: cookieName,
		secret:     secret,
		client:     &http.Client{Timeout: timeout},
		cache:      cache,
	}
}

// WhoAmI resolves the identity behind the given Cookie header. It never
// fails hard: any upstream error yields an empty identity, which callers
// treat as unauthenticated.
func (c *AuthClient) WhoAmI(ctx context.Context, cookieHeader string) model.WhoAmI {
	if cookieHeader == "" {
		return model.WhoAmI{}
	}

	if who, ok := c.fromToken(cookieHeader); ok {
		return who
	}
	if who, ok := c.fromCache(ctx, cookieHeader); ok {
		return who
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/me", nil)
	if err != nil {
		log.Printf("[Auth] build /auth/me request: %v", err)
		return model.WhoAmI{}
	}
	req.Header.Set("Cookie", cookieHeader)

	resp, err := c.client.Do(req)
	if err != nil {
		log.Printf("[Auth] /auth/me request failed: %v", err)
		return model.WhoAmI{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Auth] /auth/me returned %d", resp.StatusCode)
		return model.WhoAmI{}
	}

	var who model.WhoAmI
	if err := json.NewDecoder(resp.Body).Decode(&who); err != nil {
		log.Printf("[Auth] decode /auth/me response: %v", err)
		return model.WhoAmI{}
	}

	c.store(ctx, cookieHeader, who)
	return who
}

// fromToken decodes the access_token cookie locally. Only usable when this
// service shares the auth-service signing secret.
func (c *AuthClient) fromToken(cookieHeader string) (model.WhoAmI, bool) {
	if c.secret == nil {
		return model.WhoAmI{}, false
	}
	raw := cookieValue(cookieHeader, c.cookieName)
	if raw == "" {
		return model.WhoAmI{}, false
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil || !token.Valid {
		return model.WhoAmI{}, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return model.WhoAmI{}, false
	}

	who := model.WhoAmI{}
	switch v := claims["user_id"].(type) {
	case float64:
		who.UserID = int64(v)
	default:
		if sub, _ := claims["sub"].(string); sub != "" {
			if id, err := strconv.ParseInt(sub, 10, 64); err == nil {
				who.UserID = id
			}
		}
	}
	who.Username, _ = claims["username"].(string)
	who.Avatar, _ = claims["avatar"].(string)

	if !who.Authenticated() {
		return model.WhoAmI{}, false
	}
	return who, true
}

func (c *AuthClient) fromCache(ctx context.Context, cookieHeader string) (model.WhoAmI, bool) {
	if c.cache == nil {
		return model.WhoAmI{}, false
	}
	data, err := c.cache.Get(ctx, whoamiCacheKey(cookieHeader)).Bytes()
	if err != nil {
		return model.WhoAmI{}, false
	}
	var who model.WhoAmI
	if err := json.Unmarshal(data, &who); err != nil || !who.Authenticated() {
		return model.WhoAmI{}, false
	}
	return who, true
}

func (c *AuthClient) store(ctx context.Context, cookieHeader string, who model.WhoAmI) {
	if c.cache == nil || !who.Authenticated() {
		return
	}
	data, err := json.Marshal(who)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, whoamiCacheKey(cookieHeader), data, whoamiCacheTTL).Err(); err != nil {
		log.Printf("[Auth] cache whoami: %v", err)
	}
}

func whoamiCacheKey(cookieHeader string) string {
	sum := sha256.Sum256([]byte(cookieHeader))
	return "whoami:" + hex.EncodeToString(sum[:])
}

// cookieValue extracts one cookie's value from a raw Cookie header.
func cookieValue(header, name string) string {
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if v, ok := strings.CutPrefix(part, name+"="); ok {
			return v
		}
	}
	return ""
}
