package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"

	"github.com/shulebook/shulebook/internal/config"
)

// tokenSkew refreshes the admin token slightly before its actual expiry.
const tokenSkew = 30 * time.Second

// Keycloak implements Store against the Keycloak admin REST API using a
// client-credentials service account. All admin calls go through a token
// bucket so bulk runs stay inside the provider's rate limits.
type Keycloak struct {
	rc      *resty.Client
	realm   string
	limiter *rate.Limiter

	clientID     string
	clientSecret string

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

// NewKeycloak builds an adapter from the Keycloak section of the config.
func NewKeycloak(cfg config.KeycloakConfig) *Keycloak {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetTimeout(15 * time.Second)
	rps := cfg.AdminRPS
	if rps <= 0 {
		rps = 20
	}
	burst := cfg.AdminBurst
	if burst <= 0 {
		burst = 10
	}
	return &Keycloak{
		rc:           rc,
		realm:        cfg.Realm,
		limiter:      rate.NewLimiter(rate.Limit(rps), burst),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
	}
}

// kcUser is the admin API user representation. Display names live in
// firstName; authorization claims are carried as user attributes.
type kcUser struct {
	ID          string              `json:"id,omitempty"`
	Username    string              `json:"username,omitempty"`
	Email       string              `json:"email,omitempty"`
	FirstName   string              `json:"firstName,omitempty"`
	Enabled     *bool               `json:"enabled,omitempty"`
	Attributes  map[string][]string `json:"attributes,omitempty"`
	Credentials []kcCredential      `json:"credentials,omitempty"`
}

type kcCredential struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

func (k *Keycloak) adminToken(ctx context.Context) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.token != "" && time.Now().Before(k.tokenExp.Add(-tokenSkew)) {
		return k.token, nil
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	resp, err := k.rc.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "client_credentials",
			"client_id":     k.clientID,
			"client_secret": k.clientSecret,
		}).
		SetResult(&body).
		Post("/realms/" + k.realm + "/protocol/openid-connect/token")
	if err != nil {
		return "", fmt.Errorf("%w: token request: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		return "", mapStatus(resp.StatusCode(), "token request", resp.String())
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	k.token = body.AccessToken
	k.tokenExp = tokenExpiry(body.AccessToken, body.ExpiresIn)
	return k.token, nil
}

// tokenExpiry reads the exp claim without verifying the signature (the token
// came straight from the provider over TLS); expires_in is the fallback.
func tokenExpiry(raw string, expiresIn int) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	if expiresIn <= 0 {
		expiresIn = 60
	}
	return time.Now().Add(time.Duration(expiresIn) * time.Second)
}

func (k *Keycloak) adminReq(ctx context.Context) (*resty.Request, error) {
	if err := k.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	tok, err := k.adminToken(ctx)
	if err != nil {
		return nil, err
	}
	return k.rc.R().SetContext(ctx).SetAuthToken(tok), nil
}

func (k *Keycloak) usersPath() string {
	return "/admin/realms/" + k.realm + "/users"
}

func (k *Keycloak) FindByID(ctx context.Context, id string) (*Record, error) {
	req, err := k.adminReq(ctx)
	if err != nil {
		return nil, err
	}
	var u kcUser
	resp, err := req.SetResult(&u).Get(k.usersPath() + "/" + id)
	if err != nil {
		return nil, fmt.Errorf("%w: find %s: %v", ErrUnavailable, id, err)
	}
	if resp.IsError() {
		return nil, mapStatus(resp.StatusCode(), "find "+id, resp.String())
	}
	return recordFrom(&u), nil
}

func (k *Keycloak) Create(ctx context.Context, id, email, password, displayName string) (*Record, error) {
	req, err := k.adminReq(ctx)
	if err != nil {
		return nil, err
	}
	enabled := true
	u := kcUser{
		ID:        id,
		Username:  email,
		Email:     email,
		FirstName: displayName,
		Enabled:   &enabled,
		Credentials: []kcCredential{
			{Type: "password", Value: password, Temporary: false},
		},
	}
	resp, err := req.SetBody(&u).Post(k.usersPath())
	if err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", ErrUnavailable, id, err)
	}
	if resp.IsError() {
		return nil, mapStatus(resp.StatusCode(), "create "+id, resp.String())
	}
	return &Record{ID: id, Email: email, DisplayName: displayName}, nil
}

func (k *Keycloak) Update(ctx context.Context, id, email, password, displayName string) (*Record, error) {
	req, err := k.adminReq(ctx)
	if err != nil {
		return nil, err
	}
	enabled := true
	u := kcUser{Username: email, Email: email, FirstName: displayName, Enabled: &enabled}
	resp, err := req.SetBody(&u).Put(k.usersPath() + "/" + id)
	if err != nil {
		return nil, fmt.Errorf("%w: update %s: %v", ErrUnavailable, id, err)
	}
	if resp.IsError() {
		return nil, mapStatus(resp.StatusCode(), "update "+id, resp.String())
	}

	// password is reset through its own endpoint
	req, err = k.adminReq(ctx)
	if err != nil {
		return nil, err
	}
	cred := kcCredential{Type: "password", Value: password, Temporary: false}
	resp, err = req.SetBody(&cred).Put(k.usersPath() + "/" + id + "/reset-password")
	if err != nil {
		return nil, fmt.Errorf("%w: reset password %s: %v", ErrUnavailable, id, err)
	}
	if resp.IsError() {
		return nil, mapStatus(resp.StatusCode(), "reset password "+id, resp.String())
	}
	return &Record{ID: id, Email: email, DisplayName: displayName}, nil
}

func (k *Keycloak) SetClaims(ctx context.Context, id string, claims map[string]interface{}) error {
	req, err := k.adminReq(ctx)
	if err != nil {
		return err
	}
	u := kcUser{Attributes: attributesFrom(claims)}
	resp, err := req.SetBody(&u).Put(k.usersPath() + "/" + id)
	if err != nil {
		return fmt.Errorf("%w: set claims %s: %v", ErrUnavailable, id, err)
	}
	if resp.IsError() {
		return mapStatus(resp.StatusCode(), "set claims "+id, resp.String())
	}
	return nil
}

// mapStatus translates admin API failures into the adapter error taxonomy.
func mapStatus(status int, op, body string) error {
	switch {
	case status == 404:
		return fmt.Errorf("%w (%s)", ErrNotFound, op)
	case status == 409:
		return fmt.Errorf("%w (%s)", ErrDuplicateEmail, op)
	case status == 413:
		return fmt.Errorf("%w (%s)", ErrClaimsTooLarge, op)
	case status == 400 && strings.Contains(strings.ToLower(body), "password"):
		return fmt.Errorf("%w (%s)", ErrInvalidCredential, op)
	case status == 429 || status >= 500:
		return fmt.Errorf("%w (%s: status %d)", ErrUnavailable, op, status)
	default:
		return fmt.Errorf("identity store: %s: status %d: %s", op, status, body)
	}
}

func recordFrom(u *kcUser) *Record {
	claims := make(map[string]interface{}, len(u.Attributes))
	for k, vals := range u.Attributes {
		if len(vals) > 0 {
			claims[k] = vals[0]
		} else {
			claims[k] = nil
		}
	}
	return &Record{ID: u.ID, Email: u.Email, DisplayName: u.FirstName, Claims: claims}
}

func attributesFrom(claims map[string]interface{}) map[string][]string {
	attrs := make(map[string][]string, len(claims))
	for k, v := range claims {
		if v == nil {
			attrs[k] = []string{}
			continue
		}
		attrs[k] = []string{fmt.Sprint(v)}
	}
	return attrs
}
