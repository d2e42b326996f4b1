package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/fleet-cli/internal/adapters/httpapi"
	"github.com/bnema/fleet-cli/internal/domain"
	"github.com/bnema/fleet-cli/internal/ports"
)

const (
	DefaultLoginPath    = "auth/login"
	DefaultRefreshPath  = "auth/refresh"
	DefaultLogoutPath   = "auth/logout"
	DefaultMePath       = "auth/me"
	DefaultRegisterPath = "auth/register"
)

type API struct {
	BaseURL     string
	LoginPath   string
	RefreshPath string
	LogoutPath  string
	MePath      string
}

func DefaultAPI(baseURL string) API {
	return API{
		BaseURL:     baseURL,
		LoginPath:   DefaultLoginPath,
		RefreshPath: DefaultRefreshPath,
		LogoutPath:  DefaultLogoutPath,
		MePath:      DefaultMePath,
	}
}

// Endpoint talks to the fleet auth routes directly. It never goes through the
// request interceptor, so these calls are never refreshed or replayed.
type Endpoint struct {
	API            API
	HTTPClient     *http.Client
	RequestTimeout time.Duration
}

var _ ports.AuthEndpoint = Endpoint{}

type loginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe,omitempty"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// tokenResponse accepts both token field spellings the backend has shipped.
type tokenResponse struct {
	Access       string       `json:"access"`
	AccessToken  string       `json:"access_token"`
	Refresh      string       `json:"refresh"`
	RefreshToken string       `json:"refresh_token"`
	User         *userPayload `json:"user"`
}

type userPayload struct {
	ID           flexibleID `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Role         string     `json:"role"`
	CustomerName string     `json:"customer_Name"`
}

// flexibleID decodes ids sent either as JSON strings or numbers.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*f = ""
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		*f = flexibleID(unquoted)
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*f = flexibleID(number.String())
	return nil
}

func (u *userPayload) profile() *domain.UserProfile {
	if u == nil {
		return nil
	}
	profile := domain.UserProfile{
		ID:           string(u.ID),
		Username:     u.Username,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Role:         u.Role,
		CustomerName: u.CustomerName,
	}
	if profile.IsZero() {
		return nil
	}
	return &profile
}

func (r tokenResponse) grant() (domain.TokenGrant, error) {
	access := firstNonEmpty(r.Access, r.AccessToken)
	if access == "" {
		return domain.TokenGrant{}, fmt.Errorf("%w: token response missing access token", domain.ErrMalformedResponse)
	}
	return domain.TokenGrant{
		AccessToken:  access,
		RefreshToken: firstNonEmpty(r.Refresh, r.RefreshToken),
		User:         r.User.profile(),
	}, nil
}

func (e Endpoint) Login(ctx context.Context, creds domain.LoginCredentials) (domain.TokenGrant, error) {
	if strings.TrimSpace(creds.Username) == "" || creds.Password == "" {
		return domain.TokenGrant{}, fmt.Errorf("%w: username and password are required", domain.ErrInvalidCredentials)
	}

	body := loginRequest{Username: creds.Username, Password: creds.Password, RememberMe: creds.RememberMe}
	status, payload, err := e.do(ctx, http.MethodPost, e.API.LoginPath, "", body)
	if err != nil {
		return domain.TokenGrant{}, fmt.Errorf("login: %w", err)
	}

	if status == http.StatusBadRequest || status == http.StatusUnauthorized {
		if msg := httpapi.ErrorMessage(payload); msg != "" {
			return domain.TokenGrant{}, fmt.Errorf("%w: %s", domain.ErrInvalidCredentials, msg)
		}
		return domain.TokenGrant{}, domain.ErrInvalidCredentials
	}
	if !httpapi.IsSuccess(status) {
		return domain.TokenGrant{}, failed(http.MethodPost, e.API.LoginPath, status, payload)
	}

	return decodeGrant(payload)
}

func (e Endpoint) Refresh(ctx context.Context, refreshToken string) (domain.TokenGrant, error) {
	if refreshToken == "" {
		return domain.TokenGrant{}, domain.ErrNoRefreshToken
	}

	status, payload, err := e.do(ctx, http.MethodPost, e.API.RefreshPath, "", refreshRequest{Refresh: refreshToken})
	if err != nil {
		return domain.TokenGrant{}, fmt.Errorf("refresh: %w", err)
	}
	if !httpapi.IsSuccess(status) {
		return domain.TokenGrant{}, failed(http.MethodPost, e.API.RefreshPath, status, payload)
	}

	return decodeGrant(payload)
}

func (e Endpoint) Logout(ctx context.Context, accessToken string) error {
	status, payload, err := e.do(ctx, http.MethodPost, e.API.LogoutPath, accessToken, nil)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	if !httpapi.IsSuccess(status) {
		return failed(http.MethodPost, e.API.LogoutPath, status, payload)
	}
	return nil
}

func (e Endpoint) Me(ctx context.Context, accessToken string) (domain.UserProfile, error) {
	status, payload, err := e.do(ctx, http.MethodGet, e.API.MePath, accessToken, nil)
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("me: %w", err)
	}
	if !httpapi.IsSuccess(status) {
		return domain.UserProfile{}, failed(http.MethodGet, e.API.MePath, status, payload)
	}

	var user userPayload
	if err := json.Unmarshal(payload, &user); err != nil {
		return domain.UserProfile{}, fmt.Errorf("%w: decode me response: %v", domain.ErrMalformedResponse, err)
	}
	profile := user.profile()
	if profile == nil {
		return domain.UserProfile{}, domain.ErrUserUnresolved
	}
	return *profile, nil
}

func (e Endpoint) do(ctx context.Context, method string, path string, bearer string, body any) (int, []byte, error) {
	endpoint, err := httpapi.BuildURL(e.API.BaseURL, path)
	if err != nil {
		return 0, nil, err
	}

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	requestCtx, cancel := e.requestContext(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(requestCtx, method, endpoint.String(), reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := e.httpClient().Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := httpapi.ReadBody(resp)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, payload, nil
}

func (e Endpoint) httpClient() *http.Client {
	if e.HTTPClient != nil {
		return e.HTTPClient
	}
	return http.DefaultClient
}

func (e Endpoint) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	requestTimeout := e.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = httpapi.DefaultRequestTimeout
	}

	return context.WithTimeout(ctx, requestTimeout)
}

func decodeGrant(payload []byte) (domain.TokenGrant, error) {
	var resp tokenResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return domain.TokenGrant{}, fmt.Errorf("%w: decode token response: %v", domain.ErrMalformedResponse, err)
	}
	return resp.grant()
}

func failed(method string, path string, status int, payload []byte) error {
	return &domain.RequestFailedError{
		Method:  method,
		Path:    path,
		Status:  status,
		Body:    payload,
		Message: httpapi.ErrorMessage(payload),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
