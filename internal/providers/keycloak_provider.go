package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"verbindung/mitgliederamt/internal/common"
	"verbindung/mitgliederamt/internal/config"
	"verbindung/mitgliederamt/internal/constants"
	"verbindung/mitgliederamt/internal/logging"
	"verbindung/mitgliederamt/internal/metrics"
)

const (
	adminTokenCacheKey = "keycloak:admin_token"
	tokenExpiryMargin  = 10 * time.Second
)

// KeycloakProvider wraps the Keycloak admin REST API for user accounts and
// group membership. Every operation fails closed: when no admin token can
// be obtained, the result is a structured failure, never a panic or an
// assumed success.
type KeycloakProvider struct {
	Config  *config.KeycloakConfig
	Client  *http.Client
	Cache   common.CacheInterface
	Metrics *metrics.MetricsRegistry
}

// NewKeycloakProvider creates a provider using the environment config
func NewKeycloakProvider(cache common.CacheInterface, reg *metrics.MetricsRegistry) *KeycloakProvider {
	return &KeycloakProvider{
		Config: config.NewKeycloakConfigFromEnv(),
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
		Cache:   cache,
		Metrics: reg,
	}
}

// countRequest records one admin API round trip. Metrics may be nil in tests.
func (p *KeycloakProvider) countRequest(operation, outcome string) {
	if p.Metrics == nil {
		return
	}
	p.Metrics.KeycloakRequestsTotal.WithLabelValues(operation, outcome).Inc()
}

// KeycloakUser is the admin-API user representation. Attributes keep the
// raw multi-valued form Keycloak uses.
type KeycloakUser struct {
	ID            string              `json:"id,omitempty"`
	Username      string              `json:"username,omitempty"`
	Email         string              `json:"email,omitempty"`
	FirstName     string              `json:"firstName,omitempty"`
	LastName      string              `json:"lastName,omitempty"`
	Enabled       bool                `json:"enabled"`
	EmailVerified bool                `json:"emailVerified"`
	Attributes    map[string][]string `json:"attributes,omitempty"`
}

// KeycloakGroup is the admin-API group representation
type KeycloakGroup struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path,omitempty"`
}

// CreateUserResult reports the outcome of CreateUser. Created is false
// when an existing account with the same email was resolved instead.
type CreateUserResult struct {
	ID      string
	Created bool
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// adminToken returns a cached or freshly fetched service-account token.
// Incomplete config is detected before any network call.
func (p *KeycloakProvider) adminToken(ctx context.Context) (string, *ProviderError) {
	if !p.Config.Complete() {
		return "", &ProviderError{
			Code:    constants.ErrCodeConfigIncomplete,
			Message: constants.GetErrorMessage(constants.ErrCodeConfigIncomplete),
		}
	}

	if cached, found := p.Cache.Get(adminTokenCacheKey); found {
		if token, ok := cached.(string); ok && token != "" {
			return token, nil
		}
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", p.Config.ClientID)
	form.Set("client_secret", p.Config.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Config.TokenURL(), strings.NewReader(form.Encode()))
	if err != nil {
		return "", &ProviderError{
			Code:    constants.ErrCodeUpstreamUnavailable,
			Message: "Failed to create token request",
			Err:     err,
		}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.Client.Do(req)
	if err != nil {
		p.countRequest("token", "error")
		return "", &ProviderError{
			Code:    constants.ErrCodeUpstreamUnavailable,
			Message: constants.GetErrorMessage(constants.ErrCodeUpstreamUnavailable),
			Err:     err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.countRequest("token", "error")
		logging.SyncDebug("Keycloak token request failed", "status", resp.StatusCode)
		return "", &ProviderError{
			Code:    constants.ErrCodeUpstreamUnavailable,
			Message: fmt.Sprintf("Token endpoint returned %d", resp.StatusCode),
			Status:  resp.StatusCode,
		}
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil || tok.AccessToken == "" {
		p.countRequest("token", "error")
		return "", &ProviderError{
			Code:    constants.ErrCodeUpstreamUnavailable,
			Message: "Token response could not be decoded",
			Err:     err,
		}
	}
	p.countRequest("token", "ok")

	ttl := time.Duration(tok.ExpiresIn)*time.Second - tokenExpiryMargin
	if ttl > 0 {
		p.Cache.Set(adminTokenCacheKey, tok.AccessToken, ttl)
	}

	return tok.AccessToken, nil
}

// CreateUser posts a new account with username = email, enabled and
// unverified. A 409 conflict is resolved to the existing account via exact
// email search; when that search fails the 409 is preserved so callers can
// tell "exists but unresolvable" from "created".
func (p *KeycloakProvider) CreateUser(ctx context.Context, email, firstName, lastName string) (*CreateUserResult, error) {
	if email == "" {
		return nil, &ProviderError{
			Code:    constants.ErrCodeLocalFailure,
			Message: "Email is required to create a Keycloak user",
		}
	}

	token, perr := p.adminToken(ctx)
	if perr != nil {
		return nil, perr
	}

	payload := KeycloakUser{
		Username:      email,
		Email:         email,
		FirstName:     firstName,
		LastName:      lastName,
		Enabled:       true,
		EmailVerified: false,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &ProviderError{
			Code:    constants.ErrCodeUpstreamUnavailable,
			Message: "Failed to marshal user payload",
			Err:     err,
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Config.AdminURL("/users"), bytes.NewReader(body))
	if err != nil {
		return nil, &ProviderError{
			Code:    constants.ErrCodeUpstreamUnavailable,
			Message: "Failed to create request",
			Err:     err,
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.Client.Do(req)
	if err != nil {
		p.countRequest("create_user", "error")
		return nil, &ProviderError{
			Code:    constants.ErrCodeUpstreamUnavailable,
			Message: constants.GetErrorMessage(constants.ErrCodeUpstreamUnavailable),
			Err:     err,
		}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		p.countRequest("create_user", "ok")
		if id := idFromLocation(resp.Header.Get("Location")); id != "" {
			return &CreateUserResult{ID: id, Created: true}, nil
		}
		// Some proxies strip the Location header; fall back to search
		if found := p.searchUserByEmail(ctx, email, token); found != nil {
			return &CreateUserResult{ID: found.ID, Created: true}, nil
		}
		return nil, &ProviderError{
			Code:    constants.ErrCodeUpstreamRejected,
			Message: "User created but no id could be resolved",
			Status:  resp.StatusCode,
		}

	case http.StatusConflict:
		p.countRequest("create_user", "conflict")
		if existing := p.searchUserByEmail(ctx, email, token); existing != nil {
			logging.SyncDebug("Keycloak user already exists", "email", email, "id", existing.ID)
			return &CreateUserResult{ID: existing.ID, Created: false}, nil
		}
		return nil, &ProviderError{
			Code:    constants.ErrCodeUpstreamConflict,
			Message: constants.GetErrorMessage(constants.ErrCodeUpstreamConflict),
			Status:  http.StatusConflict,
		}

	default:
		p.countRequest("create_user", "error")
		return nil, &ProviderError{
			Code:    constants.ErrCodeUpstreamRejected,
			Message: fmt.Sprintf("Keycloak returned %d on user create", resp.StatusCode),
			Status:  resp.StatusCode,
		}
	}
}

// idFromLocation extracts the user id from a .../users/{id} Location header
func idFromLocation(location string) string {
	if location == "" {
		return ""
	}
	idx := strings.LastIndex(location, "/users/")
	if idx < 0 {
		return ""
	}
	id := location[idx+len("/users/"):]
	if id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}

// searchUserByEmail performs an exact-email lookup, nil on any failure
func (p *KeycloakProvider) searchUserByEmail(ctx context.Context, email, token string) *KeycloakUser {
	endpoint := p.Config.AdminURL("/users") + "?email=" + url.QueryEscape(email) + "&exact=true"

	var users []KeycloakUser
	status, err := p.doGET(ctx, endpoint, token, &users)
	if err != nil || status != http.StatusOK {
		logging.SyncDebug("Keycloak user search failed", "email", email, "status", status)
		return nil
	}

	for i := range users {
		if strings.EqualFold(users[i].Email, email) {
			return &users[i]
		}
	}
	return nil
}

// FetchUser returns the account representation, nil on any failure
// including a missing token or a 404
func (p *KeycloakProvider) FetchUser(ctx context.Context, id string) *KeycloakUser {
	token, perr := p.adminToken(ctx)
	if perr != nil {
		return nil
	}

	var user KeycloakUser
	status, err := p.doGET(ctx, p.Config.AdminURL("/users/"+url.PathEscape(id)), token, &user)
	if err != nil || status != http.StatusOK {
		logging.SyncDebug("Keycloak fetchUser failed", "id", id, "status", status)
		return nil
	}
	return &user
}

// DeleteUser removes the account, best-effort
func (p *KeycloakProvider) DeleteUser(ctx context.Context, id string) bool {
	token, perr := p.adminToken(ctx)
	if perr != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, p.Config.AdminURL("/users/"+url.PathEscape(id)), nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.Client.Do(req)
	if err != nil {
		p.countRequest("delete_user", "error")
		return false
	}
	defer resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if ok {
		p.countRequest("delete_user", "ok")
	} else {
		p.countRequest("delete_user", "error")
	}
	return ok
}

// FetchUsersBatch fetches accounts one by one, map value nil where the
// fetch failed. Sequential on purpose: bounded load on the IdP.
func (p *KeycloakProvider) FetchUsersBatch(ctx context.Context, ids []string) map[string]*KeycloakUser {
	result := make(map[string]*KeycloakUser, len(ids))
	for _, id := range ids {
		result[id] = p.FetchUser(ctx, id)
	}
	return result
}

// UpdateUserAttributes merges attrs into the account's attribute map with a
// read-modify-write round trip. A nil or empty value deletes the key, all
// other values become single-element string arrays. Email, username, name
// and the enabled/verified flags ride along unchanged so the PUT does not
// revert unrelated profile fields.
func (p *KeycloakProvider) UpdateUserAttributes(ctx context.Context, id string, attrs map[string]any) error {
	token, perr := p.adminToken(ctx)
	if perr != nil {
		return perr
	}

	var user KeycloakUser
	status, err := p.doGET(ctx, p.Config.AdminURL("/users/"+url.PathEscape(id)), token, &user)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &ProviderError{
			Code:    constants.ErrCodeUpstreamRejected,
			Message: fmt.Sprintf("Keycloak returned %d reading user %s", status, id),
			Status:  status,
		}
	}

	if user.Attributes == nil {
		user.Attributes = make(map[string][]string)
	}
	for key, value := range attrs {
		if value == nil {
			delete(user.Attributes, key)
			continue
		}
		str := fmt.Sprintf("%v", value)
		if str == "" {
			delete(user.Attributes, key)
			continue
		}
		user.Attributes[key] = []string{str}
	}

	return p.putUser(ctx, token, id, &user)
}

// UpdateUserEmail sets the account's email and username (and optionally
// first/last name) in one round trip, preserving attributes and flags
func (p *KeycloakProvider) UpdateUserEmail(ctx context.Context, id, email, username string, firstName, lastName *string) error {
	token, perr := p.adminToken(ctx)
	if perr != nil {
		return perr
	}

	var user KeycloakUser
	status, err := p.doGET(ctx, p.Config.AdminURL("/users/"+url.PathEscape(id)), token, &user)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &ProviderError{
			Code:    constants.ErrCodeUpstreamRejected,
			Message: fmt.Sprintf("Keycloak returned %d reading user %s", status, id),
			Status:  status,
		}
	}

	user.Email = email
	user.Username = username
	if firstName != nil {
		user.FirstName = *firstName
	}
	if lastName != nil {
		user.LastName = *lastName
	}

	return p.putUser(ctx, token, id, &user)
}

// putUser writes the full account representation back
func (p *KeycloakProvider) putUser(ctx context.Context, token, id string, user *KeycloakUser) error {
	body, err := json.Marshal(user)
	if err != nil {
		return &ProviderError{
			Code:    constants.ErrCodeUpstreamUnavailable,
			Message: "Failed to marshal user payload",
			Err:     err,
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, p.Config.AdminURL("/users/"+url.PathEscape(id)), bytes.NewReader(body))
	if err != nil {
		return &ProviderError{
			Code:    constants.ErrCodeUpstreamUnavailable,
			Message: "Failed to create request",
			Err:     err,
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.Client.Do(req)
	if err != nil {
		p.countRequest("update_user", "error")
		return &ProviderError{
			Code:    constants.ErrCodeUpstreamUnavailable,
			Message: constants.GetErrorMessage(constants.ErrCodeUpstreamUnavailable),
			Err:     err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		code := constants.ErrCodeUpstreamRejected
		outcome := "error"
		if resp.StatusCode == http.StatusConflict {
			code = constants.ErrCodeUpstreamConflict
			outcome = "conflict"
		}
		p.countRequest("update_user", outcome)
		return &ProviderError{
			Code:    code,
			Message: fmt.Sprintf("Keycloak returned %d updating user %s", resp.StatusCode, id),
			Status:  resp.StatusCode,
		}
	}

	p.countRequest("update_user", "ok")
	return nil
}

// SearchGroups queries the group-search endpoint by name
func (p *KeycloakProvider) SearchGroups(ctx context.Context, name string) ([]KeycloakGroup, error) {
	token, perr := p.adminToken(ctx)
	if perr != nil {
		return nil, perr
	}

	endpoint := p.Config.AdminURL("/groups") + "?search=" + url.QueryEscape(name)

	var groups []KeycloakGroup
	status, err := p.doGET(ctx, endpoint, token, &groups)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &ProviderError{
			Code:    constants.ErrCodeUpstreamRejected,
			Message: fmt.Sprintf("Keycloak returned %d on group search", status),
			Status:  status,
		}
	}
	return groups, nil
}

// AddUserToGroup adds the account to the group, best-effort
func (p *KeycloakProvider) AddUserToGroup(ctx context.Context, userID, groupID string) bool {
	return p.groupMembership(ctx, http.MethodPut, userID, groupID)
}

// RemoveUserFromGroup removes the account from the group, best-effort
func (p *KeycloakProvider) RemoveUserFromGroup(ctx context.Context, userID, groupID string) bool {
	return p.groupMembership(ctx, http.MethodDelete, userID, groupID)
}

func (p *KeycloakProvider) groupMembership(ctx context.Context, method, userID, groupID string) bool {
	token, perr := p.adminToken(ctx)
	if perr != nil {
		return false
	}

	endpoint := p.Config.AdminURL("/users/" + url.PathEscape(userID) + "/groups/" + url.PathEscape(groupID))
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.Client.Do(req)
	if err != nil {
		p.countRequest("group_membership", "error")
		logging.SyncDebug("Keycloak group membership call failed", "method", method, "user", userID, "group", groupID, "error", err.Error())
		return false
	}
	defer resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if ok {
		p.countRequest("group_membership", "ok")
	} else {
		p.countRequest("group_membership", "error")
		logging.SyncDebug("Keycloak group membership call not ok", "method", method, "user", userID, "group", groupID, "status", resp.StatusCode)
	}
	return ok
}

// doGET performs an authenticated GET and decodes the JSON response
func (p *KeycloakProvider) doGET(ctx context.Context, endpoint, token string, result any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, &ProviderError{
			Code:    constants.ErrCodeUpstreamUnavailable,
			Message: "Failed to create request",
			Err:     err,
		}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.Client.Do(req)
	if err != nil {
		p.countRequest("get", "error")
		return 0, &ProviderError{
			Code:    constants.ErrCodeUpstreamUnavailable,
			Message: constants.GetErrorMessage(constants.ErrCodeUpstreamUnavailable),
			Err:     err,
		}
	}
	defer resp.Body.Close()

	outcome := "error"
	if resp.StatusCode == http.StatusOK {
		outcome = "ok"
	}
	p.countRequest("get", outcome)

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return resp.StatusCode, &ProviderError{
			Code:    constants.ErrCodeUpstreamUnavailable,
			Message: "Failed to decode response",
			Err:     err,
		}
	}

	return resp.StatusCode, nil
}
