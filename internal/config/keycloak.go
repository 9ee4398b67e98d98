package config

import (
	"net/url"
	"os"
	"strings"
)

// KeycloakConfig holds the admin-API connection settings for the IdP.
// BaseURL and Realm may be derived from KEYCLOAK_ISSUER
// (https://host/realms/{realm}) when not set explicitly.
type KeycloakConfig struct {
	BaseURL      string
	Realm        string
	ClientID     string
	ClientSecret string
}

// NewKeycloakConfigFromEnv reads the Keycloak settings from the environment
func NewKeycloakConfigFromEnv() *KeycloakConfig {
	cfg := &KeycloakConfig{
		BaseURL:      strings.TrimRight(os.Getenv("KEYCLOAK_BASE_URL"), "/"),
		Realm:        os.Getenv("KEYCLOAK_REALM"),
		ClientID:     os.Getenv("KEYCLOAK_CLIENT_ID"),
		ClientSecret: os.Getenv("KEYCLOAK_CLIENT_SECRET"),
	}

	if issuer := os.Getenv("KEYCLOAK_ISSUER"); issuer != "" && (cfg.BaseURL == "" || cfg.Realm == "") {
		base, realm := parseIssuer(issuer)
		if cfg.BaseURL == "" {
			cfg.BaseURL = base
		}
		if cfg.Realm == "" {
			cfg.Realm = realm
		}
	}

	return cfg
}

// parseIssuer splits an issuer URL of the form https://host/realms/{realm}
// into the server base URL and the realm name. Either result may be empty
// when the issuer does not match that shape.
func parseIssuer(issuer string) (baseURL, realm string) {
	u, err := url.Parse(issuer)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", ""
	}
	baseURL = u.Scheme + "://" + u.Host

	path := strings.Trim(u.Path, "/")
	parts := strings.Split(path, "/")
	if len(parts) == 2 && parts[0] == "realms" && parts[1] != "" {
		realm = parts[1]
	}
	return baseURL, realm
}

// Complete reports whether every setting needed for the client-credentials
// grant is present. Operations must degrade to a structured "config
// incomplete" result when this is false, never attempt a network call.
func (c *KeycloakConfig) Complete() bool {
	return c.BaseURL != "" && c.Realm != "" && c.ClientID != "" && c.ClientSecret != ""
}

// TokenURL returns the OpenID Connect token endpoint for the realm
func (c *KeycloakConfig) TokenURL() string {
	return c.BaseURL + "/realms/" + url.PathEscape(c.Realm) + "/protocol/openid-connect/token"
}

// AdminURL returns the admin REST base for the realm, with path appended
func (c *KeycloakConfig) AdminURL(path string) string {
	return c.BaseURL + "/admin/realms/" + url.PathEscape(c.Realm) + path
}

// PlaceholderDomain returns the configured domain for generated member
// emails, empty when unset
func PlaceholderDomain() string {
	return strings.TrimSpace(os.Getenv("MAIL_PLACEHOLDER_DOMAIN"))
}
