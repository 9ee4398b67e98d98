package config

import (
	"testing"
)

func TestParseIssuer(t *testing.T) {
	base, realm := parseIssuer("https://sso.example.org/realms/verein")
	if base != "https://sso.example.org" {
		t.Errorf("Expected base https://sso.example.org, got %s", base)
	}
	if realm != "verein" {
		t.Errorf("Expected realm verein, got %s", realm)
	}
}

func TestParseIssuer_NoRealmPath(t *testing.T) {
	base, realm := parseIssuer("https://sso.example.org")
	if base != "https://sso.example.org" {
		t.Errorf("Expected base kept, got %s", base)
	}
	if realm != "" {
		t.Errorf("Expected empty realm, got %s", realm)
	}
}

func TestParseIssuer_Garbage(t *testing.T) {
	base, realm := parseIssuer("not a url")
	if base != "" || realm != "" {
		t.Errorf("Expected empty results, got %q / %q", base, realm)
	}
}

func TestNewKeycloakConfigFromEnv_IssuerFallback(t *testing.T) {
	t.Setenv("KEYCLOAK_BASE_URL", "")
	t.Setenv("KEYCLOAK_REALM", "")
	t.Setenv("KEYCLOAK_ISSUER", "https://sso.example.org/realms/verein")
	t.Setenv("KEYCLOAK_CLIENT_ID", "mitgliederamt")
	t.Setenv("KEYCLOAK_CLIENT_SECRET", "secret")

	cfg := NewKeycloakConfigFromEnv()

	if cfg.BaseURL != "https://sso.example.org" {
		t.Errorf("Expected derived base URL, got %s", cfg.BaseURL)
	}
	if cfg.Realm != "verein" {
		t.Errorf("Expected derived realm, got %s", cfg.Realm)
	}
	if !cfg.Complete() {
		t.Error("Expected config to be complete")
	}
}

func TestNewKeycloakConfigFromEnv_ExplicitWins(t *testing.T) {
	t.Setenv("KEYCLOAK_BASE_URL", "https://idp.internal")
	t.Setenv("KEYCLOAK_REALM", "master")
	t.Setenv("KEYCLOAK_ISSUER", "https://sso.example.org/realms/verein")
	t.Setenv("KEYCLOAK_CLIENT_ID", "mitgliederamt")
	t.Setenv("KEYCLOAK_CLIENT_SECRET", "secret")

	cfg := NewKeycloakConfigFromEnv()

	if cfg.BaseURL != "https://idp.internal" {
		t.Errorf("Explicit base URL should win, got %s", cfg.BaseURL)
	}
	if cfg.Realm != "master" {
		t.Errorf("Explicit realm should win, got %s", cfg.Realm)
	}
}

func TestComplete_MissingSecret(t *testing.T) {
	cfg := &KeycloakConfig{
		BaseURL:  "https://sso.example.org",
		Realm:    "verein",
		ClientID: "mitgliederamt",
	}
	if cfg.Complete() {
		t.Error("Expected incomplete config without client secret")
	}
}

func TestAdminURL(t *testing.T) {
	cfg := &KeycloakConfig{BaseURL: "https://sso.example.org", Realm: "verein"}
	got := cfg.AdminURL("/users/abc")
	want := "https://sso.example.org/admin/realms/verein/users/abc"
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}
