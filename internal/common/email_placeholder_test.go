package common

import "testing"

func TestNormalizeEmailLocalPart_Umlauts(t *testing.T) {
	got := NormalizeEmailLocalPart("Müller")
	if got != "mueller" {
		t.Errorf("Expected mueller, got %s", got)
	}

	got = NormalizeEmailLocalPart("Größe")
	if got != "groesse" {
		t.Errorf("Expected groesse, got %s", got)
	}
}

func TestNormalizeEmailLocalPart_SpecialChars(t *testing.T) {
	got := NormalizeEmailLocalPart("  von und zu Gutenberg!  ")
	if got != "von-und-zu-gutenberg" {
		t.Errorf("Expected von-und-zu-gutenberg, got %s", got)
	}

	// Runs of separators collapse, edges trimmed
	got = NormalizeEmailLocalPart("--a  b__c--")
	if got != "a-b-c" {
		t.Errorf("Expected a-b-c, got %s", got)
	}
}

func TestNormalizeEmailLocalPart_Empty(t *testing.T) {
	if got := NormalizeEmailLocalPart("   "); got != "" {
		t.Errorf("Expected empty string, got %q", got)
	}
}

func TestMakePlaceholderEmail_Scenario(t *testing.T) {
	// Member #42, no email, name "Anna Schmidt", domain verein.example
	got, err := MakePlaceholderEmail(PlaceholderEmailParams{
		Vorname:  "Anna",
		Nachname: "Schmidt",
		ID:       "42",
		Domain:   "verein.example",
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got != "anna.schmidt.42@verein.example" {
		t.Errorf("Expected anna.schmidt.42@verein.example, got %s", got)
	}
}

func TestMakePlaceholderEmail_Deterministic(t *testing.T) {
	params := PlaceholderEmailParams{Vorname: "Jörg", Nachname: "Weiß", ID: "7", Domain: "verein.example"}

	first, err := MakePlaceholderEmail(params)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	second, err := MakePlaceholderEmail(params)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if first != second {
		t.Errorf("Expected identical results, got %s and %s", first, second)
	}
	if first != "joerg.weiss.7@verein.example" {
		t.Errorf("Expected joerg.weiss.7@verein.example, got %s", first)
	}
}

func TestMakePlaceholderEmail_NoNames(t *testing.T) {
	got, err := MakePlaceholderEmail(PlaceholderEmailParams{ID: "99", Domain: "verein.example"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got != "user.99@verein.example" {
		t.Errorf("Expected user.99@verein.example, got %s", got)
	}
}

func TestMakePlaceholderEmail_NoID(t *testing.T) {
	got, err := MakePlaceholderEmail(PlaceholderEmailParams{
		Vorname:  "Anna",
		Nachname: "Schmidt",
		Domain:   "verein.example",
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got != "anna.schmidt@verein.example" {
		t.Errorf("Expected anna.schmidt@verein.example, got %s", got)
	}
}

func TestMakePlaceholderEmail_MissingDomain(t *testing.T) {
	t.Setenv("MAIL_PLACEHOLDER_DOMAIN", "")

	_, err := MakePlaceholderEmail(PlaceholderEmailParams{Vorname: "Anna", ID: "1"})
	if err == nil {
		t.Fatal("Expected error without a domain")
	}
}

func TestMakePlaceholderEmail_EnvDomainFallback(t *testing.T) {
	t.Setenv("MAIL_PLACEHOLDER_DOMAIN", "fallback.example")

	got, err := MakePlaceholderEmail(PlaceholderEmailParams{Vorname: "Anna", Nachname: "Schmidt", ID: "1"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got != "anna.schmidt.1@fallback.example" {
		t.Errorf("Expected anna.schmidt.1@fallback.example, got %s", got)
	}
}
