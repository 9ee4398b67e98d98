package constants

import "strings"

// Member field enumeration. Mirrors the base_person schema; the list order
// is the canonical column order for exports and list views.
var AllMemberFields = []string{
	"id", "anrede", "titel", "rang", "vorname", "praefix", "name", "suffix",
	"geburtsname", "zusatz1", "strasse1", "ort1", "plz1", "land1", "telefon1",
	"datum_adresse1_stand", "zusatz2", "strasse2", "ort2", "plz2", "land2",
	"telefon2", "datum_adresse2_stand", "region1", "region2", "mobiltelefon",
	"email", "skype", "webseite", "datum_geburtstag", "beruf", "heirat_partner",
	"heirat_datum", "tod_datum", "tod_ort", "gruppe", "datum_gruppe_stand",
	"status", "semester_reception", "semester_promotion",
	"semester_philistrierung", "semester_aufnahme", "semester_fusion",
	"austritt_datum", "spitzname", "leibmitglied", "anschreiben_zusenden",
	"spendenquittung_zusenden", "vita", "bemerkung", "password_hash",
	"validationkey", "keycloak_id", "hausvereinsmitglied",
}

// DefaultListFields are the columns shown when the caller requests none
var DefaultListFields = []string{
	"id", "vorname", "name", "strasse1", "plz1", "ort1", "datum_geburtstag", "email",
}

// DateFields hold DATE/TIMESTAMP columns; incoming values are coerced to dates
var DateFields = map[string]bool{
	"datum_adresse1_stand": true,
	"datum_adresse2_stand": true,
	"datum_geburtstag":     true,
	"heirat_datum":         true,
	"tod_datum":            true,
	"datum_gruppe_stand":   true,
	"austritt_datum":       true,
}

// BooleanFields coerce "true"/"false" strings
var BooleanFields = map[string]bool{
	"anschreiben_zusenden":     true,
	"spendenquittung_zusenden": true,
	"hausvereinsmitglied":      true,
}

// IntFields coerce numeric strings, empty becomes NULL
var IntFields = map[string]bool{
	"region1":        true,
	"region2":        true,
	"heirat_partner": true,
}

// editableExcluded: id is the primary key, leibmitglied is maintained by a
// legacy batch job, keycloak_id belongs to the reconciliation engine only.
var editableExcluded = map[string]bool{
	"id":           true,
	"leibmitglied": true,
	"keycloak_id":  true,
}

// EditableMemberFields is the allow-list for PATCH updates
var EditableMemberFields = func() map[string]bool {
	m := make(map[string]bool, len(AllMemberFields))
	for _, f := range AllMemberFields {
		if !editableExcluded[f] {
			m[f] = true
		}
	}
	return m
}()

// IsMemberField reports whether f names a known member column
func IsMemberField(f string) bool {
	for _, known := range AllMemberFields {
		if known == f {
			return true
		}
	}
	return false
}

// fieldLabels maps columns to display labels where they differ from the
// underscore-to-space default
var fieldLabels = map[string]string{
	"name":                     "Name (Nachname)",
	"vorname":                  "Vorname",
	"zusatz1":                  "Adresszusatz",
	"datum_geburtstag":         "Geburtstag",
	"datum_adresse1_stand":     "Adr1 Stand",
	"datum_adresse2_stand":     "Adr2 Stand",
	"datum_gruppe_stand":       "Gruppe Stand",
	"anschreiben_zusenden":     "Anschreiben",
	"spendenquittung_zusenden": "Spendenquittung",
	"hausvereinsmitglied":      "Hausverein",
}

// LabelFor returns the display label for a member column
func LabelFor(field string) string {
	if label, ok := fieldLabels[field]; ok {
		return label
	}
	return strings.ReplaceAll(field, "_", " ")
}
