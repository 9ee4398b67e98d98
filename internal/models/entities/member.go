package entities

import "time"

// Member is the sqlx projection of a base_person row
type Member struct {
	ID                      int        `db:"id" json:"id"`
	Anrede                  *string    `db:"anrede" json:"anrede"`
	Titel                   *string    `db:"titel" json:"titel"`
	Rang                    *string    `db:"rang" json:"rang"`
	Vorname                 *string    `db:"vorname" json:"vorname"`
	Praefix                 *string    `db:"praefix" json:"praefix"`
	Name                    *string    `db:"name" json:"name"`
	Suffix                  *string    `db:"suffix" json:"suffix"`
	Geburtsname             *string    `db:"geburtsname" json:"geburtsname"`
	Zusatz1                 *string    `db:"zusatz1" json:"zusatz1"`
	Strasse1                *string    `db:"strasse1" json:"strasse1"`
	Ort1                    *string    `db:"ort1" json:"ort1"`
	Plz1                    *string    `db:"plz1" json:"plz1"`
	Land1                   *string    `db:"land1" json:"land1"`
	Telefon1                *string    `db:"telefon1" json:"telefon1"`
	DatumAdresse1Stand      *time.Time `db:"datum_adresse1_stand" json:"datum_adresse1_stand"`
	Zusatz2                 *string    `db:"zusatz2" json:"zusatz2"`
	Strasse2                *string    `db:"strasse2" json:"strasse2"`
	Ort2                    *string    `db:"ort2" json:"ort2"`
	Plz2                    *string    `db:"plz2" json:"plz2"`
	Land2                   *string    `db:"land2" json:"land2"`
	Telefon2                *string    `db:"telefon2" json:"telefon2"`
	DatumAdresse2Stand      *time.Time `db:"datum_adresse2_stand" json:"datum_adresse2_stand"`
	Region1                 *int       `db:"region1" json:"region1"`
	Region2                 *int       `db:"region2" json:"region2"`
	Mobiltelefon            *string    `db:"mobiltelefon" json:"mobiltelefon"`
	Email                   *string    `db:"email" json:"email"`
	Skype                   *string    `db:"skype" json:"skype"`
	Webseite                *string    `db:"webseite" json:"webseite"`
	DatumGeburtstag         *time.Time `db:"datum_geburtstag" json:"datum_geburtstag"`
	Beruf                   *string    `db:"beruf" json:"beruf"`
	HeiratPartner           *int       `db:"heirat_partner" json:"heirat_partner"`
	HeiratDatum             *time.Time `db:"heirat_datum" json:"heirat_datum"`
	TodDatum                *time.Time `db:"tod_datum" json:"tod_datum"`
	TodOrt                  *string    `db:"tod_ort" json:"tod_ort"`
	Gruppe                  *string    `db:"gruppe" json:"gruppe"`
	DatumGruppeStand        *time.Time `db:"datum_gruppe_stand" json:"datum_gruppe_stand"`
	Status                  *string    `db:"status" json:"status"`
	SemesterReception       *string    `db:"semester_reception" json:"semester_reception"`
	SemesterPromotion       *string    `db:"semester_promotion" json:"semester_promotion"`
	SemesterPhilistrierung  *string    `db:"semester_philistrierung" json:"semester_philistrierung"`
	SemesterAufnahme        *string    `db:"semester_aufnahme" json:"semester_aufnahme"`
	SemesterFusion          *string    `db:"semester_fusion" json:"semester_fusion"`
	AustrittDatum           *time.Time `db:"austritt_datum" json:"austritt_datum"`
	Spitzname               *string    `db:"spitzname" json:"spitzname"`
	Leibmitglied            *string    `db:"leibmitglied" json:"leibmitglied"`
	AnschreibenZusenden     *bool      `db:"anschreiben_zusenden" json:"anschreiben_zusenden"`
	SpendenquittungZusenden *bool      `db:"spendenquittung_zusenden" json:"spendenquittung_zusenden"`
	Vita                    *string    `db:"vita" json:"vita"`
	Bemerkung               *string    `db:"bemerkung" json:"bemerkung"`
	PasswordHash            *string    `db:"password_hash" json:"password_hash,omitempty"`
	Validationkey           *string    `db:"validationkey" json:"validationkey,omitempty"`
	KeycloakID              *string    `db:"keycloak_id" json:"keycloak_id"`
	Hausvereinsmitglied     *bool      `db:"hausvereinsmitglied" json:"hausvereinsmitglied"`
}

// RefOption is a bezeichnung/beschreibung pair from the base_gruppe and
// base_status reference tables
type RefOption struct {
	Bezeichnung  string  `db:"bezeichnung" json:"bezeichnung"`
	Beschreibung *string `db:"beschreibung" json:"beschreibung"`
}
