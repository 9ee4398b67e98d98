package gorm

import "time"

// Member is the base_person row: one record per fraternity member.
// keycloak_id is owned by the reconciliation engine and never written by
// general edit operations.
type Member struct {
	ID                      int        `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Anrede                  *string    `gorm:"column:anrede" json:"anrede"`
	Titel                   *string    `gorm:"column:titel" json:"titel"`
	Rang                    *string    `gorm:"column:rang" json:"rang"`
	Vorname                 *string    `gorm:"column:vorname" json:"vorname"`
	Praefix                 *string    `gorm:"column:praefix" json:"praefix"`
	Name                    *string    `gorm:"column:name" json:"name"`
	Suffix                  *string    `gorm:"column:suffix" json:"suffix"`
	Geburtsname             *string    `gorm:"column:geburtsname" json:"geburtsname"`
	Zusatz1                 *string    `gorm:"column:zusatz1" json:"zusatz1"`
	Strasse1                *string    `gorm:"column:strasse1" json:"strasse1"`
	Ort1                    *string    `gorm:"column:ort1" json:"ort1"`
	Plz1                    *string    `gorm:"column:plz1" json:"plz1"`
	Land1                   *string    `gorm:"column:land1" json:"land1"`
	Telefon1                *string    `gorm:"column:telefon1" json:"telefon1"`
	DatumAdresse1Stand      *time.Time `gorm:"column:datum_adresse1_stand" json:"datum_adresse1_stand"`
	Zusatz2                 *string    `gorm:"column:zusatz2" json:"zusatz2"`
	Strasse2                *string    `gorm:"column:strasse2" json:"strasse2"`
	Ort2                    *string    `gorm:"column:ort2" json:"ort2"`
	Plz2                    *string    `gorm:"column:plz2" json:"plz2"`
	Land2                   *string    `gorm:"column:land2" json:"land2"`
	Telefon2                *string    `gorm:"column:telefon2" json:"telefon2"`
	DatumAdresse2Stand      *time.Time `gorm:"column:datum_adresse2_stand" json:"datum_adresse2_stand"`
	Region1                 *int       `gorm:"column:region1" json:"region1"`
	Region2                 *int       `gorm:"column:region2" json:"region2"`
	Mobiltelefon            *string    `gorm:"column:mobiltelefon" json:"mobiltelefon"`
	Email                   *string    `gorm:"column:email;uniqueIndex" json:"email"`
	Skype                   *string    `gorm:"column:skype" json:"skype"`
	Webseite                *string    `gorm:"column:webseite" json:"webseite"`
	DatumGeburtstag         *time.Time `gorm:"column:datum_geburtstag" json:"datum_geburtstag"`
	Beruf                   *string    `gorm:"column:beruf" json:"beruf"`
	HeiratPartner           *int       `gorm:"column:heirat_partner" json:"heirat_partner"`
	HeiratDatum             *time.Time `gorm:"column:heirat_datum" json:"heirat_datum"`
	TodDatum                *time.Time `gorm:"column:tod_datum" json:"tod_datum"`
	TodOrt                  *string    `gorm:"column:tod_ort" json:"tod_ort"`
	Gruppe                  *string    `gorm:"column:gruppe" json:"gruppe"`
	DatumGruppeStand        *time.Time `gorm:"column:datum_gruppe_stand" json:"datum_gruppe_stand"`
	Status                  *string    `gorm:"column:status" json:"status"`
	SemesterReception       *string    `gorm:"column:semester_reception" json:"semester_reception"`
	SemesterPromotion       *string    `gorm:"column:semester_promotion" json:"semester_promotion"`
	SemesterPhilistrierung  *string    `gorm:"column:semester_philistrierung" json:"semester_philistrierung"`
	SemesterAufnahme        *string    `gorm:"column:semester_aufnahme" json:"semester_aufnahme"`
	SemesterFusion          *string    `gorm:"column:semester_fusion" json:"semester_fusion"`
	AustrittDatum           *time.Time `gorm:"column:austritt_datum" json:"austritt_datum"`
	Spitzname               *string    `gorm:"column:spitzname" json:"spitzname"`
	Leibmitglied            *string    `gorm:"column:leibmitglied" json:"leibmitglied"`
	AnschreibenZusenden     *bool      `gorm:"column:anschreiben_zusenden" json:"anschreiben_zusenden"`
	SpendenquittungZusenden *bool      `gorm:"column:spendenquittung_zusenden" json:"spendenquittung_zusenden"`
	Vita                    *string    `gorm:"column:vita" json:"vita"`
	Bemerkung               *string    `gorm:"column:bemerkung" json:"bemerkung"`
	PasswordHash            *string    `gorm:"column:password_hash" json:"password_hash,omitempty"`
	Validationkey           *string    `gorm:"column:validationkey" json:"validationkey,omitempty"`
	KeycloakID              *string    `gorm:"column:keycloak_id;uniqueIndex" json:"keycloak_id"`
	Hausvereinsmitglied     *bool      `gorm:"column:hausvereinsmitglied" json:"hausvereinsmitglied"`
}

// TableName specifies the table name for GORM
func (Member) TableName() string {
	return "base_person"
}

// Gruppe is a reference row for the single-character group codes. The
// beschreibung column doubles as the Keycloak group reference (UUID or
// group name) used by the group sync.
type Gruppe struct {
	Bezeichnung  string  `gorm:"column:bezeichnung;primaryKey" json:"bezeichnung"`
	Beschreibung *string `gorm:"column:beschreibung" json:"beschreibung"`
}

func (Gruppe) TableName() string {
	return "base_gruppe"
}

// Status is a reference row for the free-form member status labels
type Status struct {
	Bezeichnung  string  `gorm:"column:bezeichnung;primaryKey" json:"bezeichnung"`
	Beschreibung *string `gorm:"column:beschreibung" json:"beschreibung"`
}

func (Status) TableName() string {
	return "base_status"
}
