package constants

const (
	GetMemberByID = `
	SELECT * FROM base_person WHERE id = $1
	`

	GetMemberByEmail = `
	SELECT * FROM base_person WHERE email = $1
	`

	GetAllGruppen = `
	SELECT bezeichnung, beschreibung FROM base_gruppe ORDER BY bezeichnung ASC
	`

	GetAllStatus = `
	SELECT bezeichnung, beschreibung FROM base_status ORDER BY bezeichnung ASC
	`
)
