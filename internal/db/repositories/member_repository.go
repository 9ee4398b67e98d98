package repositories

import (
	"context"
	"fmt"
	"strings"

	"verbindung/mitgliederamt/internal/constants"
	"verbindung/mitgliederamt/internal/models/entities"

	"github.com/jmoiron/sqlx"
)

// MemberListFilter narrows the member list query. Empty slices mean no
// filter; Hausverein is "yes", "no" or empty.
type MemberListFilter struct {
	Gruppen    []string
	Status     []string
	Hausverein string
}

type MemberRepository struct {
	db *sqlx.DB
}

func NewMemberRepository(db *sqlx.DB) *MemberRepository {
	return &MemberRepository{db}
}

func (r *MemberRepository) FindByID(ctx context.Context, id int) (*entities.Member, error) {
	var m entities.Member
	err := r.db.QueryRowxContext(ctx, constants.GetMemberByID, id).StructScan(&m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MemberRepository) FindByEmail(ctx context.Context, email string) (*entities.Member, error) {
	var m entities.Member
	err := r.db.QueryRowxContext(ctx, constants.GetMemberByEmail, email).StructScan(&m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns a field projection of the member table ordered by id.
// fields must already be validated against constants.AllMemberFields; the
// repository does not re-check, it only quotes.
func (r *MemberRepository) List(ctx context.Context, fields []string, filter MemberListFilter) ([]map[string]any, error) {
	if len(fields) == 0 {
		fields = constants.DefaultListFields
	}

	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + f + `"`
	}

	var where []string
	var args []any

	if len(filter.Gruppen) > 0 {
		placeholders := make([]string, len(filter.Gruppen))
		for i, g := range filter.Gruppen {
			args = append(args, firstChar(g))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		where = append(where, "gruppe IN ("+strings.Join(placeholders, ", ")+")")
	}

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			args = append(args, s)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		where = append(where, "status IN ("+strings.Join(placeholders, ", ")+")")
	}

	switch filter.Hausverein {
	case "yes":
		where = append(where, "hausvereinsmitglied = TRUE")
	case "no":
		where = append(where, "hausvereinsmitglied = FALSE")
	}

	query := "SELECT " + strings.Join(quoted, ", ") + " FROM base_person"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id ASC"

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []map[string]any
	for rows.Next() {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		// MapScan returns []byte for text columns; make them JSON friendly
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func firstChar(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	return string(runes[0])
}
