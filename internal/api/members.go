package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"verbindung/mitgliederamt/internal/common"
	"verbindung/mitgliederamt/internal/constants"
	"verbindung/mitgliederamt/internal/db/repositories"
	"verbindung/mitgliederamt/internal/models/dtos"
	"verbindung/mitgliederamt/internal/models/entities"
	gormModels "verbindung/mitgliederamt/internal/models/gorm"
)

// ListMembersHandler handles GET /api/v1/mitglieder
//
// Query parameters: fields (comma separated column names), gruppe and
// status (repeatable), hvm (yes/no), meta=1 to include the filter option
// lists.
func ListMembersHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		fields := parseFieldsParam(r.URL.Query().Get("fields"))

		filter := repositories.MemberListFilter{
			Gruppen:    queryValues(r, "gruppe"),
			Status:     queryValues(r, "status"),
			Hausverein: r.URL.Query().Get("hvm"),
		}

		rows, err := deps.Repo.Member.List(r.Context(), fields, filter)
		if err != nil {
			common.RespondError(w, initTime, err, "Mitgliederliste konnte nicht geladen werden", http.StatusInternalServerError)
			return
		}
		if rows == nil {
			rows = []map[string]any{}
		}

		response := dtos.MemberListResponse{
			Fields: fields,
			Labels: fieldLabelMap(fields),
			Data:   rows,
		}

		if r.URL.Query().Get("meta") == "1" {
			status, gruppen, err := loadRefOptions(r, deps)
			if err != nil {
				common.RespondError(w, initTime, err, "Auswahllisten konnten nicht geladen werden", http.StatusInternalServerError)
				return
			}
			response.StatusOptions = status
			response.GroupOptions = gruppen
		}

		common.RespondSuccess(w, initTime, "Mitgliederliste geladen", response)
	}
}

// GetMemberHandler handles GET /api/v1/mitglieder/{id}
func GetMemberHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			common.RespondError(w, initTime, nil, "Ungültige Mitglieds-ID", http.StatusBadRequest)
			return
		}

		member, err := deps.Repo.Member.FindByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				common.RespondError(w, initTime, nil, "Mitglied nicht gefunden", http.StatusNotFound)
				return
			}
			common.RespondError(w, initTime, err, "Mitglied konnte nicht geladen werden", http.StatusInternalServerError)
			return
		}

		status, gruppen, err := loadRefOptions(r, deps)
		if err != nil {
			common.RespondError(w, initTime, err, "Auswahllisten konnten nicht geladen werden", http.StatusInternalServerError)
			return
		}

		editable := editableFieldList()
		common.RespondSuccess(w, initTime, "Mitglied geladen", dtos.MemberDetailResponse{
			Data:          member,
			Editable:      editable,
			Labels:        fieldLabelMap(editable),
			StatusOptions: status,
			GroupOptions:  gruppen,
		})
	}
}

// CreateMemberHandler handles POST /api/v1/mitglieder
func CreateMemberHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var member gormModels.Member
		if err := json.NewDecoder(r.Body).Decode(&member); err != nil {
			common.RespondError(w, initTime, nil, "Ungültiger Request Body", http.StatusBadRequest)
			return
		}
		member.ID = 0
		member.KeycloakID = nil

		result, err := deps.Services.Engine.CreateMemberWithAccount(r.Context(), &member)
		if err != nil {
			common.RespondError(w, initTime, err, "Mitglied konnte nicht angelegt werden", statusForError(err))
			return
		}

		if result.AccountCreated {
			deps.Metrics.AccountsCreatedTotal.Inc()
		}

		common.RespondSuccess(w, initTime, "Mitglied angelegt", result, http.StatusCreated)
	}
}

// UpdateMemberHandler handles PATCH /api/v1/mitglieder/{id}
func UpdateMemberHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			common.RespondError(w, initTime, nil, "Ungültige Mitglieds-ID", http.StatusBadRequest)
			return
		}

		var fields map[string]any
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			common.RespondError(w, initTime, nil, "Ungültiger Request Body", http.StatusBadRequest)
			return
		}

		result, err := deps.Services.Engine.UpdateMember(r.Context(), id, fields)
		if err != nil {
			common.RespondError(w, initTime, err, "Mitglied konnte nicht aktualisiert werden", statusForError(err))
			return
		}

		common.RespondSuccess(w, initTime, "Mitglied aktualisiert", result)
	}
}

// parseFieldsParam validates the requested projection against the known
// columns. id and vorname are always included so every row stays
// addressable in clients.
func parseFieldsParam(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return constants.DefaultListFields
	}

	seen := map[string]bool{}
	fields := []string{"id", "vorname"}
	seen["id"], seen["vorname"] = true, true

	for _, f := range strings.Split(raw, ",") {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] || !constants.IsMemberField(f) {
			continue
		}
		seen[f] = true
		fields = append(fields, f)
	}
	return fields
}

func queryValues(r *http.Request, key string) []string {
	var values []string
	for _, raw := range r.URL.Query()[key] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
	}
	return values
}

func fieldLabelMap(fields []string) map[string]string {
	labels := make(map[string]string, len(fields))
	for _, f := range fields {
		labels[f] = constants.LabelFor(f)
	}
	return labels
}

// editableFieldList keeps the canonical column order
func editableFieldList() []string {
	fields := make([]string, 0, len(constants.AllMemberFields))
	for _, f := range constants.AllMemberFields {
		if constants.EditableMemberFields[f] {
			fields = append(fields, f)
		}
	}
	return fields
}

func loadRefOptions(r *http.Request, deps *Dependencies) ([]dtos.RefOptionDTO, []dtos.RefOptionDTO, error) {
	status, err := deps.Repo.Ref.AllStatus(r.Context())
	if err != nil {
		return nil, nil, err
	}
	gruppen, err := deps.Repo.Ref.AllGruppen(r.Context())
	if err != nil {
		return nil, nil, err
	}
	return toRefDTOs(status), toRefDTOs(gruppen), nil
}

func toRefDTOs(opts []entities.RefOption) []dtos.RefOptionDTO {
	result := make([]dtos.RefOptionDTO, len(opts))
	for i, o := range opts {
		result[i] = dtos.RefOptionDTO{
			Bezeichnung:  o.Bezeichnung,
			Beschreibung: o.Beschreibung,
		}
	}
	return result
}
