package dtos

// APIResponse is the standard JSON envelope for all API endpoints
type APIResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message,omitempty"`
	ResponseTime string `json:"response_time,omitempty"`
	Data         any    `json:"data,omitempty"`
}

// RefOptionDTO mirrors a reference-table row in API responses
type RefOptionDTO struct {
	Bezeichnung  string  `json:"bezeichnung"`
	Beschreibung *string `json:"beschreibung"`
}

// MemberListResponse carries a field-projected member list plus optional
// filter metadata
type MemberListResponse struct {
	Fields        []string          `json:"fields"`
	Labels        map[string]string `json:"labels"`
	Data          []map[string]any  `json:"data"`
	StatusOptions []RefOptionDTO    `json:"statusOptions,omitempty"`
	GroupOptions  []RefOptionDTO    `json:"groupOptions,omitempty"`
}

// MemberDetailResponse is a single record plus the editable field list
type MemberDetailResponse struct {
	Data          any               `json:"data"`
	Editable      []string          `json:"editable"`
	Labels        map[string]string `json:"labels"`
	StatusOptions []RefOptionDTO    `json:"statusOptions"`
	GroupOptions  []RefOptionDTO    `json:"groupOptions"`
}

// GroupResolution records how a local group reference was translated to a
// Keycloak group id
type GroupResolution struct {
	ID     string `json:"id,omitempty"`
	Source string `json:"source"` // "uuid", "name" or "none"
	Raw    string `json:"raw,omitempty"`
}

// GroupSyncResult reports both sides of a group-membership move
// independently. The remove/add pair is not transactional upstream, so a
// partial outcome (removed but not added, or vice versa) is a valid result
// that callers must surface.
type GroupSyncResult struct {
	Removed       *bool            `json:"removed,omitempty"`
	Added         *bool            `json:"added,omitempty"`
	SkippedReason string           `json:"skippedReason,omitempty"`
	EnvIncomplete bool             `json:"envIncomplete,omitempty"`
	OldResolved   *GroupResolution `json:"oldResolved,omitempty"`
	NewResolved   *GroupResolution `json:"newResolved,omitempty"`
}

// UpdateMemberResponse returns the committed local record together with the
// best-effort IdP group sync outcome
type UpdateMemberResponse struct {
	Data      any              `json:"data"`
	GroupSync *GroupSyncResult `json:"groupSync,omitempty"`
}

// CreateMemberResponse returns the new record and whether a fresh IdP
// account was created (false when an existing account was linked)
type CreateMemberResponse struct {
	Data           any    `json:"data"`
	KeycloakID     string `json:"keycloak_id"`
	AccountCreated bool   `json:"accountCreated"`
}

// SyncChange is one member's entry in the bulk reconciliation log
type SyncChange struct {
	ID       int     `json:"id"`
	OldEmail *string `json:"oldEmail"`
	NewEmail string  `json:"newEmail"`
	Skipped  string  `json:"skipped,omitempty"`
}

// SyncSummary is the structured result of a bulk reconciliation run. The
// run is best-effort: per-member failures land in Changes, never abort the
// batch.
type SyncSummary struct {
	Total             int          `json:"total"`
	Attempted         int          `json:"attempted"`
	UsersCreated      int          `json:"usersCreated"`
	Updated           int          `json:"updated"`
	DummyEmailsSet    int          `json:"dummyEmailsSet"`
	AttributesUpdated int          `json:"attributesUpdated"`
	Changes           []SyncChange `json:"changes"`
}
