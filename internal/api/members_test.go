package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"verbindung/mitgliederamt/internal/constants"
	"verbindung/mitgliederamt/internal/providers"
)

func TestParseFieldsParam(t *testing.T) {
	t.Run("empty falls back to defaults", func(t *testing.T) {
		assert.Equal(t, constants.DefaultListFields, parseFieldsParam(""))
	})

	t.Run("id and vorname are forced", func(t *testing.T) {
		fields := parseFieldsParam("email,gruppe")
		assert.Equal(t, []string{"id", "vorname", "email", "gruppe"}, fields)
	})

	t.Run("unknown columns are dropped", func(t *testing.T) {
		fields := parseFieldsParam("email,drop_table,;--")
		assert.Equal(t, []string{"id", "vorname", "email"}, fields)
	})

	t.Run("duplicates collapse", func(t *testing.T) {
		fields := parseFieldsParam("id,email,email,vorname")
		assert.Equal(t, []string{"id", "vorname", "email"}, fields)
	})
}

func TestEditableFieldList(t *testing.T) {
	fields := editableFieldList()

	assert.NotContains(t, fields, "id")
	assert.NotContains(t, fields, "keycloak_id")
	assert.NotContains(t, fields, "leibmitglied")
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "gruppe")
}

func TestFieldLabelMap(t *testing.T) {
	labels := fieldLabelMap([]string{"vorname", "datum_geburtstag", "heirat_datum"})

	assert.Equal(t, "Vorname", labels["vorname"])
	assert.Equal(t, "Geburtstag", labels["datum_geburtstag"])
	assert.Equal(t, "heirat datum", labels["heirat_datum"], "columns without a label fall back to the name")
	assert.Len(t, labels, 3)
}

func TestStatusForError(t *testing.T) {
	cases := []struct {
		code   string
		status int
	}{
		{constants.ErrCodeNotFound, http.StatusNotFound},
		{constants.ErrCodeLocalConflict, http.StatusConflict},
		{constants.ErrCodeUpstreamConflict, http.StatusConflict},
		{constants.ErrCodeConfigIncomplete, http.StatusServiceUnavailable},
		{constants.ErrCodeUpstreamUnavailable, http.StatusBadGateway},
		{constants.ErrCodeUpstreamRejected, http.StatusBadGateway},
		{constants.ErrCodeLocalFailure, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		err := &providers.ProviderError{Code: tc.code, Message: "x"}
		assert.Equal(t, tc.status, statusForError(err), tc.code)
	}

	assert.Equal(t, http.StatusInternalServerError, statusForError(assert.AnError))
}
