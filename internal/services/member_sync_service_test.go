package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"verbindung/mitgliederamt/internal/config"
	"verbindung/mitgliederamt/internal/constants"
	"verbindung/mitgliederamt/internal/db/repositories"
	"verbindung/mitgliederamt/internal/models/dtos"
	gormModels "verbindung/mitgliederamt/internal/models/gorm"
	"verbindung/mitgliederamt/internal/providers"
)

type fakeAccountProvider struct {
	createResult *providers.CreateUserResult
	createErr    error
	createCalls  []string
	users        map[string]*providers.KeycloakUser
	deleted      []string
	attrCalls    map[string]map[string]any
	emailCalls   map[string]string
	emailErr     error
}

func newFakeAccountProvider() *fakeAccountProvider {
	return &fakeAccountProvider{
		createResult: &providers.CreateUserResult{ID: "kc-new", Created: true},
		users:        map[string]*providers.KeycloakUser{},
		attrCalls:    map[string]map[string]any{},
		emailCalls:   map[string]string{},
	}
}

func (f *fakeAccountProvider) CreateUser(ctx context.Context, email, firstName, lastName string) (*providers.CreateUserResult, error) {
	f.createCalls = append(f.createCalls, email)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createResult, nil
}

func (f *fakeAccountProvider) FetchUsersBatch(ctx context.Context, ids []string) map[string]*providers.KeycloakUser {
	result := make(map[string]*providers.KeycloakUser, len(ids))
	for _, id := range ids {
		result[id] = f.users[id]
	}
	return result
}

func (f *fakeAccountProvider) DeleteUser(ctx context.Context, id string) bool {
	f.deleted = append(f.deleted, id)
	return true
}

func (f *fakeAccountProvider) UpdateUserAttributes(ctx context.Context, id string, attrs map[string]any) error {
	f.attrCalls[id] = attrs
	return nil
}

func (f *fakeAccountProvider) UpdateUserEmail(ctx context.Context, id, email, username string, firstName, lastName *string) error {
	if f.emailErr != nil {
		return f.emailErr
	}
	f.emailCalls[id] = email
	return nil
}

type fakeGroupSyncer struct {
	calls  [][3]string
	result dtos.GroupSyncResult
}

func (f *fakeGroupSyncer) SyncUserGroupChange(ctx context.Context, accountID, oldRef, newRef string) dtos.GroupSyncResult {
	f.calls = append(f.calls, [3]string{accountID, oldRef, newRef})
	return f.result
}

func setupEngineDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&gormModels.Member{}, &gormModels.Gruppe{}, &gormModels.Status{}))
	return db
}

func newTestEngine(t *testing.T, db *gorm.DB) (*MemberSyncService, *fakeAccountProvider, *fakeGroupSyncer) {
	t.Helper()
	provider := newFakeAccountProvider()
	groups := &fakeGroupSyncer{}
	engine := &MemberSyncService{
		Repo:     repositories.NewMemberRepositoryGORM(db),
		Provider: provider,
		Groups:   groups,
		Config: &config.KeycloakConfig{
			BaseURL:      "http://keycloak.local",
			Realm:        "verein",
			ClientID:     "mitgliederamt",
			ClientSecret: "secret",
		},
	}
	return engine, provider, groups
}

func strPtr(s string) *string { return &s }

func TestCreateMemberWithAccount_EmailFirst(t *testing.T) {
	db := setupEngineDB(t)
	engine, provider, _ := newTestEngine(t, db)

	m := &gormModels.Member{
		Vorname: strPtr("Anna"),
		Name:    strPtr("Schmidt"),
		Email:   strPtr("anna@verein.example"),
	}

	res, err := engine.CreateMemberWithAccount(context.Background(), m)
	require.NoError(t, err)

	assert.Equal(t, "kc-new", res.KeycloakID)
	assert.True(t, res.AccountCreated)
	assert.Equal(t, []string{"anna@verein.example"}, provider.createCalls)

	var stored gormModels.Member
	require.NoError(t, db.First(&stored, m.ID).Error)
	require.NotNil(t, stored.KeycloakID)
	assert.Equal(t, "kc-new", *stored.KeycloakID)
}

func TestCreateMemberWithAccount_LocalConflictRollsBackAccount(t *testing.T) {
	db := setupEngineDB(t)
	engine, provider, _ := newTestEngine(t, db)

	require.NoError(t, db.Create(&gormModels.Member{Email: strPtr("anna@verein.example")}).Error)

	_, err := engine.CreateMemberWithAccount(context.Background(), &gormModels.Member{
		Email: strPtr("anna@verein.example"),
	})
	require.Error(t, err)

	var perr *providers.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, constants.ErrCodeLocalConflict, perr.Code)
	assert.Equal(t, []string{"kc-new"}, provider.deleted, "fresh account must be deleted on rollback")

	var count int64
	db.Model(&gormModels.Member{}).Count(&count)
	assert.EqualValues(t, 1, count, "only the pre-existing row may remain")
}

func TestCreateMemberWithAccount_ExistingAccountNotDeletedOnRollback(t *testing.T) {
	db := setupEngineDB(t)
	engine, provider, _ := newTestEngine(t, db)

	provider.createResult = &providers.CreateUserResult{ID: "kc-old", Created: false}
	require.NoError(t, db.Create(&gormModels.Member{Email: strPtr("anna@verein.example")}).Error)

	_, err := engine.CreateMemberWithAccount(context.Background(), &gormModels.Member{
		Email: strPtr("anna@verein.example"),
	})
	require.Error(t, err)
	assert.Empty(t, provider.deleted, "a resolved pre-existing account must survive the rollback")
}

func TestCreateMemberWithAccount_LocalFirstPlaceholder(t *testing.T) {
	t.Setenv("MAIL_PLACEHOLDER_DOMAIN", "verein.example")
	db := setupEngineDB(t)
	engine, provider, _ := newTestEngine(t, db)

	m := &gormModels.Member{
		Vorname: strPtr("Jörg"),
		Name:    strPtr("Weiß"),
	}

	res, err := engine.CreateMemberWithAccount(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, "kc-new", res.KeycloakID)

	expected := fmt.Sprintf("joerg.weiss.%d@verein.example", m.ID)
	assert.Equal(t, []string{expected}, provider.createCalls)

	var stored gormModels.Member
	require.NoError(t, db.First(&stored, m.ID).Error)
	require.NotNil(t, stored.Email)
	assert.Equal(t, expected, *stored.Email)
	require.NotNil(t, stored.KeycloakID)
	assert.Equal(t, "kc-new", *stored.KeycloakID)
}

func TestCreateMemberWithAccount_LocalFirstRollsBackRow(t *testing.T) {
	t.Setenv("MAIL_PLACEHOLDER_DOMAIN", "verein.example")
	db := setupEngineDB(t)
	engine, provider, _ := newTestEngine(t, db)

	provider.createErr = &providers.ProviderError{
		Code:    constants.ErrCodeUpstreamUnavailable,
		Message: "down",
	}

	_, err := engine.CreateMemberWithAccount(context.Background(), &gormModels.Member{
		Vorname: strPtr("Anna"),
		Name:    strPtr("Schmidt"),
	})
	require.Error(t, err)

	var count int64
	db.Model(&gormModels.Member{}).Count(&count)
	assert.Zero(t, count, "row insert must be compensated when no account can be created")
}

func TestUpdateMember_GroupChangeTriggersSync(t *testing.T) {
	db := setupEngineDB(t)
	engine, _, groups := newTestEngine(t, db)

	require.NoError(t, db.Create(&gormModels.Gruppe{Bezeichnung: "B", Beschreibung: strPtr("Aktivitas")}).Error)
	require.NoError(t, db.Create(&gormModels.Gruppe{Bezeichnung: "F", Beschreibung: strPtr("Philister")}).Error)

	m := &gormModels.Member{
		Gruppe:     strPtr("B"),
		KeycloakID: strPtr("kc-1"),
	}
	require.NoError(t, db.Create(m).Error)

	added := true
	groups.result = dtos.GroupSyncResult{Added: &added}

	res, err := engine.UpdateMember(context.Background(), m.ID, map[string]any{"gruppe": "F"})
	require.NoError(t, err)

	require.Len(t, groups.calls, 1)
	assert.Equal(t, [3]string{"kc-1", "Aktivitas", "Philister"}, groups.calls[0])
	require.NotNil(t, res.GroupSync)

	var stored gormModels.Member
	require.NoError(t, db.First(&stored, m.ID).Error)
	assert.Equal(t, "F", *stored.Gruppe, "local update commits regardless of the sync outcome")
}

func TestUpdateMember_NoGroupSyncWithoutChange(t *testing.T) {
	db := setupEngineDB(t)
	engine, _, groups := newTestEngine(t, db)

	m := &gormModels.Member{Gruppe: strPtr("B"), KeycloakID: strPtr("kc-1")}
	require.NoError(t, db.Create(m).Error)

	res, err := engine.UpdateMember(context.Background(), m.ID, map[string]any{"ort1": "Bonn"})
	require.NoError(t, err)

	assert.Empty(t, groups.calls)
	assert.Nil(t, res.GroupSync)
}

func TestUpdateMember_CoercionAndAllowList(t *testing.T) {
	db := setupEngineDB(t)
	engine, _, _ := newTestEngine(t, db)

	m := &gormModels.Member{KeycloakID: strPtr("kc-1")}
	require.NoError(t, db.Create(m).Error)

	_, err := engine.UpdateMember(context.Background(), m.ID, map[string]any{
		"datum_geburtstag":     "1990-04-01",
		"anschreiben_zusenden": "true",
		"region1":              "",
		"keycloak_id":          "kc-evil",
		"gruppe":               "Bursche",
	})
	require.NoError(t, err)

	var stored gormModels.Member
	require.NoError(t, db.First(&stored, m.ID).Error)
	require.NotNil(t, stored.DatumGeburtstag)
	assert.Equal(t, "1990-04-01", stored.DatumGeburtstag.Format("2006-01-02"))
	require.NotNil(t, stored.AnschreibenZusenden)
	assert.True(t, *stored.AnschreibenZusenden)
	assert.Nil(t, stored.Region1)
	assert.Equal(t, "kc-1", *stored.KeycloakID, "keycloak_id is not editable")
	assert.Equal(t, "B", *stored.Gruppe, "group codes are single characters")
}

func TestUpdateMember_NotFound(t *testing.T) {
	db := setupEngineDB(t)
	engine, _, _ := newTestEngine(t, db)

	_, err := engine.UpdateMember(context.Background(), 4711, map[string]any{"ort1": "Bonn"})
	require.Error(t, err)

	var perr *providers.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, constants.ErrCodeNotFound, perr.Code)
}

func TestSyncAll_ConfigIncomplete(t *testing.T) {
	db := setupEngineDB(t)
	engine, _, _ := newTestEngine(t, db)
	engine.Config = &config.KeycloakConfig{}

	_, err := engine.SyncAll(context.Background())
	require.Error(t, err)

	var perr *providers.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, constants.ErrCodeConfigIncomplete, perr.Code)
}

func TestSyncAll_LinkedMembers(t *testing.T) {
	t.Setenv("MAIL_PLACEHOLDER_DOMAIN", "verein.example")
	db := setupEngineDB(t)
	engine, provider, _ := newTestEngine(t, db)

	hv := true
	gone := &gormModels.Member{Email: strPtr("weg@verein.example"), KeycloakID: strPtr("kc-gone")}
	noMail := &gormModels.Member{Vorname: strPtr("Anna"), Name: strPtr("Schmidt"), KeycloakID: strPtr("kc-nomail")}
	drift := &gormModels.Member{
		Email:               strPtr("alt@verein.example"),
		KeycloakID:          strPtr("kc-drift"),
		Strasse1:            strPtr("Hauptstr. 1"),
		Plz1:                strPtr("53111"),
		Ort1:                strPtr("Bonn"),
		Status:              strPtr("Aktiv"),
		Hausvereinsmitglied: &hv,
	}
	for _, m := range []*gormModels.Member{gone, noMail, drift} {
		require.NoError(t, db.Create(m).Error)
	}

	provider.users["kc-nomail"] = &providers.KeycloakUser{ID: "kc-nomail"}
	provider.users["kc-drift"] = &providers.KeycloakUser{ID: "kc-drift", Email: "neu@verein.example"}

	summary, err := engine.SyncAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 3, summary.Attempted)

	// Out-of-band deleted account: skipped, batch continues
	var skipped *dtos.SyncChange
	for i := range summary.Changes {
		if summary.Changes[i].ID == gone.ID {
			skipped = &summary.Changes[i]
		}
	}
	require.NotNil(t, skipped)
	assert.NotEmpty(t, skipped.Skipped)

	// Account without email gets the placeholder pushed up; the local row
	// stays untouched until a later run pulls it back down
	assert.Equal(t, 1, summary.DummyEmailsSet)
	expected := fmt.Sprintf("anna.schmidt.%d@verein.example", noMail.ID)
	assert.Equal(t, expected, provider.emailCalls["kc-nomail"])

	var storedNoMail gormModels.Member
	require.NoError(t, db.First(&storedNoMail, noMail.ID).Error)
	assert.Nil(t, storedNoMail.Email)

	// Account email wins over the drifted local one
	var storedDrift gormModels.Member
	require.NoError(t, db.First(&storedDrift, drift.ID).Error)
	assert.Equal(t, "neu@verein.example", *storedDrift.Email)

	// Address attributes are pushed for reachable accounts
	assert.Equal(t, 2, summary.AttributesUpdated)
	attrs := provider.attrCalls["kc-drift"]
	require.NotNil(t, attrs)
	assert.Equal(t, "53111", attrs["plz"])
	assert.Equal(t, "Bonn", attrs["ort"])
	assert.Equal(t, "Aktiv", attrs["status"])
	assert.Equal(t, 1, attrs["hv-mitglied"])

	// Unset flag deletes the attribute instead of writing 0
	noMailAttrs := provider.attrCalls["kc-nomail"]
	require.NotNil(t, noMailAttrs)
	require.Contains(t, noMailAttrs, "hv-mitglied")
	assert.Nil(t, noMailAttrs["hv-mitglied"])
}

func TestSyncAll_LinkedEmailConflictSkips(t *testing.T) {
	db := setupEngineDB(t)
	engine, provider, _ := newTestEngine(t, db)

	taken := &gormModels.Member{Email: strPtr("neu@verein.example")}
	drift := &gormModels.Member{Email: strPtr("alt@verein.example"), KeycloakID: strPtr("kc-drift")}
	require.NoError(t, db.Create(taken).Error)
	require.NoError(t, db.Create(drift).Error)

	provider.users["kc-drift"] = &providers.KeycloakUser{ID: "kc-drift", Email: "neu@verein.example"}

	summary, err := engine.SyncAll(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, summary.Changes)
	var change *dtos.SyncChange
	for i := range summary.Changes {
		if summary.Changes[i].ID == drift.ID {
			change = &summary.Changes[i]
		}
	}
	require.NotNil(t, change)
	assert.Equal(t, "Unique Konflikt", change.Skipped)

	var stored gormModels.Member
	require.NoError(t, db.First(&stored, drift.ID).Error)
	assert.Equal(t, "alt@verein.example", *stored.Email, "conflicting takeover must not overwrite")

	// The attribute push is independent of the failed email takeover
	assert.Equal(t, 1, summary.AttributesUpdated)
	require.NotNil(t, provider.attrCalls["kc-drift"])
}

func TestSyncAll_UnlinkedMembersGetAccounts(t *testing.T) {
	db := setupEngineDB(t)
	engine, provider, _ := newTestEngine(t, db)

	m := &gormModels.Member{Vorname: strPtr("Max"), Name: strPtr("Mustermann"), Email: strPtr("max@verein.example")}
	require.NoError(t, db.Create(m).Error)

	summary, err := engine.SyncAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.UsersCreated)
	assert.Equal(t, []string{"max@verein.example"}, provider.createCalls)

	var stored gormModels.Member
	require.NoError(t, db.First(&stored, m.ID).Error)
	require.NotNil(t, stored.KeycloakID)
	assert.Equal(t, "kc-new", *stored.KeycloakID)
}

func TestSyncAll_UnlinkedCreateFailureContinues(t *testing.T) {
	db := setupEngineDB(t)
	engine, provider, _ := newTestEngine(t, db)

	provider.createErr = errors.New("boom")
	require.NoError(t, db.Create(&gormModels.Member{Email: strPtr("a@verein.example")}).Error)
	require.NoError(t, db.Create(&gormModels.Member{Email: strPtr("b@verein.example")}).Error)

	summary, err := engine.SyncAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Total)
	assert.Zero(t, summary.Attempted, "only the linked pass counts as attempted")
	assert.Zero(t, summary.UsersCreated)
	assert.Len(t, summary.Changes, 2)
	for _, c := range summary.Changes {
		assert.NotEmpty(t, c.Skipped)
	}
}

func TestSyncAll_UnlinkedPlaceholderCounted(t *testing.T) {
	t.Setenv("MAIL_PLACEHOLDER_DOMAIN", "verein.example")
	db := setupEngineDB(t)
	engine, provider, _ := newTestEngine(t, db)

	m := &gormModels.Member{Vorname: strPtr("Jörg"), Name: strPtr("Weiß")}
	require.NoError(t, db.Create(m).Error)

	summary, err := engine.SyncAll(context.Background())
	require.NoError(t, err)

	expected := fmt.Sprintf("joerg.weiss.%d@verein.example", m.ID)
	assert.Equal(t, []string{expected}, provider.createCalls)
	assert.Equal(t, 1, summary.UsersCreated)
	assert.Equal(t, 1, summary.DummyEmailsSet, "placeholder creates count as dummy emails")
}
