package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"verbindung/mitgliederamt/internal/common"
	"verbindung/mitgliederamt/internal/config"
	"verbindung/mitgliederamt/internal/providers"
)

type fakeGroupDirectory struct {
	groups       []providers.KeycloakGroup
	searchErr    error
	searchCalls  int
	addCalls     []string
	removeCalls  []string
	addResult    bool
	removeResult bool
}

func (f *fakeGroupDirectory) SearchGroups(ctx context.Context, name string) ([]providers.KeycloakGroup, error) {
	f.searchCalls++
	return f.groups, f.searchErr
}

func (f *fakeGroupDirectory) AddUserToGroup(ctx context.Context, userID, groupID string) bool {
	f.addCalls = append(f.addCalls, groupID)
	return f.addResult
}

func (f *fakeGroupDirectory) RemoveUserFromGroup(ctx context.Context, userID, groupID string) bool {
	f.removeCalls = append(f.removeCalls, groupID)
	return f.removeResult
}

func newTestGroupSync(dir *fakeGroupDirectory) *GroupSyncService {
	return &GroupSyncService{
		Provider: dir,
		Config: &config.KeycloakConfig{
			BaseURL:      "http://keycloak.local",
			Realm:        "verein",
			ClientID:     "mitgliederamt",
			ClientSecret: "secret",
		},
		Cache: common.NewCacheService(60, 600),
	}
}

func TestNormalizeGroupIdentifier_UUIDPassthrough(t *testing.T) {
	dir := &fakeGroupDirectory{}
	svc := newTestGroupSync(dir)

	res := svc.NormalizeGroupIdentifier(context.Background(), "3f0c9c6e-9f41-4c87-8f7a-2d1f5b6a7c8d")

	assert.Equal(t, "uuid", res.Source)
	assert.Equal(t, "3f0c9c6e-9f41-4c87-8f7a-2d1f5b6a7c8d", res.ID)
	assert.Zero(t, dir.searchCalls, "UUID references must not hit the search endpoint")
}

func TestNormalizeGroupIdentifier_NameResolvedAndCached(t *testing.T) {
	dir := &fakeGroupDirectory{
		groups: []providers.KeycloakGroup{
			{ID: "g-1", Name: "aktivitas"},
			{ID: "g-2", Name: "Aktivitas"},
		},
	}
	svc := newTestGroupSync(dir)

	first := svc.NormalizeGroupIdentifier(context.Background(), "Aktivitas")
	second := svc.NormalizeGroupIdentifier(context.Background(), "Aktivitas")

	assert.Equal(t, "g-2", first.ID, "exact match wins over case-insensitive")
	assert.Equal(t, "name", first.Source)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, dir.searchCalls, "second lookup must come from cache")
}

func TestNormalizeGroupIdentifier_CaseInsensitiveFallback(t *testing.T) {
	dir := &fakeGroupDirectory{
		groups: []providers.KeycloakGroup{{ID: "g-1", Name: "Philister"}},
	}
	svc := newTestGroupSync(dir)

	res := svc.NormalizeGroupIdentifier(context.Background(), "philister")

	assert.Equal(t, "g-1", res.ID)
	assert.Equal(t, "name", res.Source)
}

func TestNormalizeGroupIdentifier_Unresolvable(t *testing.T) {
	dir := &fakeGroupDirectory{}
	svc := newTestGroupSync(dir)

	assert.Equal(t, "none", svc.NormalizeGroupIdentifier(context.Background(), "").Source)

	res := svc.NormalizeGroupIdentifier(context.Background(), "unbekannt")
	assert.Equal(t, "none", res.Source)
	assert.Empty(t, res.ID)
}

func TestSyncUserGroupChange_SkipReasons(t *testing.T) {
	dir := &fakeGroupDirectory{}
	svc := newTestGroupSync(dir)

	noAccount := svc.SyncUserGroupChange(context.Background(), "", "A", "B")
	assert.NotEmpty(t, noAccount.SkippedReason)

	noChange := svc.SyncUserGroupChange(context.Background(), "kc-1", "A", "A")
	assert.NotEmpty(t, noChange.SkippedReason)
	assert.Zero(t, dir.searchCalls)

	svc.Config = &config.KeycloakConfig{}
	incomplete := svc.SyncUserGroupChange(context.Background(), "kc-1", "A", "B")
	assert.True(t, incomplete.EnvIncomplete)
	assert.Empty(t, dir.removeCalls)
	assert.Empty(t, dir.addCalls)
}

func TestSyncUserGroupChange_RemoveOkAddFails(t *testing.T) {
	dir := &fakeGroupDirectory{
		groups: []providers.KeycloakGroup{
			{ID: "g-old", Name: "Aktivitas"},
			{ID: "g-new", Name: "Philister"},
		},
		removeResult: true,
		addResult:    false,
	}
	svc := newTestGroupSync(dir)

	res := svc.SyncUserGroupChange(context.Background(), "kc-1", "Aktivitas", "Philister")

	assert.Equal(t, []string{"g-old"}, dir.removeCalls)
	assert.Equal(t, []string{"g-new"}, dir.addCalls, "add must be attempted even though partial outcomes are possible")
	if assert.NotNil(t, res.Removed) {
		assert.True(t, *res.Removed)
	}
	if assert.NotNil(t, res.Added) {
		assert.False(t, *res.Added)
	}
	assert.Empty(t, res.SkippedReason)
}

func TestSyncUserGroupChange_OnlyNewSideResolvable(t *testing.T) {
	dir := &fakeGroupDirectory{
		groups:    []providers.KeycloakGroup{{ID: "g-new", Name: "Philister"}},
		addResult: true,
	}
	svc := newTestGroupSync(dir)

	res := svc.SyncUserGroupChange(context.Background(), "kc-1", "", "Philister")

	assert.Nil(t, res.Removed)
	if assert.NotNil(t, res.Added) {
		assert.True(t, *res.Added)
	}
	assert.Empty(t, dir.removeCalls)
}
