package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"verbindung/mitgliederamt/internal/common"
	"verbindung/mitgliederamt/internal/config"
	"verbindung/mitgliederamt/internal/logging"
	"verbindung/mitgliederamt/internal/models/dtos"
	"verbindung/mitgliederamt/internal/providers"
)

const (
	groupCachePrefix = "keycloak:group:"
	groupResolveTTL  = 24 * time.Hour
)

// groupDirectory is the slice of the IdP provider the group sync needs
type groupDirectory interface {
	SearchGroups(ctx context.Context, name string) ([]providers.KeycloakGroup, error)
	AddUserToGroup(ctx context.Context, userID, groupID string) bool
	RemoveUserFromGroup(ctx context.Context, userID, groupID string) bool
}

// GroupSyncService translates local group references to Keycloak group ids
// and moves accounts between groups. Membership changes are best-effort and
// never transactional: remove and add are attempted independently and both
// outcomes are reported.
type GroupSyncService struct {
	Provider groupDirectory
	Config   *config.KeycloakConfig
	Cache    common.CacheInterface

	resolve singleflight.Group
}

func NewGroupSyncService(provider *providers.KeycloakProvider, cache common.CacheInterface) *GroupSyncService {
	return &GroupSyncService{
		Provider: provider,
		Config:   provider.Config,
		Cache:    cache,
	}
}

// NormalizeGroupIdentifier turns a stored group reference into a Keycloak
// group id. A UUID-shaped reference passes through unchanged; anything else
// is treated as a group name and resolved via the search endpoint, exact
// match first, then case-insensitive. Resolutions are cached without
// invalidation, so renaming a group in Keycloak needs a restart (or the
// cache TTL) to be picked up.
func (s *GroupSyncService) NormalizeGroupIdentifier(ctx context.Context, raw string) dtos.GroupResolution {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return dtos.GroupResolution{Source: "none"}
	}

	if _, err := uuid.Parse(trimmed); err == nil {
		return dtos.GroupResolution{ID: trimmed, Source: "uuid", Raw: trimmed}
	}

	cacheKey := groupCachePrefix + trimmed
	if cached, found := s.Cache.Get(cacheKey); found {
		if id, ok := cached.(string); ok && id != "" {
			return dtos.GroupResolution{ID: id, Source: "name", Raw: trimmed}
		}
	}

	// Collapse concurrent lookups for the same name into one search
	result, err, _ := s.resolve.Do(cacheKey, func() (any, error) {
		groups, err := s.Provider.SearchGroups(ctx, trimmed)
		if err != nil {
			return "", err
		}

		id := matchGroup(groups, trimmed)
		if id != "" {
			s.Cache.Set(cacheKey, id, groupResolveTTL)
		}
		return id, nil
	})
	if err != nil {
		logging.SyncDebug("Group name resolution failed", "name", trimmed, "error", err.Error())
		return dtos.GroupResolution{Source: "none", Raw: trimmed}
	}

	id, _ := result.(string)
	if id == "" {
		return dtos.GroupResolution{Source: "none", Raw: trimmed}
	}
	return dtos.GroupResolution{ID: id, Source: "name", Raw: trimmed}
}

// matchGroup prefers an exact name match over a case-insensitive one
func matchGroup(groups []providers.KeycloakGroup, name string) string {
	for _, g := range groups {
		if g.Name == name {
			return g.ID
		}
	}
	for _, g := range groups {
		if strings.EqualFold(g.Name, name) {
			return g.ID
		}
	}
	return ""
}

// SyncUserGroupChange moves an account from oldRef to newRef. Both sides are
// resolved independently; the remove is attempted first and the add is
// attempted regardless of the remove's outcome, so a partial move shows up
// in the result instead of being silently completed or dropped.
func (s *GroupSyncService) SyncUserGroupChange(ctx context.Context, accountID, oldRef, newRef string) dtos.GroupSyncResult {
	if accountID == "" {
		return dtos.GroupSyncResult{SkippedReason: "Mitglied hat keinen Keycloak Account"}
	}
	if strings.TrimSpace(oldRef) == strings.TrimSpace(newRef) {
		return dtos.GroupSyncResult{SkippedReason: "Keine Gruppenänderung"}
	}
	if !s.Config.Complete() {
		return dtos.GroupSyncResult{
			SkippedReason: "Keycloak Konfiguration unvollständig",
			EnvIncomplete: true,
		}
	}

	oldRes := s.NormalizeGroupIdentifier(ctx, oldRef)
	newRes := s.NormalizeGroupIdentifier(ctx, newRef)

	result := dtos.GroupSyncResult{
		OldResolved: &oldRes,
		NewResolved: &newRes,
	}

	if oldRes.ID != "" {
		removed := s.Provider.RemoveUserFromGroup(ctx, accountID, oldRes.ID)
		result.Removed = &removed
	}
	if newRes.ID != "" {
		added := s.Provider.AddUserToGroup(ctx, accountID, newRes.ID)
		result.Added = &added
	}

	if result.Removed == nil && result.Added == nil {
		result.SkippedReason = "Keine Gruppe auflösbar"
	}

	return result
}
