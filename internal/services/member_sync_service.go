package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"verbindung/mitgliederamt/internal/common"
	"verbindung/mitgliederamt/internal/config"
	"verbindung/mitgliederamt/internal/constants"
	"verbindung/mitgliederamt/internal/db/repositories"
	"verbindung/mitgliederamt/internal/logging"
	"verbindung/mitgliederamt/internal/models/dtos"
	gormModels "verbindung/mitgliederamt/internal/models/gorm"
	"verbindung/mitgliederamt/internal/providers"
)

// accountProvider is the slice of the IdP provider the engine needs
type accountProvider interface {
	CreateUser(ctx context.Context, email, firstName, lastName string) (*providers.CreateUserResult, error)
	FetchUsersBatch(ctx context.Context, ids []string) map[string]*providers.KeycloakUser
	DeleteUser(ctx context.Context, id string) bool
	UpdateUserAttributes(ctx context.Context, id string, attrs map[string]any) error
	UpdateUserEmail(ctx context.Context, id, email, username string, firstName, lastName *string) error
}

type groupSyncer interface {
	SyncUserGroupChange(ctx context.Context, accountID, oldRef, newRef string) dtos.GroupSyncResult
}

// MemberSyncService is the reconciliation engine between base_person and the
// IdP. Creates are transactional via saga compensation (either a fully
// linked member exists afterwards or nothing does); updates commit locally
// and report IdP outcomes alongside; bulk runs are best-effort per member.
type MemberSyncService struct {
	Repo     *repositories.MemberRepositoryGORM
	Provider accountProvider
	Groups   groupSyncer
	Config   *config.KeycloakConfig
}

func NewMemberSyncService(
	repo *repositories.MemberRepositoryGORM,
	provider *providers.KeycloakProvider,
	groups *GroupSyncService,
) *MemberSyncService {
	return &MemberSyncService{
		Repo:     repo,
		Provider: provider,
		Groups:   groups,
		Config:   provider.Config,
	}
}

// CreateMemberWithAccount creates a member row and its IdP account as one
// logical operation. With a real email the account is created first and the
// row insert carries the link; without one the row is inserted first so its
// id can seed the placeholder address. Either way a failure on the second
// leg compensates the first, so no half-linked state survives.
func (s *MemberSyncService) CreateMemberWithAccount(ctx context.Context, m *gormModels.Member) (*dtos.CreateMemberResponse, error) {
	if m.Gruppe != nil {
		g := firstRune(*m.Gruppe)
		m.Gruppe = &g
	}

	if m.Email != nil && strings.TrimSpace(*m.Email) != "" {
		return s.createEmailFirst(ctx, m)
	}
	return s.createLocalFirst(ctx, m)
}

func (s *MemberSyncService) createEmailFirst(ctx context.Context, m *gormModels.Member) (*dtos.CreateMemberResponse, error) {
	email := strings.TrimSpace(*m.Email)
	var account *providers.CreateUserResult

	steps := []common.SagaStep{
		{
			Name: "keycloak account",
			Action: func(ctx context.Context) error {
				result, err := s.Provider.CreateUser(ctx, email, str(m.Vorname), str(m.Name))
				if err != nil {
					return err
				}
				account = result
				return nil
			},
			Compensate: func(ctx context.Context) {
				// Never delete an account that already existed before this call
				if account != nil && account.Created {
					s.Provider.DeleteUser(ctx, account.ID)
				}
			},
		},
		{
			Name: "local row",
			Action: func(ctx context.Context) error {
				m.KeycloakID = &account.ID
				if err := s.Repo.Create(ctx, m); err != nil {
					if repositories.IsUniqueViolation(err) {
						return &providers.ProviderError{
							Code:    constants.ErrCodeLocalConflict,
							Message: constants.GetErrorMessage(constants.ErrCodeLocalConflict),
							Err:     err,
						}
					}
					return &providers.ProviderError{
						Code:    constants.ErrCodeLocalFailure,
						Message: constants.GetErrorMessage(constants.ErrCodeLocalFailure),
						Err:     err,
					}
				}
				return nil
			},
		},
	}

	if step, err := common.RunSaga(ctx, steps); err != nil {
		logging.Warn("Member create rolled back", "step", step, "error", err.Error())
		return nil, err
	}

	return &dtos.CreateMemberResponse{
		Data:           m,
		KeycloakID:     account.ID,
		AccountCreated: account.Created,
	}, nil
}

func (s *MemberSyncService) createLocalFirst(ctx context.Context, m *gormModels.Member) (*dtos.CreateMemberResponse, error) {
	var account *providers.CreateUserResult
	var placeholder string

	steps := []common.SagaStep{
		{
			Name: "local row",
			Action: func(ctx context.Context) error {
				m.Email = nil
				m.KeycloakID = nil
				if err := s.Repo.Create(ctx, m); err != nil {
					return &providers.ProviderError{
						Code:    constants.ErrCodeLocalFailure,
						Message: constants.GetErrorMessage(constants.ErrCodeLocalFailure),
						Err:     err,
					}
				}
				return nil
			},
			Compensate: func(ctx context.Context) {
				if err := s.Repo.Delete(ctx, m.ID); err != nil {
					logging.Error("Compensation delete failed", "id", m.ID, "error", err.Error())
				}
			},
		},
		{
			Name: "keycloak account",
			Action: func(ctx context.Context) error {
				email, err := common.MakePlaceholderEmail(common.PlaceholderEmailParams{
					Vorname:  str(m.Vorname),
					Nachname: str(m.Name),
					ID:       strconv.Itoa(m.ID),
				})
				if err != nil {
					return &providers.ProviderError{
						Code:    constants.ErrCodeConfigIncomplete,
						Message: err.Error(),
					}
				}
				placeholder = email

				result, err := s.Provider.CreateUser(ctx, placeholder, str(m.Vorname), str(m.Name))
				if err != nil {
					return err
				}
				account = result
				return nil
			},
			Compensate: func(ctx context.Context) {
				if account != nil && account.Created {
					s.Provider.DeleteUser(ctx, account.ID)
				}
			},
		},
		{
			Name: "link",
			Action: func(ctx context.Context) error {
				if err := s.Repo.SetKeycloakID(ctx, m.ID, account.ID); err != nil {
					return &providers.ProviderError{
						Code:    constants.ErrCodeLocalFailure,
						Message: constants.GetErrorMessage(constants.ErrCodeLocalFailure),
						Err:     err,
					}
				}
				if err := s.Repo.UpdateEmail(ctx, m.ID, placeholder); err != nil {
					return &providers.ProviderError{
						Code:    constants.ErrCodeLocalFailure,
						Message: constants.GetErrorMessage(constants.ErrCodeLocalFailure),
						Err:     err,
					}
				}
				m.KeycloakID = &account.ID
				m.Email = &placeholder
				return nil
			},
		},
	}

	if step, err := common.RunSaga(ctx, steps); err != nil {
		logging.Warn("Member create rolled back", "step", step, "error", err.Error())
		return nil, err
	}

	return &dtos.CreateMemberResponse{
		Data:           m,
		KeycloakID:     account.ID,
		AccountCreated: account.Created,
	}, nil
}

// UpdateMember applies an edit to one row and, if the gruppe changed, moves
// the linked account between IdP groups. The group move is best-effort: its
// outcome rides along in the response and a failed move never rolls back
// the committed local update. The previous gruppe is read before the write
// without locking, so a concurrent edit can make the move start from a
// stale group.
func (s *MemberSyncService) UpdateMember(ctx context.Context, id int, fields map[string]any) (*dtos.UpdateMemberResponse, error) {
	current, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &providers.ProviderError{
				Code:    constants.ErrCodeNotFound,
				Message: constants.GetErrorMessage(constants.ErrCodeNotFound),
			}
		}
		return nil, &providers.ProviderError{
			Code:    constants.ErrCodeLocalFailure,
			Message: constants.GetErrorMessage(constants.ErrCodeLocalFailure),
			Err:     err,
		}
	}

	oldGruppe := str(current.Gruppe)
	accountID := str(current.KeycloakID)

	coerced, err := CoerceMemberFields(fields)
	if err != nil {
		return nil, &providers.ProviderError{
			Code:    constants.ErrCodeLocalFailure,
			Message: err.Error(),
		}
	}
	if len(coerced) == 0 {
		return nil, &providers.ProviderError{
			Code:    constants.ErrCodeLocalFailure,
			Message: "Keine änderbaren Felder übergeben",
		}
	}

	if err := s.Repo.UpdateFields(ctx, id, coerced); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &providers.ProviderError{
				Code:    constants.ErrCodeNotFound,
				Message: constants.GetErrorMessage(constants.ErrCodeNotFound),
			}
		}
		if repositories.IsUniqueViolation(err) {
			return nil, &providers.ProviderError{
				Code:    constants.ErrCodeLocalConflict,
				Message: constants.GetErrorMessage(constants.ErrCodeLocalConflict),
				Err:     err,
			}
		}
		return nil, &providers.ProviderError{
			Code:    constants.ErrCodeLocalFailure,
			Message: constants.GetErrorMessage(constants.ErrCodeLocalFailure),
			Err:     err,
		}
	}

	response := &dtos.UpdateMemberResponse{}

	if newGruppe, changed := gruppeFrom(coerced); changed && newGruppe != oldGruppe {
		oldRef, lookupErr := s.Repo.GruppeBeschreibung(ctx, oldGruppe)
		if lookupErr != nil {
			logging.Warn("Group reference lookup failed", "gruppe", oldGruppe, "error", lookupErr.Error())
		}
		newRef, lookupErr := s.Repo.GruppeBeschreibung(ctx, newGruppe)
		if lookupErr != nil {
			logging.Warn("Group reference lookup failed", "gruppe", newGruppe, "error", lookupErr.Error())
		}

		result := s.Groups.SyncUserGroupChange(ctx, accountID, oldRef, newRef)
		response.GroupSync = &result
	}

	updated, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, &providers.ProviderError{
			Code:    constants.ErrCodeLocalFailure,
			Message: constants.GetErrorMessage(constants.ErrCodeLocalFailure),
			Err:     err,
		}
	}
	response.Data = updated

	return response, nil
}

// SyncAll reconciles every member with the IdP in one sequential pass.
// Linked members pull the account email down (pushing a placeholder up
// first when the account has none) and push the address attributes up;
// unlinked members get an account created and linked. Per-member failures
// are recorded in the summary and never abort the batch.
func (s *MemberSyncService) SyncAll(ctx context.Context) (*dtos.SyncSummary, error) {
	if !s.Config.Complete() {
		return nil, &providers.ProviderError{
			Code:    constants.ErrCodeConfigIncomplete,
			Message: constants.GetErrorMessage(constants.ErrCodeConfigIncomplete),
		}
	}

	linked, err := s.Repo.FindLinked(ctx)
	if err != nil {
		return nil, &providers.ProviderError{
			Code:    constants.ErrCodeLocalFailure,
			Message: constants.GetErrorMessage(constants.ErrCodeLocalFailure),
			Err:     err,
		}
	}
	unlinked, err := s.Repo.FindUnlinked(ctx)
	if err != nil {
		return nil, &providers.ProviderError{
			Code:    constants.ErrCodeLocalFailure,
			Message: constants.GetErrorMessage(constants.ErrCodeLocalFailure),
			Err:     err,
		}
	}

	summary := &dtos.SyncSummary{
		Total:   len(linked) + len(unlinked),
		Changes: []dtos.SyncChange{},
	}

	// Attempted counts the linked pass only; unlinked members show up in
	// usersCreated and the change log instead
	ids := make([]string, 0, len(linked))
	for i := range linked {
		ids = append(ids, str(linked[i].KeycloakID))
	}
	accounts := s.Provider.FetchUsersBatch(ctx, ids)
	summary.Attempted = len(ids)

	for i := range linked {
		s.syncLinked(ctx, &linked[i], accounts[str(linked[i].KeycloakID)], summary)
	}
	for i := range unlinked {
		s.syncUnlinked(ctx, &unlinked[i], summary)
	}

	logging.Info("Bulk sync finished",
		"total", summary.Total,
		"attempted", summary.Attempted,
		"usersCreated", summary.UsersCreated,
		"updated", summary.Updated,
		"dummyEmailsSet", summary.DummyEmailsSet,
		"attributesUpdated", summary.AttributesUpdated,
	)

	return summary, nil
}

func (s *MemberSyncService) syncLinked(ctx context.Context, m *gormModels.Member, user *providers.KeycloakUser, summary *dtos.SyncSummary) {
	accountID := str(m.KeycloakID)

	if user == nil {
		summary.Changes = append(summary.Changes, dtos.SyncChange{
			ID:       m.ID,
			OldEmail: m.Email,
			Skipped:  "Keycloak User nicht gefunden",
		})
		return
	}

	accountEmail := strings.TrimSpace(user.Email)
	if accountEmail == "" {
		// Account without email: push a placeholder up. The local record is
		// left alone; the next run pulls the email down like any other.
		placeholder, err := common.MakePlaceholderEmail(common.PlaceholderEmailParams{
			Vorname:  str(m.Vorname),
			Nachname: str(m.Name),
			ID:       strconv.Itoa(m.ID),
		})
		switch {
		case err != nil:
			summary.Changes = append(summary.Changes, dtos.SyncChange{
				ID:       m.ID,
				OldEmail: m.Email,
				Skipped:  err.Error(),
			})
		case s.Provider.UpdateUserEmail(ctx, accountID, placeholder, placeholder, m.Vorname, m.Name) != nil:
			summary.Changes = append(summary.Changes, dtos.SyncChange{
				ID:       m.ID,
				OldEmail: m.Email,
				NewEmail: placeholder,
				Skipped:  "Keycloak Update fehlgeschlagen",
			})
		default:
			summary.DummyEmailsSet++
			summary.Changes = append(summary.Changes, dtos.SyncChange{
				ID:       m.ID,
				OldEmail: m.Email,
				NewEmail: placeholder,
			})
		}
	} else if str(m.Email) != accountEmail {
		// The account email is authoritative for the local record
		if err := s.Repo.UpdateEmail(ctx, m.ID, accountEmail); err != nil {
			skipped := "E-Mail Übernahme fehlgeschlagen"
			if repositories.IsUniqueViolation(err) {
				skipped = "Unique Konflikt"
			}
			summary.Changes = append(summary.Changes, dtos.SyncChange{
				ID:       m.ID,
				OldEmail: m.Email,
				NewEmail: accountEmail,
				Skipped:  skipped,
			})
		} else {
			summary.Updated++
			summary.Changes = append(summary.Changes, dtos.SyncChange{
				ID:       m.ID,
				OldEmail: m.Email,
				NewEmail: accountEmail,
			})
		}
	}

	// Profile attributes go out regardless of how the email branch ended
	if err := s.Provider.UpdateUserAttributes(ctx, accountID, s.profileAttributes(m)); err != nil {
		logging.SyncDebug("Attribute push failed", "id", m.ID, "error", err.Error())
		return
	}
	summary.AttributesUpdated++
}

func (s *MemberSyncService) syncUnlinked(ctx context.Context, m *gormModels.Member, summary *dtos.SyncSummary) {
	email := strings.TrimSpace(str(m.Email))
	usedPlaceholder := false
	if email == "" {
		placeholder, err := common.MakePlaceholderEmail(common.PlaceholderEmailParams{
			Vorname:  str(m.Vorname),
			Nachname: str(m.Name),
			ID:       strconv.Itoa(m.ID),
		})
		if err != nil {
			summary.Changes = append(summary.Changes, dtos.SyncChange{
				ID:      m.ID,
				Skipped: err.Error(),
			})
			return
		}
		email = placeholder
		usedPlaceholder = true
	}

	account, err := s.Provider.CreateUser(ctx, email, str(m.Vorname), str(m.Name))
	if err != nil {
		summary.Changes = append(summary.Changes, dtos.SyncChange{
			ID:       m.ID,
			OldEmail: m.Email,
			NewEmail: email,
			Skipped:  "Keycloak Account konnte nicht angelegt werden",
		})
		return
	}

	if err := s.Repo.SetKeycloakID(ctx, m.ID, account.ID); err != nil {
		// Do not leave an orphaned fresh account behind
		if account.Created {
			s.Provider.DeleteUser(ctx, account.ID)
		}
		summary.Changes = append(summary.Changes, dtos.SyncChange{
			ID:       m.ID,
			OldEmail: m.Email,
			NewEmail: email,
			Skipped:  "Verknüpfung konnte nicht gespeichert werden",
		})
		return
	}

	if account.Created {
		summary.UsersCreated++
	}
	if usedPlaceholder {
		summary.DummyEmailsSet++
	}
	summary.Changes = append(summary.Changes, dtos.SyncChange{
		ID:       m.ID,
		OldEmail: m.Email,
		NewEmail: email,
	})
}

// profileAttributes maps the local address and status fields to IdP
// attributes. Nil values delete the attribute upstream, so clearing a field
// locally clears it on the account too; an unset house-association flag
// deletes hv-mitglied rather than writing a 0.
func (s *MemberSyncService) profileAttributes(m *gormModels.Member) map[string]any {
	attrs := map[string]any{
		"strasse": nilIfEmpty(m.Strasse1),
		"plz":     nilIfEmpty(m.Plz1),
		"ort":     nilIfEmpty(m.Ort1),
		"status":  nilIfEmpty(m.Status),
	}
	switch {
	case m.Hausvereinsmitglied == nil:
		attrs["hv-mitglied"] = nil
	case *m.Hausvereinsmitglied:
		attrs["hv-mitglied"] = 1
	default:
		attrs["hv-mitglied"] = 0
	}
	return attrs
}

// CoerceMemberFields filters an incoming edit down to the editable
// allow-list and coerces the stringly typed values to their column types.
// Unknown and non-editable keys are dropped silently, bad values are errors.
func CoerceMemberFields(fields map[string]any) (map[string]any, error) {
	coerced := make(map[string]any, len(fields))

	for key, value := range fields {
		if !constants.EditableMemberFields[key] {
			continue
		}

		switch {
		case constants.DateFields[key]:
			parsed, err := coerceDate(value)
			if err != nil {
				return nil, fmt.Errorf("Feld %s: %w", key, err)
			}
			coerced[key] = parsed

		case constants.BooleanFields[key]:
			parsed, err := coerceBool(value)
			if err != nil {
				return nil, fmt.Errorf("Feld %s: %w", key, err)
			}
			coerced[key] = parsed

		case constants.IntFields[key]:
			parsed, err := coerceInt(value)
			if err != nil {
				return nil, fmt.Errorf("Feld %s: %w", key, err)
			}
			coerced[key] = parsed

		case key == "gruppe":
			if value == nil {
				coerced[key] = nil
				continue
			}
			coerced[key] = firstRune(fmt.Sprintf("%v", value))

		default:
			if value == nil {
				coerced[key] = nil
				continue
			}
			coerced[key] = fmt.Sprintf("%v", value)
		}
	}

	return coerced, nil
}

func coerceDate(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	s := strings.TrimSpace(fmt.Sprintf("%v", value))
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return nil, fmt.Errorf("ungültiges Datum %q", s)
}

func coerceBool(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case bool:
		return v, nil
	case string:
		s := strings.TrimSpace(strings.ToLower(v))
		if s == "" {
			return nil, nil
		}
		parsed, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("ungültiger Wahrheitswert %q", v)
		}
		return parsed, nil
	default:
		return nil, fmt.Errorf("ungültiger Wahrheitswert %v", value)
	}
}

func coerceInt(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case int:
		return v, nil
	case float64:
		return int(v), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}
		parsed, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("ungültige Zahl %q", v)
		}
		return parsed, nil
	default:
		return nil, fmt.Errorf("ungültige Zahl %v", value)
	}
}

func gruppeFrom(coerced map[string]any) (string, bool) {
	value, ok := coerced["gruppe"]
	if !ok {
		return "", false
	}
	if value == nil {
		return "", true
	}
	return fmt.Sprintf("%v", value), true
}

// firstRune truncates the single-character group code, tolerating longer
// input from older clients
func firstRune(s string) string {
	s = strings.TrimSpace(s)
	for _, r := range s {
		return string(r)
	}
	return ""
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func nilIfEmpty(p *string) any {
	if p == nil || strings.TrimSpace(*p) == "" {
		return nil
	}
	return *p
}
