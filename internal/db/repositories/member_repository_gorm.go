package repositories

import (
	"context"
	"errors"
	"strings"

	gormModels "verbindung/mitgliederamt/internal/models/gorm"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// MemberRepositoryGORM is the write-side member repository used by the
// reconciliation engine
type MemberRepositoryGORM struct {
	db *gorm.DB
}

func NewMemberRepositoryGORM(db *gorm.DB) *MemberRepositoryGORM {
	return &MemberRepositoryGORM{db: db}
}

func (r *MemberRepositoryGORM) FindByID(ctx context.Context, id int) (*gormModels.Member, error) {
	var m gormModels.Member
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MemberRepositoryGORM) Create(ctx context.Context, m *gormModels.Member) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// UpdateFields applies a column→value map to one row. The map must only
// contain columns from the editable allow-list; the caller coerces values.
func (r *MemberRepositoryGORM) UpdateFields(ctx context.Context, id int, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&gormModels.Member{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *MemberRepositoryGORM) Delete(ctx context.Context, id int) error {
	return r.db.WithContext(ctx).Delete(&gormModels.Member{}, id).Error
}

// SetKeycloakID links a member to its IdP account. Only the reconciliation
// engine calls this; the reference is stable once set.
func (r *MemberRepositoryGORM) SetKeycloakID(ctx context.Context, id int, keycloakID string) error {
	return r.db.WithContext(ctx).Model(&gormModels.Member{}).Where("id = ?", id).
		Update("keycloak_id", keycloakID).Error
}

func (r *MemberRepositoryGORM) UpdateEmail(ctx context.Context, id int, email string) error {
	return r.db.WithContext(ctx).Model(&gormModels.Member{}).Where("id = ?", id).
		Update("email", email).Error
}

// FindLinked returns all members with an IdP account reference
func (r *MemberRepositoryGORM) FindLinked(ctx context.Context) ([]gormModels.Member, error) {
	var members []gormModels.Member
	err := r.db.WithContext(ctx).
		Where("keycloak_id IS NOT NULL").
		Order("id ASC").
		Find(&members).Error
	return members, err
}

// FindUnlinked returns all members without an IdP account reference
func (r *MemberRepositoryGORM) FindUnlinked(ctx context.Context) ([]gormModels.Member, error) {
	var members []gormModels.Member
	err := r.db.WithContext(ctx).
		Where("keycloak_id IS NULL").
		Order("id ASC").
		Find(&members).Error
	return members, err
}

// GruppeBeschreibung resolves a group code to the Keycloak group reference
// stored in base_gruppe.beschreibung. Empty string when the code is unknown
// or has no reference; duplicates are tolerated by taking the first row.
func (r *MemberRepositoryGORM) GruppeBeschreibung(ctx context.Context, bezeichnung string) (string, error) {
	if bezeichnung == "" {
		return "", nil
	}
	var g gormModels.Gruppe
	err := r.db.WithContext(ctx).
		Where("bezeichnung = ?", bezeichnung).
		Order("bezeichnung ASC").
		First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if g.Beschreibung == nil {
		return "", nil
	}
	return *g.Beschreibung, nil
}

// IsUniqueViolation reports whether err is a uniqueness-constraint failure.
// The engine branches on this to distinguish "email already taken" from
// other write failures.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	// sqlite used in tests reports unique violations as plain errors
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
