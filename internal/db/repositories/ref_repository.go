package repositories

import (
	"context"

	"verbindung/mitgliederamt/internal/constants"
	"verbindung/mitgliederamt/internal/models/entities"

	"github.com/jmoiron/sqlx"
)

// RefRepository reads the base_gruppe and base_status reference tables
type RefRepository struct {
	db *sqlx.DB
}

func NewRefRepository(db *sqlx.DB) *RefRepository {
	return &RefRepository{db}
}

func (r *RefRepository) AllGruppen(ctx context.Context) ([]entities.RefOption, error) {
	var opts []entities.RefOption
	if err := r.db.SelectContext(ctx, &opts, constants.GetAllGruppen); err != nil {
		return nil, err
	}
	return opts, nil
}

func (r *RefRepository) AllStatus(ctx context.Context) ([]entities.RefOption, error) {
	var opts []entities.RefOption
	if err := r.db.SelectContext(ctx, &opts, constants.GetAllStatus); err != nil {
		return nil, err
	}
	return opts, nil
}
