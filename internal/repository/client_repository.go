package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/seacliff-digital/reportpilot/internal/models"
	apperrors "github.com/seacliff-digital/reportpilot/pkg/errors"
)

const clientColumns = "client_id, business_name, contact_name, contact_email, service_type, active"

// ClientRepository reads the client registry.
type ClientRepository struct {
	db *sqlx.DB
}

// NewClientRepository constructs a ClientRepository.
func NewClientRepository(db *sqlx.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// ListActive returns the active registry snapshot used for matching.
func (r *ClientRepository) ListActive(ctx context.Context) ([]models.ClientRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM clients WHERE active = true ORDER BY business_name", clientColumns)
	clients := []models.ClientRecord{}
	if err := r.db.SelectContext(ctx, &clients, query); err != nil {
		return nil, fmt.Errorf("list active clients: %w", err)
	}
	return clients, nil
}

// GetByID fetches one client record.
func (r *ClientRepository) GetByID(ctx context.Context, clientID string) (*models.ClientRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM clients WHERE client_id = $1", clientColumns)
	var client models.ClientRecord
	if err := r.db.GetContext(ctx, &client, query, clientID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Clone(apperrors.ErrNotFound,
				fmt.Sprintf("client %s not found", clientID))
		}
		return nil, fmt.Errorf("get client: %w", err)
	}
	return &client, nil
}
