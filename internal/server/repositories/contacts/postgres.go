// Package contacts provides a PostgreSQL-backed repository for contact
// persistence. The free-form Extra fields travel through a jsonb column.
package contacts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/contactkeeper/internal/common"
	"github.com/dmitrijs2005/contactkeeper/internal/dbx"
	"github.com/dmitrijs2005/contactkeeper/internal/server/models"
	"github.com/google/uuid"
)

// PostgresRepository implements contact storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func marshalExtra(extra map[string]string) ([]byte, error) {
	if extra == nil {
		extra = map[string]string{}
	}
	return json.Marshal(extra)
}

// Create inserts a new contact owned by contact.UserID.
func (r *PostgresRepository) Create(ctx context.Context, contact *models.Contact) (*models.Contact, error) {

	query := `
		INSERT INTO contacts (id, user_id, name, phone, extra)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	extra, err := marshalExtra(contact.Extra)
	if err != nil {
		return nil, fmt.Errorf("extra encode error: %w", err)
	}

	contact.ID = uuid.NewString()

	err = r.db.QueryRowContext(ctx, query,
		contact.ID, contact.UserID, contact.Name, contact.Phone, extra).Scan(&contact.CreatedAt, &contact.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return contact, nil
}

// GetByID returns the contact with the given id.
// If not found, it returns common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Contact, error) {
	query := `
		SELECT id, user_id, name, phone, extra, created_at, updated_at
		FROM contacts
		WHERE id = $1
	`

	contact := &models.Contact{}
	var extra []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&contact.ID, &contact.UserID, &contact.Name, &contact.Phone, &extra, &contact.CreatedAt, &contact.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if err := json.Unmarshal(extra, &contact.Extra); err != nil {
		return nil, fmt.Errorf("extra decode error: %w", err)
	}

	return contact, nil
}

// ListByOwner returns all contacts owned by userID in storage order.
func (r *PostgresRepository) ListByOwner(ctx context.Context, userID string) ([]*models.Contact, error) {
	query := `
		SELECT id, user_id, name, phone, extra, created_at, updated_at
		FROM contacts
		WHERE user_id = $1
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.Contact{}
	for rows.Next() {
		contact := &models.Contact{}
		var extra []byte
		if err := rows.Scan(
			&contact.ID, &contact.UserID, &contact.Name, &contact.Phone, &extra,
			&contact.CreatedAt, &contact.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(extra, &contact.Extra); err != nil {
			return nil, fmt.Errorf("extra decode error: %w", err)
		}
		result = append(result, contact)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Update persists the mutable contact fields. The owner column is not part of
// the statement, so ownership cannot change through an update.
// If no row matches, it returns common.ErrorNotFound.
func (r *PostgresRepository) Update(ctx context.Context, contact *models.Contact) (*models.Contact, error) {

	query := `
		UPDATE contacts
		SET name = $2, phone = $3, extra = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`

	extra, err := marshalExtra(contact.Extra)
	if err != nil {
		return nil, fmt.Errorf("extra encode error: %w", err)
	}

	err = r.db.QueryRowContext(ctx, query,
		contact.ID, contact.Name, contact.Phone, extra).Scan(&contact.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return contact, nil
}

// Delete removes the contact with the given id.
// If no row matches, it returns common.ErrorNotFound.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM contacts WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
