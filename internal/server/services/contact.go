package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/contactkeeper/internal/common"
	"github.com/dmitrijs2005/contactkeeper/internal/dbx"
	"github.com/dmitrijs2005/contactkeeper/internal/server/models"
	"github.com/dmitrijs2005/contactkeeper/internal/server/repositories/repomanager"
)

// ContactPatch carries the fields an update may change. Nil pointers mean
// "leave as is". The owner is deliberately absent: a patch can never move a
// contact to another account.
type ContactPatch struct {
	Name  *string
	Phone *string
	Extra map[string]string
}

// ContactService gates every contact mutation on ownership: the record must
// exist and belong to the calling account before an update or delete runs.
type ContactService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

// NewContactService constructs a ContactService over the given repositories.
func NewContactService(db *sql.DB, m repomanager.RepositoryManager) *ContactService {
	return &ContactService{
		db:          db,
		repomanager: m,
	}
}

// List returns all contacts owned by ownerID, in storage order.
func (s *ContactService) List(ctx context.Context, ownerID string) ([]*models.Contact, error) {
	repo := s.repomanager.Contacts(s.db)

	result, err := repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("error listing contacts: %w", err)
	}
	return result, nil
}

// Get returns the contact with the given id, or common.ErrorNotFound.
func (s *ContactService) Get(ctx context.Context, id string) (*models.Contact, error) {
	repo := s.repomanager.Contacts(s.db)

	contact, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error loading contact: %w", err)
	}
	return contact, nil
}

// Create stores a new contact owned by ownerID. Name and phone are required.
func (s *ContactService) Create(ctx context.Context, ownerID, name, phone string, extra map[string]string) (*models.Contact, error) {

	if name == "" || phone == "" {
		return nil, common.ErrorValidation
	}

	contact := &models.Contact{
		UserID: ownerID,
		Name:   name,
		Phone:  phone,
		Extra:  extra,
	}

	repo := s.repomanager.Contacts(s.db)

	contact, err := repo.Create(ctx, contact)
	if err != nil {
		return nil, fmt.Errorf("error creating contact: %w", err)
	}

	return contact, nil
}

// Update resolves the contact, verifies callerID owns it, applies the patch,
// and returns the post-update record. Resolve-then-write runs inside one
// transaction so the ownership check and the mutation see the same row.
func (s *ContactService) Update(ctx context.Context, id string, callerID string, patch *ContactPatch) (*models.Contact, error) {

	var updated *models.Contact

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Contacts(tx)

		contact, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.authorize(contact, callerID); err != nil {
			return err
		}

		if patch.Name != nil {
			contact.Name = *patch.Name
		}
		if patch.Phone != nil {
			contact.Phone = *patch.Phone
		}
		if patch.Extra != nil {
			contact.Extra = patch.Extra
		}

		updated, err = repo.Update(ctx, contact)
		return err
	})

	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete resolves the contact, verifies callerID owns it, removes the row,
// and returns the record as it existed before removal. A second delete of the
// same id yields common.ErrorNotFound.
func (s *ContactService) Delete(ctx context.Context, id string, callerID string) (*models.Contact, error) {

	var deleted *models.Contact

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Contacts(tx)

		contact, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.authorize(contact, callerID); err != nil {
			return err
		}

		if err := repo.Delete(ctx, id); err != nil {
			return err
		}

		deleted = contact
		return nil
	})

	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// authorize compares the stored owner to the calling account. Both sides are
// the same canonical identifier type, so this is a plain equality check.
func (s *ContactService) authorize(contact *models.Contact, callerID string) error {
	if contact.UserID != callerID {
		return common.ErrorForbidden
	}
	return nil
}
