package services

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/dmitrijs2005/contactkeeper/internal/common"
	"github.com/dmitrijs2005/contactkeeper/internal/dbx"
	"github.com/dmitrijs2005/contactkeeper/internal/server/auth"
	"github.com/dmitrijs2005/contactkeeper/internal/server/config"
	"github.com/dmitrijs2005/contactkeeper/internal/server/models"
	"github.com/dmitrijs2005/contactkeeper/internal/server/repositories/contacts"
	"github.com/dmitrijs2005/contactkeeper/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// ---- fakes ----

type fakeUserRepo struct {
	byEmail map[string]*models.User
	nextID  int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: map[string]*models.User{}}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if _, ok := f.byEmail[user.Email]; ok {
		return nil, common.ErrorAlreadyExists
	}
	f.nextID++
	user.ID = fmt.Sprintf("u-%d", f.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	f.byEmail[user.Email] = user
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := f.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return user, nil
}

type fakeContactRepo struct {
	byID   map[string]*models.Contact
	nextID int
}

func newFakeContactRepo() *fakeContactRepo {
	return &fakeContactRepo{byID: map[string]*models.Contact{}}
}

func (f *fakeContactRepo) clone(c *models.Contact) *models.Contact {
	cp := *c
	if c.Extra != nil {
		cp.Extra = map[string]string{}
		for k, v := range c.Extra {
			cp.Extra[k] = v
		}
	}
	return &cp
}

func (f *fakeContactRepo) Create(ctx context.Context, contact *models.Contact) (*models.Contact, error) {
	f.nextID++
	contact.ID = fmt.Sprintf("c-%d", f.nextID)
	contact.CreatedAt = time.Now()
	contact.UpdatedAt = contact.CreatedAt
	f.byID[contact.ID] = f.clone(contact)
	return contact, nil
}

func (f *fakeContactRepo) GetByID(ctx context.Context, id string) (*models.Contact, error) {
	contact, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return f.clone(contact), nil
}

func (f *fakeContactRepo) ListByOwner(ctx context.Context, userID string) ([]*models.Contact, error) {
	result := []*models.Contact{}
	for _, c := range f.byID {
		if c.UserID == userID {
			result = append(result, f.clone(c))
		}
	}
	return result, nil
}

func (f *fakeContactRepo) Update(ctx context.Context, contact *models.Contact) (*models.Contact, error) {
	stored, ok := f.byID[contact.ID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	stored.Name = contact.Name
	stored.Phone = contact.Phone
	stored.Extra = contact.Extra
	stored.UpdatedAt = time.Now()
	return f.clone(stored), nil
}

func (f *fakeContactRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeRepoManager struct {
	userRepo    *fakeUserRepo
	contactRepo *fakeContactRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{userRepo: newFakeUserRepo(), contactRepo: newFakeContactRepo()}
}

func (f *fakeRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }

func (f *fakeRepoManager) Users(db dbx.DBTX) users.Repository { return f.userRepo }

func (f *fakeRepoManager) Contacts(db dbx.DBTX) contacts.Repository { return f.contactRepo }

// ---- tests ----

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                   "test-secret",
		AccessTokenValidityDuration: 15 * time.Minute,
	}
}

func TestRegister_Validation(t *testing.T) {
	s := NewUserService(nil, newFakeRepoManager(), testConfig())
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		email    string
		password string
	}{
		{name: "missing username", email: "a@x.com", password: "pw123"},
		{name: "missing email", username: "alice", password: "pw123"},
		{name: "missing password", username: "alice", email: "a@x.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Register(ctx, tt.username, tt.email, tt.password)
			assert.ErrorIs(t, err, common.ErrorValidation)
		})
	}
}

func TestRegister_Success_HashesPassword(t *testing.T) {
	rm := newFakeRepoManager()
	s := NewUserService(nil, rm, testConfig())

	user, err := s.Register(context.Background(), "alice", "a@x.com", "pw123")
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
	assert.Equal(t, "a@x.com", user.Email)

	stored := rm.userRepo.byEmail["a@x.com"]
	require.NotNil(t, stored)
	assert.NotEqual(t, "pw123", stored.PasswordHash, "plaintext must never be stored")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("pw123")))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	s := NewUserService(nil, newFakeRepoManager(), testConfig())
	ctx := context.Background()

	_, err := s.Register(ctx, "alice", "a@x.com", "pw123")
	require.NoError(t, err)

	// different username and password must not matter
	_, err = s.Register(ctx, "bob", "a@x.com", "other")
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestLogin_Validation(t *testing.T) {
	s := NewUserService(nil, newFakeRepoManager(), testConfig())

	_, err := s.Login(context.Background(), "", "pw123")
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = s.Login(context.Background(), "a@x.com", "")
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestLogin_Success_TokenCarriesIdentity(t *testing.T) {
	s := NewUserService(nil, newFakeRepoManager(), testConfig())
	ctx := context.Background()

	user, err := s.Register(ctx, "alice", "a@x.com", "pw123")
	require.NoError(t, err)

	token, err := s.Login(ctx, "a@x.com", "pw123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := auth.ParseToken(token, []byte("test-secret"))
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "a@x.com", claims.Email)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	s := NewUserService(nil, newFakeRepoManager(), testConfig())
	ctx := context.Background()

	_, err := s.Register(ctx, "alice", "a@x.com", "pw123")
	require.NoError(t, err)

	_, errUnknown := s.Login(ctx, "nobody@x.com", "pw123")
	_, errWrongPw := s.Login(ctx, "a@x.com", "wrong")

	assert.ErrorIs(t, errUnknown, common.ErrorUnauthorized)
	assert.ErrorIs(t, errWrongPw, common.ErrorUnauthorized)
	assert.Equal(t, errUnknown.Error(), errWrongPw.Error(),
		"unknown email and wrong password must look identical to the caller")
}
