package identity

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emberwatch/firedispatch/internal/domain"
	"github.com/emberwatch/firedispatch/internal/registry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRepository implements Repository in memory.
type mockRepository struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*Account
}

func newMockRepository() *mockRepository {
	return &mockRepository{accounts: make(map[uuid.UUID]*Account)}
}

func (m *mockRepository) CreateAccount(_ context.Context, department *domain.Department, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, account := range m.accounts {
		if account.Department.Email == department.Email || account.Department.Slug == department.Slug {
			return ErrAccountExists
		}
	}
	department.ID = uuid.New()
	clone := *department
	m.accounts[department.ID] = &Account{Department: &clone, PasswordHash: passwordHash}
	return nil
}

func (m *mockRepository) GetAccountByEmail(_ context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, account := range m.accounts {
		if account.Department.Email == email {
			return account, nil
		}
	}
	return nil, ErrInvalidCredentials
}

func (m *mockRepository) GetDepartment(_ context.Context, id uuid.UUID) (*domain.Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok {
		return nil, ErrInvalidToken
	}
	return account.Department, nil
}

func newTestService() (*Service, *mockRepository) {
	repo := newMockRepository()
	tokens := NewTokenManager("test-secret-do-not-use", 15*time.Minute)
	return NewService(repo, tokens), repo
}

func registerTestAccount(t *testing.T, svc *Service) *domain.Department {
	t.Helper()
	department, err := svc.Register(context.Background(), RegisterInput{
		Name:      "Station North",
		Email:     "North@Example.com",
		Password:  "correct horse battery",
		Latitude:  52.53,
		Longitude: 13.41,
	})
	require.NoError(t, err)
	return department
}

func TestRegister(t *testing.T) {
	svc, repo := newTestService()

	department := registerTestAccount(t, svc)

	assert.Equal(t, "station-north", department.Slug)
	assert.Equal(t, "north@example.com", department.Email)

	// The stored credential is a hash, never the password itself.
	account := repo.accounts[department.ID]
	assert.NotContains(t, account.PasswordHash, "correct horse")
	assert.True(t, strings.HasPrefix(account.PasswordHash, "$2"))
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Register(context.Background(), RegisterInput{
		Name: "Station", Email: "a@b.c", Password: "short", Latitude: 52, Longitude: 13,
	})
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = svc.Register(context.Background(), RegisterInput{
		Name: " ", Email: "a@b.c", Password: "long enough", Latitude: 52, Longitude: 13,
	})
	assert.ErrorIs(t, err, registry.ErrNameRequired)

	_, err = svc.Register(context.Background(), RegisterInput{
		Name: "Station", Email: "a@b.c", Password: "long enough", Latitude: 91, Longitude: 13,
	})
	assert.ErrorIs(t, err, registry.ErrInvalidCoordinates)
}

func TestRegisterDuplicate(t *testing.T) {
	svc, _ := newTestService()
	registerTestAccount(t, svc)

	_, err := svc.Register(context.Background(), RegisterInput{
		Name: "Station North", Email: "north@example.com",
		Password: "another password", Latitude: 52.53, Longitude: 13.41,
	})
	assert.ErrorIs(t, err, ErrAccountExists)
}

func TestLoginAndValidateToken(t *testing.T) {
	svc, _ := newTestService()
	department := registerTestAccount(t, svc)

	loggedIn, pair, err := svc.Login(context.Background(), "NORTH@example.com", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, department.ID, loggedIn.ID)
	require.NotNil(t, pair)
	assert.NotEmpty(t, pair.AccessToken)
	assert.True(t, pair.ExpiresAt.After(time.Now()))

	departmentID, err := svc.ValidateToken(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, department.ID, departmentID)
}

func TestLoginWrongCredentials(t *testing.T) {
	svc, _ := newTestService()
	registerTestAccount(t, svc)

	_, _, err := svc.Login(context.Background(), "north@example.com", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(context.Background(), "nobody@example.com", "correct horse battery")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.ValidateToken(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	svc, _ := newTestService()
	department := registerTestAccount(t, svc)

	other := NewTokenManager("different-secret", 15*time.Minute)
	token, _, err := other.Generate(department.ID, time.Now().UTC())
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	repo := newMockRepository()
	tokens := NewTokenManager("test-secret-do-not-use", time.Minute)
	svc := NewService(repo, tokens)
	department := registerTestAccount(t, svc)

	token, _, err := tokens.Generate(department.ID, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsDeletedDepartment(t *testing.T) {
	svc, repo := newTestService()
	department := registerTestAccount(t, svc)

	_, pair, err := svc.Login(context.Background(), "north@example.com", "correct horse battery")
	require.NoError(t, err)

	delete(repo.accounts, department.ID)

	_, err = svc.ValidateToken(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
