package user_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"matchmail/backend/features/user"
	"matchmail/backend/internal/middleware"
)

type MockRepo struct{ mock.Mock }

func (m *MockRepo) Create(ctx context.Context, email, passwordHash string) error {
	return m.Called(ctx, email, passwordHash).Error(0)
}

func (m *MockRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func testIssuer() *middleware.TokenIssuer {
	return middleware.NewTokenIssuer("test-secret", time.Hour)
}

func TestRegister(t *testing.T) {
	repo := new(MockRepo)
	repo.On("GetByEmail", mock.Anything, "u@x.dev").Return(nil, sql.ErrNoRows)
	repo.On("Create", mock.Anything, "u@x.dev", mock.MatchedBy(func(hash string) bool {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret-password")) == nil
	})).Return(nil)

	svc := user.NewService(repo, testIssuer())
	err := svc.Register(context.Background(), "u@x.dev", "secret-password")
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestRegister_EmailTaken(t *testing.T) {
	repo := new(MockRepo)
	repo.On("GetByEmail", mock.Anything, "u@x.dev").Return(&user.User{Email: "u@x.dev"}, nil)

	svc := user.NewService(repo, testIssuer())
	err := svc.Register(context.Background(), "u@x.dev", "secret-password")
	assert.ErrorIs(t, err, user.ErrEmailTaken)
	repo.AssertNotCalled(t, "Create")
}

func TestLogin(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret-password"), bcrypt.DefaultCost)
	repo := new(MockRepo)
	repo.On("GetByEmail", mock.Anything, "u@x.dev").Return(&user.User{Email: "u@x.dev", PasswordHash: string(hash)}, nil)

	issuer := testIssuer()
	svc := user.NewService(repo, issuer)
	token, err := svc.Login(context.Background(), "u@x.dev", "secret-password")

	assert.NoError(t, err)
	subject, err := issuer.Validate(token)
	assert.NoError(t, err)
	assert.Equal(t, "u@x.dev", subject)
}

func TestLogin_WrongPassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret-password"), bcrypt.DefaultCost)
	repo := new(MockRepo)
	repo.On("GetByEmail", mock.Anything, "u@x.dev").Return(&user.User{Email: "u@x.dev", PasswordHash: string(hash)}, nil)

	svc := user.NewService(repo, testIssuer())
	_, err := svc.Login(context.Background(), "u@x.dev", "wrong")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)
}

func TestLogin_UnknownEmail(t *testing.T) {
	repo := new(MockRepo)
	repo.On("GetByEmail", mock.Anything, "ghost@x.dev").Return(nil, sql.ErrNoRows)

	svc := user.NewService(repo, testIssuer())
	_, err := svc.Login(context.Background(), "ghost@x.dev", "whatever")
	// Same error as a wrong password, so callers can't probe for accounts.
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)
}
