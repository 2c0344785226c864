package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/transit-mediation/mediation-api/internal/models"
)

type authRepoStub struct {
	users  map[string]*models.User
	tokens map[string]*models.RefreshToken
}

func newAuthRepoStub() *authRepoStub {
	return &authRepoStub{users: map[string]*models.User{}, tokens: map[string]*models.RefreshToken{}}
}

func (r *authRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *authRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (r *authRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (r *authRepoStub) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	for _, token := range r.tokens {
		if token.UserID == userID {
			token.Revoked = true
		}
	}
	return nil
}

func (r *authRepoStub) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	copied := *token
	r.tokens[token.Token] = &copied
	return nil
}

func (r *authRepoStub) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	stored, ok := r.tokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return stored, nil
}

func (r *authRepoStub) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range r.tokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func newAuthServiceForTest(t *testing.T) (*AuthService, *authRepoStub) {
	t.Helper()
	repo := newAuthRepoStub()
	hash, err := bcrypt.GenerateFromPassword([]byte("terrain2025"), bcrypt.MinCost)
	require.NoError(t, err)
	repo.users["op-1"] = &models.User{
		ID:           "op-1",
		Email:        "agent@mediation.example",
		PasswordHash: string(hash),
		FullName:     "Agent Terrain",
		Role:         models.RoleAgent,
		Active:       true,
	}
	cfg := AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "mediation-api",
	}
	return NewAuthService(repo, nil, zap.NewNop(), cfg), repo
}

func TestAuthServiceLogin(t *testing.T) {
	svc, _ := newAuthServiceForTest(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "agent@mediation.example",
		Password: "terrain2025",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, models.RoleAgent, resp.User.Role)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "op-1", claims.UserID)
}

func TestAuthServiceLoginRejectsBadPassword(t *testing.T) {
	svc, _ := newAuthServiceForTest(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "agent@mediation.example",
		Password: "wrong",
	})
	require.Error(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{
		Email:    "ghost@mediation.example",
		Password: "terrain2025",
	})
	require.Error(t, err)
}

func TestAuthServiceLoginRejectsInactiveAccount(t *testing.T) {
	svc, repo := newAuthServiceForTest(t)
	repo.users["op-1"].Active = false

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "agent@mediation.example",
		Password: "terrain2025",
	})
	require.Error(t, err)
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	svc, repo := newAuthServiceForTest(t)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "agent@mediation.example",
		Password: "terrain2025",
	})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	assert.True(t, repo.tokens[login.RefreshToken].Revoked)

	// A rotated token cannot be replayed.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
}

func TestAuthServiceLogout(t *testing.T) {
	svc, repo := newAuthServiceForTest(t)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "agent@mediation.example",
		Password: "terrain2025",
	})
	require.NoError(t, err)

	require.Error(t, svc.Logout(context.Background(), login.RefreshToken, "someone-else"))
	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken, "op-1"))
	assert.True(t, repo.tokens[login.RefreshToken].Revoked)
}
