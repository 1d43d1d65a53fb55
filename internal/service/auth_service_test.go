package service

import (
	"context"
	"quiz_arena_backend/internal/config"
	"quiz_arena_backend/internal/model"
	"quiz_arena_backend/internal/repository/memory"
	"quiz_arena_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService() *AuthService {
	cfg := &config.Config{JWT: config.JWTConfig{
		Secret:              "test-secret-test-secret-test-secret",
		AccessExpireMinutes: 15,
		RefreshExpireHours:  24,
		AdminExpireMinutes:  30,
	}}
	return NewAuthService(memory.NewTeamStore(), memory.NewAdminStore(), memory.NewTokenStore(), cfg)
}

func signupInput() SignupInput {
	return SignupInput{
		TeamName:        "Byte Busters",
		TeamLeaderName:  "Ada",
		Email:           "  Ada@Example.com ",
		StudentID:       "2026-001",
		Password:        "s3cret!",
		ConfirmPassword: "s3cret!",
	}
}

func TestSignupAndSignin(t *testing.T) {
	s := newAuthService()
	ctx := context.Background()

	team, tokens, err := s.Signup(ctx, signupInput())
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", team.Email)
	assert.NotEqual(t, "s3cret!", team.Password)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.EqualValues(t, 15*60, tokens.ExpiresIn)

	claims, err := util.ParseJWT(tokens.AccessToken, s.Cfg.JWT.Secret)
	require.NoError(t, err)
	assert.Equal(t, team.ID, claims.SubjectID)
	assert.Equal(t, model.RoleTeam, claims.Role)
	assert.Equal(t, util.TokenAccess, claims.TokenType)

	_, _, err = s.Signin(ctx, "ADA@example.com", "s3cret!")
	assert.NoError(t, err)

	_, _, err = s.Signin(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
	_, _, err = s.Signin(ctx, "nobody@example.com", "s3cret!")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
}

func TestSignupConflicts(t *testing.T) {
	s := newAuthService()
	ctx := context.Background()
	_, _, err := s.Signup(ctx, signupInput())
	require.NoError(t, err)

	_, _, err = s.Signup(ctx, signupInput())
	assert.ErrorIs(t, err, util.ErrEmailRegistered)

	in := signupInput()
	in.Email = "other@example.com"
	_, _, err = s.Signup(ctx, in)
	assert.ErrorIs(t, err, util.ErrStudentIDRegistered)
	assert.Equal(t, util.KindConflict, util.KindOf(err))
}

func TestRefreshAndLogout(t *testing.T) {
	s := newAuthService()
	ctx := context.Background()
	_, tokens, err := s.Signup(ctx, signupInput())
	require.NoError(t, err)

	fresh, err := s.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, fresh.AccessToken)
	assert.Empty(t, fresh.RefreshToken)

	_, err = s.Refresh(ctx, tokens.AccessToken)
	assert.ErrorIs(t, err, util.ErrInvalidToken, "access tokens cannot be refreshed")

	require.NoError(t, s.Logout(ctx, tokens.RefreshToken))
	_, err = s.Refresh(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, util.ErrTokenRevoked)

	assert.NoError(t, s.Logout(ctx, "garbage"))
	assert.NoError(t, s.Logout(ctx, ""))
}

func TestAdminLogin(t *testing.T) {
	s := newAuthService()
	ctx := context.Background()

	admin, err := s.CreateAdmin(ctx, "Root", "Root@Example.com", "admin-pass")
	require.NoError(t, err)
	assert.Equal(t, "root@example.com", admin.Email)

	_, tokens, err := s.AdminLogin(ctx, "root@example.com", "admin-pass")
	require.NoError(t, err)
	claims, err := util.ParseJWT(tokens.AccessToken, s.Cfg.JWT.Secret)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, claims.Role)
	assert.EqualValues(t, 30*60, tokens.ExpiresIn)

	_, _, err = s.AdminLogin(ctx, "root@example.com", "nope")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)

	_, err = s.CreateAdmin(ctx, "Again", "root@example.com", "x")
	assert.Equal(t, util.KindConflict, util.KindOf(err))
}
