package service

import (
	"context"
	"errors"
	"quiz_arena_backend/internal/config"
	"quiz_arena_backend/internal/model"
	"quiz_arena_backend/internal/util"
	"quiz_arena_backend/pkg/logger"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type SignupInput struct {
	TeamName        string
	TeamLeaderName  string
	Email           string
	StudentID       string
	Password        string
	ConfirmPassword string
}

type TokenPair struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type AuthService struct {
	Teams  TeamStore
	Admins AdminStore
	Tokens TokenStore
	Cfg    *config.Config
}

func NewAuthService(teams TeamStore, admins AdminStore, tokens TokenStore, cfg *config.Config) *AuthService {
	return &AuthService{
		Teams:  teams,
		Admins: admins,
		Tokens: tokens,
		Cfg:    cfg,
	}
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup 注册队伍并直接登录
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*model.Team, *TokenPair, error) {
	email := normalizeEmail(in.Email)
	exists, err := s.Teams.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, util.ErrEmailRegistered
	}
	exists, err = s.Teams.ExistsByStudentID(ctx, in.StudentID)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, util.ErrStudentIDRegistered
	}

	hashed, err := HashPassword(in.Password)
	if err != nil {
		return nil, nil, err
	}
	team := &model.Team{
		TeamName:       strings.TrimSpace(in.TeamName),
		TeamLeaderName: strings.TrimSpace(in.TeamLeaderName),
		Email:          email,
		StudentID:      strings.TrimSpace(in.StudentID),
		Password:       hashed,
	}
	if err := s.Teams.Create(ctx, team); err != nil {
		// 并发注册已抢先写入唯一索引
		if errors.Is(err, util.ErrDuplicate) {
			return nil, nil, util.ErrEmailRegistered
		}
		return nil, nil, err
	}

	tokens, err := s.issueTeamTokens(team)
	if err != nil {
		return nil, nil, err
	}
	logger.Log.Info("Team registered", zap.Uint("teamId", team.ID), zap.String("email", team.Email))
	return team, tokens, nil
}

func (s *AuthService) Signin(ctx context.Context, email, password string) (*model.Team, *TokenPair, error) {
	team, err := s.Teams.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, util.ErrTeamNotFound) {
		return nil, nil, util.ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(team.Password), []byte(password)); err != nil {
		return nil, nil, util.ErrInvalidCredentials
	}

	tokens, err := s.issueTeamTokens(team)
	if err != nil {
		return nil, nil, err
	}
	return team, tokens, nil
}

func (s *AuthService) issueTeamTokens(team *model.Team) (*TokenPair, error) {
	jwtCfg := s.Cfg.JWT
	access, err := util.GenerateJWT(team.ID, model.RoleTeam, team.Email, util.TokenAccess, jwtCfg.Secret, jwtCfg.AccessTTL())
	if err != nil {
		return nil, err
	}
	refresh, err := util.GenerateJWT(team.ID, model.RoleTeam, team.Email, util.TokenRefresh, jwtCfg.Secret, jwtCfg.RefreshTTL())
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(jwtCfg.AccessTTL().Seconds()),
	}, nil
}

// Refresh 用未吊销的刷新令牌换取新的访问令牌
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := util.ParseJWT(refreshToken, s.Cfg.JWT.Secret)
	if err != nil || claims.TokenType != util.TokenRefresh {
		return nil, util.ErrInvalidToken
	}
	revoked, err := s.Tokens.IsRevoked(ctx, claims.TokenID())
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, util.ErrTokenRevoked
	}
	team, err := s.Teams.FindByID(ctx, claims.SubjectID)
	if errors.Is(err, util.ErrTeamNotFound) {
		return nil, util.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}

	access, err := util.GenerateJWT(team.ID, model.RoleTeam, team.Email, util.TokenAccess, s.Cfg.JWT.Secret, s.Cfg.JWT.AccessTTL())
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, ExpiresIn: int64(s.Cfg.JWT.AccessTTL().Seconds())}, nil
}

// Logout 吊销刷新令牌直到其原本的过期时间，无法解析的令牌直接忽略
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	claims, err := util.ParseJWT(refreshToken, s.Cfg.JWT.Secret)
	if err != nil || claims.TokenType != util.TokenRefresh {
		return nil
	}
	return s.Tokens.Revoke(ctx, claims.TokenID(), claims.Remaining(time.Now()))
}

func (s *AuthService) CurrentTeam(ctx context.Context, teamID uint) (*model.Team, error) {
	return s.Teams.FindByID(ctx, teamID)
}

func (s *AuthService) AdminLogin(ctx context.Context, email, password string) (*model.Admin, *TokenPair, error) {
	admin, err := s.Admins.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, util.ErrAdminNotFound) {
		return nil, nil, util.ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(password)); err != nil {
		return nil, nil, util.ErrInvalidCredentials
	}

	ttl := s.Cfg.JWT.AdminTTL()
	token, err := util.GenerateJWT(admin.ID, model.RoleAdmin, admin.Email, util.TokenAccess, s.Cfg.JWT.Secret, ttl)
	if err != nil {
		return nil, nil, err
	}
	logger.Log.Info("Admin signed in", zap.Uint("adminId", admin.ID))
	return admin, &TokenPair{AccessToken: token, ExpiresIn: int64(ttl.Seconds())}, nil
}

// CreateAdmin 创建管理员账号
func (s *AuthService) CreateAdmin(ctx context.Context, name, email, password string) (*model.Admin, error) {
	hashed, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	admin := &model.Admin{Name: name, Email: normalizeEmail(email), Password: hashed}
	if err := s.Admins.Create(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}
