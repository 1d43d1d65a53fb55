package controller

import (
	"net/http"
	"quiz_arena_backend/internal/config"
	"quiz_arena_backend/internal/service"
	"quiz_arena_backend/internal/util"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

type AuthController struct {
	AuthService *service.AuthService
	Cfg         *config.Config
}

func NewAuthController(authService *service.AuthService, cfg *config.Config) *AuthController {
	return &AuthController{
		AuthService: authService,
		Cfg:         cfg,
	}
}

type SignupRequest struct {
	TeamName        string `json:"teamName"`
	TeamLeaderName  string `json:"teamLeaderName"`
	Email           string `json:"email"`
	StudentID       string `json:"studentId"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.TeamName, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.TeamLeaderName, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.StudentID, validation.Required, validation.Length(1, 64)),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 72)),
		validation.Field(&r.ConfirmPassword, validation.Required,
			validation.In(r.Password).Error("passwords do not match")),
	)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.Password, validation.Required),
	)
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (c *AuthController) setAuthCookies(ctx *gin.Context, tokens *service.TokenPair) {
	secure := c.Cfg.Server.Mode == gin.ReleaseMode
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(util.AccessTokenCookie, tokens.AccessToken, int(c.Cfg.JWT.AccessTTL().Seconds()), "/", "", secure, true)
	if tokens.RefreshToken != "" {
		ctx.SetCookie(util.RefreshTokenCookie, tokens.RefreshToken, int(c.Cfg.JWT.RefreshTTL().Seconds()), "/api/auth", "", secure, true)
	}
}

// Signup godoc
// @Summary 注册参赛队伍
// @Tags auth
// @Accept json
// @Produce json
// @Param body body SignupRequest true "team registration"
// @Success 201 {object} util.Response{data=service.TokenPair}
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/auth/signup [post]
func (c *AuthController) Signup(ctx *gin.Context) {
	var req SignupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	_, tokens, err := c.AuthService.Signup(ctx.Request.Context(), service.SignupInput{
		TeamName:        req.TeamName,
		TeamLeaderName:  req.TeamLeaderName,
		Email:           req.Email,
		StudentID:       req.StudentID,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	c.setAuthCookies(ctx, tokens)
	util.Created(ctx, tokens)
}

// Signin godoc
// @Summary 队伍登录
// @Tags auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "credentials"
// @Success 200 {object} util.Response{data=service.TokenPair}
// @Failure 401 {object} util.Response
// @Router /api/auth/signin [post]
func (c *AuthController) Signin(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	_, tokens, err := c.AuthService.Signin(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	c.setAuthCookies(ctx, tokens)
	util.Success(ctx, tokens)
}

// RefreshToken godoc
// @Summary 使用刷新令牌换取新的访问令牌
// @Tags auth
// @Accept json
// @Produce json
// @Param body body RefreshRequest false "refresh token, falls back to the refresh_token cookie"
// @Success 200 {object} util.Response{data=service.TokenPair}
// @Failure 401 {object} util.Response
// @Router /api/auth/refresh-token [post]
func (c *AuthController) RefreshToken(ctx *gin.Context) {
	var req RefreshRequest
	_ = ctx.ShouldBindJSON(&req)
	if req.RefreshToken == "" {
		req.RefreshToken, _ = ctx.Cookie(util.RefreshTokenCookie)
	}
	if req.RefreshToken == "" {
		util.BadRequest(ctx, "refresh token is required")
		return
	}

	tokens, err := c.AuthService.Refresh(ctx.Request.Context(), req.RefreshToken)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	c.setAuthCookies(ctx, tokens)
	util.Success(ctx, tokens)
}

// Me godoc
// @Summary 获取当前队伍信息
// @Tags auth
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.Team}
// @Router /api/auth/me [get]
func (c *AuthController) Me(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	team, err := c.AuthService.CurrentTeam(ctx.Request.Context(), claims.SubjectID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, team)
}

// Logout godoc
// @Summary 退出登录并吊销刷新令牌
// @Tags auth
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/auth/logout [get]
func (c *AuthController) Logout(ctx *gin.Context) {
	refresh, _ := ctx.Cookie(util.RefreshTokenCookie)
	if refresh == "" {
		refresh = ctx.Query("refreshToken")
	}
	if err := c.AuthService.Logout(ctx.Request.Context(), refresh); err != nil {
		util.RespondError(ctx, err)
		return
	}

	secure := c.Cfg.Server.Mode == gin.ReleaseMode
	ctx.SetCookie(util.AccessTokenCookie, "", -1, "/", "", secure, true)
	ctx.SetCookie(util.RefreshTokenCookie, "", -1, "/api/auth", "", secure, true)
	util.Success(ctx, gin.H{"message": "logged out successfully"})
}

// AdminLogin godoc
// @Summary 管理员登录
// @Tags admin
// @Accept json
// @Produce json
// @Param body body LoginRequest true "credentials"
// @Success 200 {object} util.Response{data=service.TokenPair}
// @Failure 401 {object} util.Response
// @Router /api/admin/login [post]
func (c *AuthController) AdminLogin(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	_, tokens, err := c.AuthService.AdminLogin(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, tokens)
}
