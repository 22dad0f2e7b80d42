package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skieshare/skieshare/internal/pkg/logger"
	"github.com/skieshare/skieshare/internal/pkg/xerr"
	"github.com/skieshare/skieshare/internal/services/admin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService admin.AuthService
}

func NewAuthHandler(authService admin.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Password string `json:"password" binding:"required,min=8"`
	Email    string `json:"email" binding:"required,email"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Register handles user registration.
// @Summary 用户注册
// @Description 注册新用户，默认 free 套餐
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "注册信息"
// @Success 200 {object} xerr.Response "注册成功"
// @Failure 400 {object} xerr.Response "请求参数无效"
// @Failure 409 {object} xerr.Response "用户名或邮箱已存在"
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "请求参数解析失败: "+err.Error())
		return
	}

	user, err := h.authService.RegisterUser(c.Request.Context(), req.Username, req.Password, req.Email)
	if err != nil {
		if errors.Is(err, xerr.ErrUserAlreadyExists) {
			xerr.Error(c, http.StatusConflict, xerr.UserAlreadyExistsCode, err.Error())
		} else if errors.Is(err, xerr.ErrEmailAlreadyExists) {
			xerr.Error(c, http.StatusConflict, xerr.EmailAlreadyExistsCode, err.Error())
		} else {
			logger.Error("Register: 用户注册失败", zap.Error(err))
			xerr.Error(c, http.StatusInternalServerError, xerr.InternalServerErrorCode, "用户注册失败")
		}
		return
	}

	xerr.Success(c, http.StatusOK, "注册成功", gin.H{"user": user})
}

// Login handles user login.
// @Summary 用户登录
// @Description 使用用户名密码登录，返回访问令牌和刷新令牌
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body LoginRequest true "登录信息"
// @Success 200 {object} xerr.Response "登录成功"
// @Failure 401 {object} xerr.Response "用户名或密码不正确"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "请求参数解析失败: "+err.Error())
		return
	}

	tokens, err := h.authService.LoginUser(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, xerr.ErrInvalidCredentials) {
			xerr.Error(c, http.StatusUnauthorized, xerr.InvalidCredentialsCode, err.Error())
		} else {
			logger.Error("Login: 用户登录失败", zap.String("username", req.Username), zap.Error(err))
			xerr.Error(c, http.StatusInternalServerError, xerr.InternalServerErrorCode, "登录失败")
		}
		return
	}

	xerr.Success(c, http.StatusOK, "登录成功", tokens)
}

// Refresh handles token refresh.
// @Summary 刷新令牌
// @Description 使用刷新令牌换取新的令牌对
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "刷新令牌"
// @Success 200 {object} xerr.Response "刷新成功"
// @Failure 401 {object} xerr.Response "刷新令牌无效或已过期"
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "请求参数解析失败: "+err.Error())
		return
	}

	tokens, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, xerr.ErrTokenInvalid) {
			xerr.Error(c, http.StatusUnauthorized, xerr.TokenInvalidCode, err.Error())
		} else {
			logger.Error("Refresh: 刷新令牌失败", zap.Error(err))
			xerr.Error(c, http.StatusInternalServerError, xerr.InternalServerErrorCode, "刷新令牌失败")
		}
		return
	}

	xerr.Success(c, http.StatusOK, "刷新成功", tokens)
}
