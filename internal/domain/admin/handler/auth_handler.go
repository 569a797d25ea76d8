package handler

import (
	"net/http"

	"equip_shop/internal/domain/admin/service"
	"equip_shop/internal/pkg/middleware"
	"equip_shop/pkg/apperror"
	"equip_shop/pkg/response"

	"github.com/gin-gonic/gin"
)

// CookieOptions 会话 cookie 设置
type CookieOptions struct {
	Name   string
	Domain string
	Secure bool
	MaxAge int // 秒
}

// AuthHandler 后台登录处理器
type AuthHandler struct {
	service service.AuthService
	cookie  CookieOptions
}

func NewAuthHandler(s service.AuthService, cookie CookieOptions) *AuthHandler {
	return &AuthHandler{service: s, cookie: cookie}
}

// LoginInput 登录输入
type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 处理登录请求，token 写入 http-only cookie
// @Summary 后台登录
// @Tags Auth
// @Accept json
// @Produce json
// @Param input body LoginInput true "Credentials"
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.FromError(c, apperror.Wrap(apperror.ErrBadRequest, "username and password are required", err))
		return
	}

	res, err := h.service.Login(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		response.FromError(c, err)
		return
	}

	h.setCookie(c, res.Token, h.cookie.MaxAge)
	response.Success(c, res)
}

// Logout 清除会话 cookie
// @Router /api/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	h.setCookie(c, "", -1)
	response.Success(c, nil)
}

// Me 当前登录账号
// @Router /api/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.service.Me(c.Request.Context(), middleware.CurrentSession(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, user)
}

func (h *AuthHandler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, value, maxAge, "/", h.cookie.Domain, h.cookie.Secure, true)
}
