package middleware

import (
	"strings"

	"equip_shop/internal/pkg/session"
	"equip_shop/pkg/apperror"
	"equip_shop/pkg/response"

	"github.com/gin-gonic/gin"
)

const sessionKey = "adminSession"

// SessionAuth 后台会话认证：优先读取 http-only cookie，其次 Authorization: Bearer
func SessionAuth(sessions *session.Manager, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c, cookieName)
		if token == "" {
			response.Abort(c, apperror.ErrUnauthorized)
			return
		}

		sess, err := sessions.Verify(token)
		if err != nil {
			response.Abort(c, apperror.Wrap(apperror.ErrTokenInvalid, "", err))
			return
		}

		c.Set(sessionKey, sess)
		c.Next()
	}
}

func tokenFromRequest(c *gin.Context, cookieName string) string {
	if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
		return cookie
	}

	// 检查格式 "Bearer <token>"
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// CurrentSession 取出已认证的会话，未认证时返回 nil
func CurrentSession(c *gin.Context) *session.Session {
	val, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sess, _ := val.(*session.Session)
	return sess
}

// RequireRole 角色校验
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := CurrentSession(c)
		if sess == nil {
			response.Abort(c, apperror.ErrUnauthorized)
			return
		}
		for _, r := range roles {
			if sess.Role == r {
				c.Next()
				return
			}
		}
		response.Abort(c, apperror.ErrForbidden)
	}
}
