package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session 已验证的后台会话
type Session struct {
	AdminID   string    `json:"adminId"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Claims 自定义 JWT Claims
type Claims struct {
	AdminID  string `json:"admin_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

const issuer = "equip-shop-admin"

var ErrInvalidToken = errors.New("invalid session token")

// Manager 签发与校验会话 token (HS256)
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL token 有效期，同时用作 cookie Max-Age
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue 生成 token
func (m *Manager) Issue(adminID, username, role string) (string, *Session, error) {
	now := m.now()
	expireAt := now.Add(m.ttl)

	claims := Claims{
		AdminID:  adminID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expireAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, err
	}
	return token, &Session{AdminID: adminID, Username: username, Role: role, ExpiresAt: expireAt}, nil
}

// Verify 校验 token，失败返回 ErrInvalidToken
func (m *Manager) Verify(tokenString string) (*Session, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.AdminID == "" {
		return nil, ErrInvalidToken
	}

	return &Session{
		AdminID:   claims.AdminID,
		Username:  claims.Username,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
