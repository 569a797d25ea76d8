package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"equip_shop/internal/domain/admin/model"
	"equip_shop/internal/domain/admin/repository"
	"equip_shop/internal/pkg/session"
	"equip_shop/pkg/apperror"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// LoginResult 登录成功后返回的会话
type LoginResult struct {
	Token   string           `json:"-"`
	Session *session.Session `json:"session"`
	User    *model.AdminUser `json:"user"`
}

// AuthService 后台登录与账号
type AuthService interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Me(ctx context.Context, sess *session.Session) (*model.AdminUser, error)
	// EnsureBootstrap 账号表为空时创建初始管理员
	EnsureBootstrap(ctx context.Context, username, password string) error
}

type authService struct {
	repo     repository.AdminRepository
	sessions *session.Manager
	log      *zap.Logger
	cost     int
	now      func() time.Time

	// 用户不存在时也做一次比较，响应耗时与密码错误一致
	dummyHash []byte
}

func NewAuthService(repo repository.AdminRepository, sessions *session.Manager, log *zap.Logger) AuthService {
	return newAuthService(repo, sessions, log, bcrypt.DefaultCost)
}

func newAuthService(repo repository.AdminRepository, sessions *session.Manager, log *zap.Logger, cost int) *authService {
	dummy, _ := bcrypt.GenerateFromPassword([]byte("equip-shop-dummy-password"), cost)
	return &authService{repo: repo, sessions: sessions, log: log, cost: cost, now: time.Now, dummyHash: dummy}
}

// Login 校验用户名密码并签发会话
func (s *authService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperror.Wrap(apperror.ErrValidation, "username and password are required", nil)
	}

	user, err := s.repo.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		s.log.Warn("login failed", zap.String("username", username), zap.String("reason", "unknown user"))
		return nil, apperror.ErrAuthFailed
	}
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrInternal, "", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.log.Warn("login failed", zap.String("username", username), zap.String("reason", "wrong password"))
		return nil, apperror.ErrAuthFailed
	}
	if !user.Active {
		s.log.Warn("login failed", zap.String("username", username), zap.String("reason", "inactive"))
		return nil, apperror.ErrAuthFailed
	}

	token, sess, err := s.sessions.Issue(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrInternal, "failed to issue session", err)
	}

	now := s.now()
	if err := s.repo.TouchLogin(ctx, user.ID, now); err != nil {
		s.log.Warn("record last login failed", zap.String("admin_id", user.ID), zap.Error(err))
	} else {
		user.LastLoginAt = &now
	}

	s.log.Info("admin logged in", zap.String("admin_id", user.ID), zap.String("username", user.Username))
	return &LoginResult{Token: token, Session: sess, User: user}, nil
}

// Me 当前会话对应的账号
func (s *authService) Me(ctx context.Context, sess *session.Session) (*model.AdminUser, error) {
	if sess == nil {
		return nil, apperror.ErrUnauthorized
	}
	user, err := s.repo.GetByID(ctx, sess.AdminID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.ErrTokenInvalid
	}
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrInternal, "", err)
	}
	if !user.Active {
		return nil, apperror.ErrTokenInvalid
	}
	return user, nil
}

func (s *authService) EnsureBootstrap(ctx context.Context, username, password string) error {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return err
	}
	if total > 0 {
		return nil
	}

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		s.log.Warn("no admin accounts and no bootstrap credentials configured")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return err
	}
	user := &model.AdminUser{Username: username, PasswordHash: string(hash), Role: model.RoleAdmin, Active: true}
	if err := s.repo.Create(ctx, user); err != nil {
		// 多实例同时启动
		if errors.Is(err, repository.ErrDuplicate) {
			return nil
		}
		return err
	}
	s.log.Info("bootstrap admin created", zap.String("username", username))
	return nil
}
