package repository

import (
	"context"
	"errors"
	"time"

	"equip_shop/internal/domain/admin/model"
	"equip_shop/pkg/database"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("admin user not found")
	ErrDuplicate = errors.New("admin username already exists")
)

// AdminRepository 后台账号存储
type AdminRepository interface {
	Create(ctx context.Context, user *model.AdminUser) error
	GetByID(ctx context.Context, id string) (*model.AdminUser, error)
	GetByUsername(ctx context.Context, username string) (*model.AdminUser, error)
	Count(ctx context.Context) (int64, error)
	TouchLogin(ctx context.Context, id string, at time.Time) error
}

type adminRepository struct {
	db    *gorm.DB
	retry database.RetryPolicy
}

func NewAdminRepository(db *gorm.DB, retry database.RetryPolicy) AdminRepository {
	return &adminRepository{db: db, retry: retry}
}

// Create 创建账号
func (r *adminRepository) Create(ctx context.Context, user *model.AdminUser) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) || database.IsUniqueViolation(err) {
		return errors.Join(ErrDuplicate, err)
	}
	return err
}

func (r *adminRepository) GetByID(ctx context.Context, id string) (*model.AdminUser, error) {
	return r.first(ctx, "id = ?", id)
}

// GetByUsername 根据用户名获取账号
func (r *adminRepository) GetByUsername(ctx context.Context, username string) (*model.AdminUser, error) {
	return r.first(ctx, "username = ?", username)
}

func (r *adminRepository) first(ctx context.Context, query string, arg interface{}) (*model.AdminUser, error) {
	var user model.AdminUser
	err := database.WithRetry(ctx, r.retry, func(ctx context.Context) error {
		return r.db.WithContext(ctx).Where(query, arg).First(&user).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *adminRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := database.WithRetry(ctx, r.retry, func(ctx context.Context) error {
		return r.db.WithContext(ctx).Model(&model.AdminUser{}).Count(&total).Error
	})
	return total, err
}

// TouchLogin 记录最近登录时间
func (r *adminRepository) TouchLogin(ctx context.Context, id string, at time.Time) error {
	return database.WithRetry(ctx, r.retry, func(ctx context.Context) error {
		return r.db.WithContext(ctx).Model(&model.AdminUser{}).Where("id = ?", id).
			Updates(map[string]interface{}{"last_login_at": at, "updated_at": at}).Error
	})
}
