package model

import (
	"time"

	"equip_shop/pkg/model"
)

// 后台角色
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// AdminUser 后台账号
type AdminUser struct {
	model.BaseModel
	Username     string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	PasswordHash string     `gorm:"not null" json:"-"` // 密码不返回给前端
	Role         string     `gorm:"type:varchar(16);not null;default:staff" json:"role"`
	Active       bool       `gorm:"not null;default:true" json:"active"`
	LastLoginAt  *time.Time `json:"lastLoginAt"`
}

func (AdminUser) TableName() string {
	return "admin_users"
}
