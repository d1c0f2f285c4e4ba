package model

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleUser  UserRole = "user"  // regular buyer
	RoleStaff UserRole = "staff" // back-office staff, may update order statuses
	RoleAdmin UserRole = "admin" // full administrative access
)

type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Name         string         `gorm:"not null" json:"name"`
	Phone        string         `json:"phone"`
	Role         UserRole       `gorm:"type:varchar(20);default:'user'" json:"role"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	Orders []Order `gorm:"foreignKey:UserID" json:"orders,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// CanManageOrders reports whether the role may perform back-office
// order status updates.
func (r UserRole) CanManageOrders() bool {
	return r == RoleStaff || r == RoleAdmin
}
