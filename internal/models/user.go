package models

import (
	"sort"
	"time"
)

type User struct {
	ID            uint       `json:"id" gorm:"primaryKey"`
	Name          string     `json:"name" gorm:"size:100;not null"`
	Email         string     `json:"email" gorm:"size:255;uniqueIndex;not null"`
	PasswordHash  string     `json:"-" gorm:"not null"`
	Phone         string     `json:"phone,omitempty" gorm:"size:20"`
	Document      string     `json:"document,omitempty" gorm:"size:14"`
	IsActive      bool       `json:"is_active" gorm:"default:true"`
	EmailVerified bool       `json:"email_verified" gorm:"default:false"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	Groups        []Group    `json:"-" gorm:"many2many:user_groups"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type Group struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"size:50;uniqueIndex;not null"`
	Description string `json:"description,omitempty" gorm:"size:255"`
	AccessLevel int    `json:"access_level" gorm:"not null"`
	IsActive    bool   `json:"is_active" gorm:"default:true"`
}

// GROUPS is reserved in MySQL 8, so the table gets a longer name.
func (Group) TableName() string {
	return "access_groups"
}

const (
	GroupCustomer = "Customer"
	GroupCourier  = "Courier"
	GroupManager  = "Manager"
	GroupAdmin    = "Admin"
)

// Access levels of the default groups. Anything at or above ManagerAccessLevel
// may act on other users' orders.
const (
	CustomerAccessLevel = 1
	CourierAccessLevel  = 2
	ManagerAccessLevel  = 3
	AdminAccessLevel    = 4
)

// DefaultGroups are created on first start.
func DefaultGroups() []Group {
	return []Group{
		{Name: GroupCustomer, Description: "Regular customers", AccessLevel: CustomerAccessLevel, IsActive: true},
		{Name: GroupCourier, Description: "Delivery couriers", AccessLevel: CourierAccessLevel, IsActive: true},
		{Name: GroupManager, Description: "Store managers", AccessLevel: ManagerAccessLevel, IsActive: true},
		{Name: GroupAdmin, Description: "System administrators", AccessLevel: AdminAccessLevel, IsActive: true},
	}
}

// AccessLevel is the maximum level across the user's active groups.
func (u *User) AccessLevel() int {
	level := 0
	for _, g := range u.Groups {
		if g.IsActive && g.AccessLevel > level {
			level = g.AccessLevel
		}
	}
	return level
}

// GroupNames returns the names of the user's active groups, sorted.
func (u *User) GroupNames() []string {
	names := make([]string, 0, len(u.Groups))
	for _, g := range u.Groups {
		if g.IsActive {
			names = append(names, g.Name)
		}
	}
	sort.Strings(names)
	return names
}

// UserProfile is the client-facing projection of a user.
type UserProfile struct {
	ID            uint       `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone,omitempty"`
	Document      string     `json:"document,omitempty"`
	IsActive      bool       `json:"is_active"`
	EmailVerified bool       `json:"email_verified"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	Groups        []string   `json:"groups"`
	AccessLevel   int        `json:"access_level"`
}

func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Phone:         u.Phone,
		Document:      u.Document,
		IsActive:      u.IsActive,
		EmailVerified: u.EmailVerified,
		LastLoginAt:   u.LastLoginAt,
		Groups:        u.GroupNames(),
		AccessLevel:   u.AccessLevel(),
	}
}
