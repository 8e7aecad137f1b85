package model

import "time"

// Built-in role names.
const (
	RoleManager          = "Manager"
	RoleAssistantManager = "AssistantManager"
	RoleTeamLead         = "TeamLead"
	RoleStaff            = "Staff"
	RoleLandlord         = "Landlord"
	RoleTenant           = "Tenant"
)

// EmployeeRoles are the roles that may hold back-office permissions.
var EmployeeRoles = []string{RoleManager, RoleAssistantManager, RoleTeamLead, RoleStaff}

// Role represents a user role with associated permissions
type Role struct {
	ID          int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string       `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	Description string       `gorm:"type:text" json:"description"`
	IsSystem    bool         `gorm:"default:false" json:"is_system"` // Prevent deletion of built-in roles
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Permission is a capability key granted to roles, e.g. "APPROVE_PROPERTY".
type Permission struct {
	ID    int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Key   string `gorm:"type:varchar(100);uniqueIndex;not null" json:"key"`
	Name  string `gorm:"type:varchar(255);not null" json:"name"`
	Group string `gorm:"type:varchar(50);not null;index" json:"group"`
}
