package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tenurix/internal/auth"
	"tenurix/internal/model"
	"tenurix/internal/repository"

	"gorm.io/gorm"
)

// --- DTOs ---

type SeedUserRequest struct {
	Email    string
	FullName string
	Password string
	Role     string
}

// --- Interface ---

type RoleService interface {
	GetPermissionsByRoleName(ctx context.Context, roleName string) ([]string, error)
	SeedDefaultRolesAndPermissions(ctx context.Context) error
	EnsureUser(ctx context.Context, req SeedUserRequest) (*model.User, bool, error)
}

type roleService struct {
	txm   repository.TransactionManager
	roles repository.RoleRepository
	users repository.UserRepository
}

func NewRoleService(txm repository.TransactionManager, roles repository.RoleRepository, users repository.UserRepository) RoleService {
	return &roleService{txm: txm, roles: roles, users: users}
}

var defaultPermissions = []model.Permission{
	{Key: auth.PermApprovePropertyKey, Name: "Approve or reject property submissions", Group: "properties"},
	{Key: auth.PermReviewPropertyKey, Name: "View the property review queue", Group: "properties"},
	{Key: auth.PermApproveLeaseAppKey, Name: "Approve or reject lease applications", Group: "leasing"},
	{Key: auth.PermReviewLeaseAppKey, Name: "View the lease application queue", Group: "leasing"},
	{Key: auth.PermManageUsersKey, Name: "Manage employees and view the audit log", Group: "users"},
	{Key: auth.PermViewLandlordPortfolioKey, Name: "View landlord portfolios", Group: "landlords"},
	{Key: auth.PermReviewIssuesKey, Name: "Review maintenance issues", Group: "issues"},
}

var defaultRoles = []struct {
	Name        string
	Description string
	PermKeys    []string
}{
	{
		Name:        model.RoleManager,
		Description: "Full back-office access",
		PermKeys: []string{
			auth.PermApprovePropertyKey, auth.PermReviewPropertyKey,
			auth.PermApproveLeaseAppKey, auth.PermReviewLeaseAppKey,
			auth.PermManageUsersKey, auth.PermViewLandlordPortfolioKey, auth.PermReviewIssuesKey,
		},
	},
	{
		Name:        model.RoleAssistantManager,
		Description: "Approves submissions and applications",
		PermKeys: []string{
			auth.PermApprovePropertyKey, auth.PermReviewPropertyKey,
			auth.PermApproveLeaseAppKey, auth.PermReviewLeaseAppKey,
			auth.PermViewLandlordPortfolioKey, auth.PermReviewIssuesKey,
		},
	},
	{
		Name:        model.RoleTeamLead,
		Description: "Reviews assigned submissions, approves applications",
		PermKeys: []string{
			auth.PermReviewPropertyKey,
			auth.PermApproveLeaseAppKey, auth.PermReviewLeaseAppKey,
			auth.PermViewLandlordPortfolioKey, auth.PermReviewIssuesKey,
		},
	},
	{
		Name:        model.RoleStaff,
		Description: "Reviews submissions assigned to them",
		PermKeys:    []string{auth.PermReviewPropertyKey, auth.PermReviewLeaseAppKey, auth.PermReviewIssuesKey},
	},
	{Name: model.RoleLandlord, Description: "Property owner"},
	{Name: model.RoleTenant, Description: "Lease applicant"},
}

// --- Implementation ---

func (s *roleService) GetPermissionsByRoleName(ctx context.Context, roleName string) ([]string, error) {
	keys, err := s.roles.GetPermissionKeysByRoleName(ctx, roleName)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch permissions for role '%s': %w", roleName, err)
	}
	return auth.NewPermissionSet(keys...).Keys(), nil
}

// SeedDefaultRolesAndPermissions creates the default permissions and roles if
// not already present and resets each default role's grants.
func (s *roleService) SeedDefaultRolesAndPermissions(ctx context.Context) error {
	return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		permByKey := make(map[string]model.Permission, len(defaultPermissions))
		for _, def := range defaultPermissions {
			p := def
			if err := s.roles.FindOrCreatePermission(txCtx, &p); err != nil {
				return fmt.Errorf("failed to seed permission '%s': %w", p.Key, err)
			}
			permByKey[p.Key] = p
		}

		for _, def := range defaultRoles {
			role := model.Role{Name: def.Name, Description: def.Description, IsSystem: true}
			if err := s.roles.FindOrCreateRole(txCtx, &role); err != nil {
				return fmt.Errorf("failed to seed role '%s': %w", def.Name, err)
			}

			perms := make([]model.Permission, 0, len(def.PermKeys))
			for _, key := range def.PermKeys {
				if p, ok := permByKey[key]; ok {
					perms = append(perms, p)
				}
			}
			if err := s.roles.ReplacePermissions(txCtx, &role, perms); err != nil {
				return fmt.Errorf("failed to assign permissions to role '%s': %w", def.Name, err)
			}
		}
		return nil
	})
}

// EnsureUser creates an active account with the given role unless the email
// is already taken. created reports whether a row was inserted.
func (s *roleService) EnsureUser(ctx context.Context, req SeedUserRequest) (*model.User, bool, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return nil, false, errors.New("email and password are required")
	}

	var (
		user    *model.User
		created bool
	)
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		existing, err := s.users.GetByEmail(txCtx, email)
		if err == nil {
			user = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up user: %w", err)
		}

		role, err := s.roles.FindByName(txCtx, req.Role)
		if err != nil {
			return fmt.Errorf("role '%s' not found: %w", req.Role, err)
		}
		hash, err := HashPassword(req.Password)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		fullName := strings.TrimSpace(req.FullName)
		if fullName == "" {
			fullName = email
		}
		user = &model.User{
			FullName:     fullName,
			Email:        email,
			IsActive:     true,
			PasswordHash: hash,
			RoleID:       &role.ID,
		}
		if err := s.users.Create(txCtx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return user, created, nil
}
