package service

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"

	"github.com/spec-kit/store-management/internal/api/dto"
	"github.com/spec-kit/store-management/internal/auth"
	"github.com/spec-kit/store-management/internal/domain"
	"github.com/spec-kit/store-management/internal/mapper"
	"github.com/spec-kit/store-management/internal/repository"
	"github.com/spec-kit/store-management/pkg/errorutil"
)

// UserService coordinates account creation, role assignment and credential checks.
type UserService struct {
	store      repository.Store
	bcryptCost int
	logger     *zap.Logger
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	Store      repository.Store
	BcryptCost int
	Logger     *zap.Logger
}

// NewUserService builds the service.
func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{store: deps.Store, bcryptCost: deps.BcryptCost, logger: logger}
}

// Create registers an enabled account holding only the USER role.
func (s *UserService) Create(ctx context.Context, req dto.UserCreateRequest) (*dto.UserResponse, error) {
	if err := dto.Validate(&req); err != nil {
		return nil, err
	}

	var user domain.User
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		taken, err := repos.Users().ExistsByUsername(ctx, req.Username)
		if err != nil {
			return err
		}
		if taken {
			return errorutil.New(errorutil.ValidationError, "Username already exists: "+req.Username)
		}

		taken, err = repos.Users().ExistsByEmail(ctx, req.Email)
		if err != nil {
			return err
		}
		if taken {
			return errorutil.New(errorutil.ValidationError, "Email already exists: "+req.Email)
		}

		role, err := repos.Roles().FindByName(ctx, domain.RoleUser)
		if err != nil {
			return errorutil.Wrap(errorutil.InternalServerError, err)
		}

		hash, err := auth.HashPassword(req.Password, s.bcryptCost)
		if err != nil {
			return errorutil.Wrap(errorutil.InternalServerError, err)
		}

		user = domain.User{
			Username:     req.Username,
			Email:        req.Email,
			PasswordHash: hash,
			Enabled:      true,
			Roles:        []domain.Role{*role},
		}
		return repos.Users().Save(ctx, &user)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user created", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	resp := mapper.UserToResponse(user)
	return &resp, nil
}

// AssignRole adds a role to a user. Roles are never removed.
func (s *UserService) AssignRole(ctx context.Context, req dto.AssignRoleRequest) (*dto.UserResponse, error) {
	if err := dto.Validate(&req); err != nil {
		return nil, err
	}
	userID := *req.UserID
	roleName := domain.RoleName(req.RoleName)

	var user *domain.User
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		user, err = repos.Users().FindByID(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return errorutil.New(errorutil.ValidationError, "User not found with ID: "+strconv.FormatInt(userID, 10))
		}
		if err != nil {
			return err
		}

		role, err := repos.Roles().FindByName(ctx, roleName)
		if errors.Is(err, repository.ErrNotFound) {
			return errorutil.New(errorutil.ValidationError, "Role not found: "+req.RoleName)
		}
		if err != nil {
			return err
		}

		if user.HasRole(role.Name) {
			return errorutil.New(errorutil.ValidationError, "User already has role: "+req.RoleName)
		}
		user.Roles = append(user.Roles, *role)
		return repos.Users().Save(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("role assigned", zap.Int64("user_id", user.ID), zap.String("role", req.RoleName))
	resp := mapper.UserToResponse(*user)
	return &resp, nil
}

// Authenticate verifies a username and password pair.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.FindActive(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, errorutil.New(errorutil.Unauthorized, "invalid credentials")
	}
	return user, nil
}

// FindActive loads an enabled user with its roles.
func (s *UserService) FindActive(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.store.Users().FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errorutil.New(errorutil.Unauthorized, "invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if !user.Enabled {
		return nil, errorutil.New(errorutil.Unauthorized, "account disabled")
	}
	return user, nil
}

// EnsureBootstrapAdmin creates an ADMIN account when the username is free.
// Existing accounts are left untouched.
func (s *UserService) EnsureBootstrapAdmin(ctx context.Context, username, email, password string) error {
	created := false
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		exists, err := repos.Users().ExistsByUsername(ctx, username)
		if err != nil || exists {
			return err
		}

		roles := make([]domain.Role, 0, 2)
		for _, name := range []domain.RoleName{domain.RoleUser, domain.RoleAdmin} {
			role, err := repos.Roles().FindByName(ctx, name)
			if err != nil {
				return err
			}
			roles = append(roles, *role)
		}

		hash, err := auth.HashPassword(password, s.bcryptCost)
		if err != nil {
			return err
		}
		created = true
		return repos.Users().Save(ctx, &domain.User{
			Username:     username,
			Email:        email,
			PasswordHash: hash,
			Enabled:      true,
			Roles:        roles,
		})
	})
	if err != nil {
		return err
	}
	if created {
		s.logger.Info("bootstrap admin created", zap.String("username", username))
	}
	return nil
}
