package service

import (
	"context"
	"errors"
	"fmt"

	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"

	"go.uber.org/zap"
)

type CreateUserRequest struct {
	Username    string `json:"username" validate:"required,notblank,max=100"`
	Password    string `json:"password" validate:"required,min=6"`
	IDNumber    string `json:"idNumber" validate:"max=50"`
	PhoneNumber string `json:"phoneNumber" validate:"max=20"`
	Position    string `json:"position" validate:"max=100"`
}

type UpdateUserRequest struct {
	Username    string  `json:"username" validate:"required,notblank,max=100"`
	Password    *string `json:"password,omitempty" validate:"omitempty,min=6"` // Optional
	IDNumber    string  `json:"idNumber" validate:"max=50"`
	PhoneNumber string  `json:"phoneNumber" validate:"max=20"`
	Position    string  `json:"position" validate:"max=100"`
}

type UserService interface {
	CreateUser(ctx context.Context, req *CreateUserRequest) (*model.UserResponse, error)
	ListUsers(ctx context.Context) ([]model.UserResponse, error)
	GetUser(ctx context.Context, username string) (*model.UserResponse, error)
	UpdateUser(ctx context.Context, username string, req *UpdateUserRequest) (*model.UserResponse, error)
	DeleteUser(ctx context.Context, username string) error
	ResetPassword(ctx context.Context, username, newPassword string) error
}

type userService struct {
	userRepo repository.UserRepository
	log      *zap.Logger
}

func NewUserService(userRepo repository.UserRepository, log *zap.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		log:      log,
	}
}

func (s *userService) CreateUser(ctx context.Context, req *CreateUserRequest) (*model.UserResponse, error) {
	// 1. Validate request
	if err := validate(req); err != nil {
		return nil, err
	}

	// 2. Build user
	user := &model.User{
		Username:    req.Username,
		IDNumber:    req.IDNumber,
		PhoneNumber: req.PhoneNumber,
		Position:    req.Position,
	}

	// 3. Set password
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	// 4. Save to database
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: user '%s'", ErrConflict, req.Username)
		}
		return nil, storageError("create user", err)
	}

	s.log.Info("user created", zap.String("username", user.Username))
	response := user.ToResponse()
	return &response, nil
}

func (s *userService) ListUsers(ctx context.Context) ([]model.UserResponse, error) {
	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		return nil, storageError("list users", err)
	}

	responses := make([]model.UserResponse, len(users))
	for i, user := range users {
		responses[i] = user.ToResponse()
	}
	return responses, nil
}

func (s *userService) GetUser(ctx context.Context, username string) (*model.UserResponse, error) {
	user, err := s.find(ctx, username)
	if err != nil {
		return nil, err
	}
	response := user.ToResponse()
	return &response, nil
}

func (s *userService) UpdateUser(ctx context.Context, username string, req *UpdateUserRequest) (*model.UserResponse, error) {
	// 1. Validate request
	if err := validate(req); err != nil {
		return nil, err
	}

	// 2. Find existing user
	user, err := s.find(ctx, username)
	if err != nil {
		return nil, err
	}

	// 3. Check if username is being changed and already exists
	if req.Username != user.Username {
		if _, err := s.userRepo.FindByUsername(ctx, req.Username); err == nil {
			return nil, fmt.Errorf("%w: user '%s'", ErrConflict, req.Username)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, storageError("find user", err)
		}
	}

	// 4. Update user fields
	user.Username = req.Username
	user.IDNumber = req.IDNumber
	user.PhoneNumber = req.PhoneNumber
	user.Position = req.Position

	// 5. Update password if provided
	if req.Password != nil && *req.Password != "" {
		if err := user.SetPassword(*req.Password); err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
	}

	// 6. Save to database
	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: user '%s'", ErrConflict, req.Username)
		}
		return nil, storageError("update user", err)
	}

	s.log.Info("user updated", zap.String("username", username), zap.String("new_username", user.Username))
	response := user.ToResponse()
	return &response, nil
}

func (s *userService) DeleteUser(ctx context.Context, username string) error {
	if err := s.userRepo.DeleteByUsername(ctx, username); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: user '%s'", ErrNotFound, username)
		}
		return storageError("delete user", err)
	}
	s.log.Info("user deleted", zap.String("username", username))
	return nil
}

func (s *userService) ResetPassword(ctx context.Context, username, newPassword string) error {
	if len(newPassword) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", ErrInvalidInput)
	}

	user, err := s.find(ctx, username)
	if err != nil {
		return err
	}
	if err := user.SetPassword(newPassword); err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, user.Password); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: user '%s'", ErrNotFound, username)
		}
		return storageError("update password", err)
	}

	s.log.Info("password reset", zap.String("username", username))
	return nil
}

func (s *userService) find(ctx context.Context, username string) (*model.User, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: user '%s'", ErrNotFound, username)
		}
		return nil, storageError("find user", err)
	}
	return user, nil
}
