package services

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"shophand/apperr"
	"shophand/logging"
	"shophand/models"
	"shophand/store"
)

type RegisterRequest struct {
	Username  string          `json:"username" binding:"required,min=3,max=50"`
	Email     string          `json:"email" binding:"required,email"`
	Password  string          `json:"password" binding:"required,min=6"`
	FirstName string          `json:"firstName"`
	LastName  string          `json:"lastName"`
	UserType  models.UserType `json:"userType" binding:"required,oneof=customer driver business"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UserService struct {
	store store.Store
	cost  int
}

// NewUserService hashes with bcrypt.DefaultCost; cost lets tests go faster
func NewUserService(s store.Store, cost int) *UserService {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &UserService{store: s, cost: cost}
}

func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if err := check(req); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}
	user := &models.User{
		Username:     req.Username,
		Email:        strings.ToLower(req.Email),
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		UserType:     req.UserType,
		IsActive:     true,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("username or email already registered")
		}
		return nil, err
	}
	logging.Audit(nil, "user.registered", map[string]any{"user_id": user.ID, "user_type": user.UserType})
	return user, nil
}

// Authenticate checks credentials; unknown email and wrong password fail alike
func (s *UserService) Authenticate(ctx context.Context, req LoginRequest) (*models.User, error) {
	if err := check(req); err != nil {
		return nil, err
	}
	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, apperr.Unauthorized("invalid email or password")
	}
	if !user.IsActive {
		return nil, apperr.Unauthorized("account is disabled")
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.NotFound("user", id)
	}
	return u, nil
}
