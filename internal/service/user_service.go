package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"modtracker/internal/cache"
	apperrors "modtracker/internal/errors"
	"modtracker/internal/model"
	"modtracker/internal/repository"
)

const userCacheTTL = 5 * time.Minute

// UserService exposes user lookups and preferences.
type UserService interface {
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateProjectOrder(ctx context.Context, id uuid.UUID, order []uuid.UUID) (*model.User, error)
}

type userService struct {
	repo  repository.UserRepository
	cache *cache.Client
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(repo repository.UserRepository, cache *cache.Client) UserService {
	return &userService{repo: repo, cache: cache}
}

func userCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("user:%s", id)
}

func (s *userService) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var cached model.User
	if s.cache.GetJSON(ctx, userCacheKey(id), &cached) {
		return &cached, nil
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, storageErr("find user", err)
	}
	_ = s.cache.SetJSON(ctx, userCacheKey(id), user, userCacheTTL)
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, storageErr("list users", err)
	}
	return users, nil
}

// UpdateProjectOrder stores the order, dropping duplicate ids.
func (s *userService) UpdateProjectOrder(ctx context.Context, id uuid.UUID, order []uuid.UUID) (*model.User, error) {
	seen := make(map[uuid.UUID]bool, len(order))
	clean := make(model.UUIDList, 0, len(order))
	for _, p := range order {
		if p == uuid.Nil || seen[p] {
			continue
		}
		seen[p] = true
		clean = append(clean, p)
	}

	if err := s.repo.UpdateProjectOrder(ctx, id, clean); err != nil {
		return nil, storageErr("update project order", err)
	}
	_ = s.cache.Delete(ctx, userCacheKey(id))
	return s.GetUser(ctx, id)
}
