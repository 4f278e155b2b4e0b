package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"workmatch/internal/domain"
)

// UserService manages the directory mirror of externally owned identities.
type UserService struct {
	users domain.UserRepository

	Now func() time.Time
}

func NewUserService(users domain.UserRepository) *UserService {
	return &UserService{users: users, Now: utcNow}
}

type RegisterInput struct {
	ID                int64
	Role              domain.Role
	FullName          string
	Governorate       string
	District          string
	Specialty         string
	IsAvailable       bool
	NeededSpecialists []string
}

// Register validates in against the taxonomy and stores a directory entry.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if in.ID <= 0 {
		return nil, fmt.Errorf("user id must be positive: %w", domain.ErrInvalidInput)
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("unknown role %q: %w", in.Role, domain.ErrInvalidInput)
	}
	name := strings.TrimSpace(in.FullName)
	if name == "" {
		return nil, fmt.Errorf("full name is required: %w", domain.ErrInvalidInput)
	}
	if in.Governorate != "" || in.District != "" {
		if !domain.IsDistrictOf(in.Governorate, in.District) {
			return nil, fmt.Errorf("district %q is not in governorate %q: %w", in.District, in.Governorate, domain.ErrInvalidInput)
		}
	}

	user := &domain.User{
		ID:          in.ID,
		Role:        in.Role,
		FullName:    name,
		Governorate: in.Governorate,
		District:    in.District,
		IsAvailable: in.IsAvailable,
		CreatedAt:   s.Now(),
	}

	switch in.Role {
	case domain.RoleSpecialist:
		if !domain.IsSpecialty(in.Specialty) {
			return nil, fmt.Errorf("unknown specialty %q: %w", in.Specialty, domain.ErrInvalidInput)
		}
		specialty := in.Specialty
		user.Specialty = &specialty
	case domain.RoleClient:
		if in.Specialty != "" {
			return nil, fmt.Errorf("clients have no specialty: %w", domain.ErrInvalidInput)
		}
		needed, err := neededList(in.NeededSpecialists)
		if err != nil {
			return nil, err
		}
		user.NeededSpecialists = needed
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// List pages through the directory. The role is required and limit is
// clamped to [1, 100].
func (s *UserService) List(ctx context.Context, f domain.UserFilter) ([]*domain.User, error) {
	if !f.Role.Valid() {
		return nil, fmt.Errorf("unknown role %q: %w", f.Role, domain.ErrInvalidInput)
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 100
	}
	f.Specialty = strings.TrimSpace(f.Specialty)
	f.Governorate = strings.TrimSpace(f.Governorate)
	f.District = strings.TrimSpace(f.District)
	return s.users.List(ctx, f)
}

// SetAvailability toggles whether a specialist accepts new work.
func (s *UserService) SetAvailability(ctx context.Context, user *domain.User, available bool) (*domain.User, error) {
	if user.Role != domain.RoleSpecialist {
		return nil, fmt.Errorf("only specialists have availability: %w", domain.ErrForbidden)
	}
	return s.users.SetAvailability(ctx, user.ID, available)
}

// SetNeededSpecialists replaces a client's wish list. An empty list clears it.
func (s *UserService) SetNeededSpecialists(ctx context.Context, user *domain.User, names []string) (*domain.User, error) {
	if user.Role != domain.RoleClient {
		return nil, fmt.Errorf("only clients list needed specialists: %w", domain.ErrForbidden)
	}
	needed, err := neededList(names)
	if err != nil {
		return nil, err
	}
	return s.users.SetNeededSpecialists(ctx, user.ID, needed)
}

// neededList validates names against the taxonomy and keeps the first
// occurrence of each, compared without case.
func neededList(names []string) ([]domain.NeededSpecialist, error) {
	var out []domain.NeededSpecialist
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if !domain.IsSpecialty(name) {
			return nil, fmt.Errorf("unknown specialty %q: %w", name, domain.ErrInvalidInput)
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, domain.NeededSpecialist{Name: name, IsNeeded: true})
	}
	return out, nil
}
