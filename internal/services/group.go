package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"campuspass/internal/domain"
)

type groupService struct {
	repo domain.GroupRepository
	hub  domain.EventHub
}

// NewGroupService creates a GroupService with the given repository.
func NewGroupService(repo domain.GroupRepository, hub domain.EventHub) domain.GroupService {
	return &groupService{repo: repo, hub: hub}
}

func (s *groupService) Create(ctx context.Context, name string) (*domain.StudentsGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	g := &domain.StudentsGroup{Name: name}
	if err := s.repo.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	s.hub.Publish(domain.Event{Action: domain.EventCreated, Record: "group", ID: g.ID})
	return g, nil
}

func (s *groupService) Get(ctx context.Context, id string) (*domain.StudentsGroup, error) {
	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get group: %w", err)
	}
	return g, nil
}

func (s *groupService) List(ctx context.Context) ([]*domain.StudentsGroup, error) {
	groups, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

func (s *groupService) Update(ctx context.Context, id, name string) (*domain.StudentsGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	g, err := s.repo.Update(ctx, id, name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update group: %w", err)
	}
	s.hub.Publish(domain.Event{Action: domain.EventUpdated, Record: "group", ID: id})
	return g, nil
}

func (s *groupService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete group: %w", err)
	}
	s.hub.Publish(domain.Event{Action: domain.EventDeleted, Record: "group", ID: id})
	return nil
}
