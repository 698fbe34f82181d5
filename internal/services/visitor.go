package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"campuspass/internal/domain"
)

type visitorService struct {
	visitorRepo    domain.VisitorRepository
	attendanceRepo domain.AttendanceRepository
	hub            domain.EventHub
}

// NewVisitorService creates a VisitorService with the given repositories.
func NewVisitorService(
	visitorRepo domain.VisitorRepository,
	attendanceRepo domain.AttendanceRepository,
	hub domain.EventHub,
) domain.VisitorService {
	return &visitorService{
		visitorRepo:    visitorRepo,
		attendanceRepo: attendanceRepo,
		hub:            hub,
	}
}

func (s *visitorService) Create(ctx context.Context, v *domain.Visitor) (*domain.Visitor, error) {
	if v == nil || strings.TrimSpace(v.FirstName) == "" || strings.TrimSpace(v.Surname) == "" || strings.TrimSpace(v.Email) == "" {
		return nil, fmt.Errorf("%w: first_name, surname and email are required", domain.ErrInvalidInput)
	}
	now := time.Now()
	v.CreatedAt = now
	v.UpdatedAt = now
	if v.RoleIDs == nil {
		v.RoleIDs = []string{}
	}
	if err := s.visitorRepo.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("create visitor: %w", err)
	}
	s.hub.Publish(domain.Event{Action: domain.EventCreated, Record: "visitor", ID: v.ID})
	return v, nil
}

func (s *visitorService) Get(ctx context.Context, id string) (*domain.Visitor, error) {
	v, err := s.visitorRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get visitor: %w", err)
	}
	return v, nil
}

func (s *visitorService) GetDetailed(ctx context.Context, id string) (*domain.VisitorDetailed, error) {
	d, err := s.visitorRepo.GetDetailed(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get visitor detailed: %w", err)
	}
	return d, nil
}

func (s *visitorService) List(ctx context.Context, p domain.PaginationParams) ([]*domain.Visitor, int, error) {
	visitors, total, err := s.visitorRepo.List(ctx, p)
	if err != nil {
		return nil, 0, fmt.Errorf("list visitors: %w", err)
	}
	return visitors, total, nil
}

// Search matches whitespace-separated terms and partitions the result by
// affiliation: group members, position holders, department members, and
// role-only visitors.
func (s *visitorService) Search(ctx context.Context, query string) (*domain.SearchResult, error) {
	terms := strings.Fields(query)
	matches, err := s.visitorRepo.Search(ctx, terms)
	if err != nil {
		return nil, fmt.Errorf("search visitors: %w", err)
	}

	result := &domain.SearchResult{
		Students:          []*domain.VisitorDetailed{},
		Staff:             []*domain.VisitorDetailed{},
		DepartmentMembers: []*domain.VisitorDetailed{},
		Other:             []*domain.VisitorDetailed{},
	}
	for _, v := range matches {
		if len(v.Groups) > 0 {
			result.Students = append(result.Students, v)
		}
		if len(v.Positions) > 0 {
			result.Staff = append(result.Staff, v)
		}
		if len(v.Departments) > 0 {
			result.DepartmentMembers = append(result.DepartmentMembers, v)
		}
		if len(v.Groups) == 0 && len(v.Positions) == 0 && len(v.Departments) == 0 && len(v.Roles) > 0 {
			result.Other = append(result.Other, v)
		}
	}
	return result, nil
}

func (s *visitorService) ListByRole(ctx context.Context, f domain.VisitorRoleFilter) ([]*domain.VisitorRoleRow, int, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 25
	}
	rows, total, err := s.visitorRepo.ListByRole(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list visitors by role: %w", err)
	}
	return rows, total, nil
}

func (s *visitorService) Categories(ctx context.Context) ([]*domain.VisitorCategory, error) {
	counts, err := s.visitorRepo.CountCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("count visitor categories: %w", err)
	}
	return []*domain.VisitorCategory{
		{CategoryName: "All", CategorySysName: "all", Total: counts.Total},
		{CategoryName: "Students", CategorySysName: "students", Total: counts.Students},
		{CategoryName: "Teachers", CategorySysName: "teachers", Total: counts.Teachers},
		{CategoryName: "Employees", CategorySysName: "employees", Total: counts.Employees},
		{CategoryName: "Guests", CategorySysName: "guests", Total: counts.Guests},
	}, nil
}

// AttendanceHistory groups the visitor's attendances by UTC calendar date,
// newest day first. Entries within a day keep their newest-first order.
func (s *visitorService) AttendanceHistory(ctx context.Context, id string) ([]*domain.AttendanceDay, error) {
	if _, err := s.visitorRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get visitor: %w", err)
	}
	attendances, err := s.attendanceRepo.ListByVisitor(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list attendances: %w", err)
	}

	days := []*domain.AttendanceDay{}
	byDate := make(map[string]*domain.AttendanceDay)
	for _, a := range attendances {
		date := a.EntryTime.UTC().Format("2006-01-02")
		day, ok := byDate[date]
		if !ok {
			day = &domain.AttendanceDay{Date: date, Entries: []*domain.AttendanceEntry{}}
			byDate[date] = day
			days = append(days, day)
		}
		day.Entries = append(day.Entries, &domain.AttendanceEntry{Entry: a.EntryTime, Exit: a.ExitTime})
	}
	// Attendances arrive newest entry first, so days are already in
	// descending date order.
	return days, nil
}

func (s *visitorService) Update(ctx context.Context, id string, upd domain.VisitorUpdate) (*domain.Visitor, error) {
	v, err := s.visitorRepo.Update(ctx, id, upd)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update visitor: %w", err)
	}
	s.hub.Publish(domain.Event{Action: domain.EventUpdated, Record: "visitor", ID: id})
	return v, nil
}

func (s *visitorService) Delete(ctx context.Context, id string) error {
	if err := s.visitorRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete visitor: %w", err)
	}
	s.hub.Publish(domain.Event{Action: domain.EventDeleted, Record: "visitor", ID: id})
	return nil
}
