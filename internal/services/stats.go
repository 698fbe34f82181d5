package services

import (
	"context"
	"fmt"

	"campuspass/internal/domain"
)

type statsService struct {
	groupRepo      domain.GroupRepository
	attendanceRepo domain.AttendanceRepository
}

// NewStatsService creates a StatsService over the group and attendance
// repositories.
func NewStatsService(groupRepo domain.GroupRepository, attendanceRepo domain.AttendanceRepository) domain.StatsService {
	return &statsService{
		groupRepo:      groupRepo,
		attendanceRepo: attendanceRepo,
	}
}

// Snapshot computes per-group occupancy: total is the member count, present
// is the number of distinct members with at least one open attendance. A
// visitor with several open entries still counts once.
func (s *statsService) Snapshot(ctx context.Context) ([]*domain.GroupStats, error) {
	groups, err := s.groupRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	memberships, err := s.groupRepo.ListMemberships(ctx)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	openIDs, err := s.attendanceRepo.ListOpenVisitorIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list open attendances: %w", err)
	}

	open := make(map[string]struct{}, len(openIDs))
	for _, id := range openIDs {
		open[id] = struct{}{}
	}

	membersByGroup := make(map[string]map[string]struct{})
	for _, m := range memberships {
		members, ok := membersByGroup[m.GroupID]
		if !ok {
			members = make(map[string]struct{})
			membersByGroup[m.GroupID] = members
		}
		members[m.VisitorID] = struct{}{}
	}

	result := make([]*domain.GroupStats, 0, len(groups))
	for _, g := range groups {
		stats := &domain.GroupStats{ID: g.ID, Name: g.Name}
		for visitorID := range membersByGroup[g.ID] {
			stats.Total++
			if _, present := open[visitorID]; present {
				stats.Present++
			}
		}
		result = append(result, stats)
	}
	return result, nil
}
