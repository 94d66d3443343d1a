package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"geoponto/internal/i18n"
	"geoponto/internal/model"
)

// LateTolerance is how long after the work start an entry still counts as on time.
const LateTolerance = 10 * time.Minute

var weekdayKeys = [...]string{
	"weekday_mon", "weekday_tue", "weekday_wed", "weekday_thu",
	"weekday_fri", "weekday_sat", "weekday_sun",
}

type UserCounter interface {
	CountByRole(ctx context.Context, companyID string, role model.UserRole) (int, error)
}

type StatsService struct {
	points    PointRepository
	users     UserCounter
	workStart time.Duration
	loc       *time.Location
}

// NewStatsService builds the admin aggregates. workStart is "HH:MM" in loc.
func NewStatsService(points PointRepository, users UserCounter, workStart string, loc *time.Location) *StatsService {
	if loc == nil {
		loc = time.UTC
	}
	return &StatsService{points: points, users: users, workStart: parseClock(workStart), loc: loc}
}

func parseClock(s string) time.Duration {
	t, err := time.Parse("15:04", s)
	if err != nil {
		log.Printf("invalid work start %q, using 09:00: %v", s, err)
		return 9 * time.Hour
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute
}

// Stats computes the dashboard figures for the week containing now.
func (s *StatsService) Stats(ctx context.Context, companyID string, now time.Time) (*model.SystemStats, error) {
	employees, err := s.users.CountByRole(ctx, companyID, model.UserRoleEmployee)
	if err != nil {
		return nil, fmt.Errorf("count employees: %w", err)
	}

	today, _ := dayBounds(now, s.loc)
	current := (int(today.Weekday()) + 6) % 7
	monday := today.AddDate(0, 0, -current)
	records, err := s.points.ListByCompanyBetween(ctx, companyID, monday, monday.AddDate(0, 0, 7))
	if err != nil {
		return nil, fmt.Errorf("list week records: %w", err)
	}

	stats := &model.SystemStats{TotalEmployees: employees, Week: make([]model.DayStats, 7)}
	for i := range stats.Week {
		stats.Week[i].Day = i18n.T(ctx, weekdayKeys[i])
	}

	// first entry per user and day decides lateness
	firstEntry := make(map[string]*model.PointRecord)
	for _, r := range records {
		day := s.weekday(r.Timestamp, monday)
		if day < 0 || day > 6 {
			continue
		}
		stats.Week[day].Total++
		if day == current {
			stats.PointsToday++
			if r.Status != model.RecordStatusValid {
				stats.PendingAdjustments++
			}
		}
		if r.Type != model.RecordTypeEntry {
			continue
		}
		key := r.UserID + "/" + r.Date(s.loc)
		if prev, ok := firstEntry[key]; !ok || r.Timestamp.Before(prev.Timestamp) {
			firstEntry[key] = r
		}
	}

	for _, r := range firstEntry {
		if !s.late(r.Timestamp) {
			continue
		}
		day := s.weekday(r.Timestamp, monday)
		stats.Week[day].Late++
		if day == current {
			stats.LateArrivals++
		}
	}
	return stats, nil
}

// weekday returns the index of t's day counted from monday.
func (s *StatsService) weekday(t, monday time.Time) int {
	start, _ := dayBounds(t, s.loc)
	return int(math.Round(start.Sub(monday).Hours() / 24))
}

func (s *StatsService) late(t time.Time) bool {
	start, _ := dayBounds(t, s.loc)
	return t.After(start.Add(s.workStart + LateTolerance))
}
