package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"geoponto/internal/blob"
	"geoponto/internal/geo"
	"geoponto/internal/i18n"
	"geoponto/internal/mattermost"
	"geoponto/internal/model"
	"geoponto/internal/store"
)

type PointRepository interface {
	Insert(ctx context.Context, record *model.PointRecord) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.PointRecord, error)
	ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]*model.PointRecord, error)
	ListByCompanyBetween(ctx context.Context, companyID string, from, to time.Time) ([]*model.PointRecord, error)
}

// Notifier posts alerts for records outside the geofence.
type Notifier interface {
	CreatePost(ctx context.Context, post *mattermost.Post) (*mattermost.Post, error)
}

type PointOptions struct {
	Blobs        blob.Store
	Alerts       Notifier
	AlertChannel string
	Margin       float64
	Location     *time.Location
}

// PointService is the server-side record sink.
type PointService struct {
	points    PointRepository
	companies *CompanyService
	opts      PointOptions
	now       func() time.Time
}

func NewPointService(points PointRepository, companies *CompanyService, opts PointOptions) *PointService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &PointService{points: points, companies: companies, opts: opts, now: time.Now}
}

// Append stores a record registered by user. Identity fields come from the
// session, and the geofence verdict is recomputed against the stored company
// configuration.
func (s *PointService) Append(ctx context.Context, user *model.UserProfile, record model.PointRecord) (*model.PointRecord, error) {
	record.UserID = user.ID
	record.UserName = user.DisplayName
	record.CompanyID = user.CompanyID
	if record.Timestamp.IsZero() {
		record.Timestamp = s.now()
	}
	if record.IP == "" {
		record.IP = model.PlaceholderIP
	}
	if err := check(&record); err != nil {
		return nil, err
	}

	company, err := s.companies.Get(ctx, record.CompanyID)
	if err != nil {
		return nil, err
	}
	if company.Policies.SelfieRequired && record.SelfieURL == "" {
		return nil, fmt.Errorf("%w: selfie is required", ErrInvalid)
	}

	// A zero location means the device produced no reading.
	var reading *model.Location
	if record.Location != (model.Location{}) {
		reading = &record.Location
	}
	verdict := geo.Evaluate(geo.FenceFor(company, s.opts.Margin), reading)
	record.Status = verdict.Status
	record.DistanceFromOffice = verdict.Distance

	ref, err := blob.Offload(ctx, s.opts.Blobs, record.ID, record.SelfieURL)
	if err != nil {
		if errors.Is(err, blob.ErrNotDataURL) {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		return nil, err
	}
	record.SelfieURL = ref

	if err := s.points.Insert(ctx, &record); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert record: %w", err)
	}

	if record.Status != model.RecordStatusValid {
		s.alert(ctx, &record)
	}
	return &record, nil
}

func (s *PointService) alert(ctx context.Context, record *model.PointRecord) {
	if s.opts.Alerts == nil || s.opts.AlertChannel == "" {
		return
	}
	msg := i18n.T(ctx, "alert_out_of_fence", map[string]any{
		"User":     record.UserName,
		"Type":     i18n.T(ctx, "record_type_"+string(record.Type)),
		"Distance": strconv.FormatFloat(record.DistanceFromOffice, 'f', 0, 64),
		"Status":   i18n.T(ctx, "status_"+string(record.Status)),
		"Time":     record.Timestamp.In(s.opts.Location).Format("02/01/2006 15:04:05"),
	})
	if _, err := s.opts.Alerts.CreatePost(ctx, &mattermost.Post{ChannelID: s.opts.AlertChannel, Message: msg}); err != nil {
		log.Printf("ERROR post geofence alert for %s: %v", record.ID, err)
	}
}

// History returns the user's records newest first.
func (s *PointService) History(ctx context.Context, userID string, limit int) ([]*model.PointRecord, error) {
	records, err := s.points.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

// Today returns the user's records of the current day, newest first.
func (s *PointService) Today(ctx context.Context, userID string) ([]*model.PointRecord, error) {
	from, to := dayBounds(s.now(), s.opts.Location)
	records, err := s.points.ListByUserBetween(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list today's records: %w", err)
	}
	return records, nil
}

// dayBounds returns the start of t's day in loc and the start of the next.
func dayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	t = t.In(loc)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
