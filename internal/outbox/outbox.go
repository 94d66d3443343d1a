// Package outbox keeps finished records on the kiosk while the server is
// unreachable and replays them in order once it is back.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"geoponto/internal/model"
)

// ErrPermanent marks a send failure that retrying cannot fix. Flush drops
// such entries instead of blocking the queue on them.
var ErrPermanent = errors.New("permanent send failure")

// Entry is a queued record.
type Entry struct {
	ID        string `gorm:"primaryKey"`
	Payload   []byte `gorm:"not null"`
	Attempts  int
	LastError string
	CreatedAt time.Time `gorm:"index"`
}

type Outbox struct {
	db *gorm.DB
}

// Open creates or opens the SQLite queue at path.
func Open(path string) (*Outbox, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("open outbox: %w", err)
	}
	return New(db)
}

// New uses an already opened database.
func New(db *gorm.DB) (*Outbox, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrate outbox: %w", err)
	}
	return &Outbox{db: db}, nil
}

func (o *Outbox) Close() error {
	sqlDB, err := o.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Enqueue stores a record. Enqueueing the same record twice keeps one entry.
func (o *Outbox) Enqueue(ctx context.Context, record model.PointRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	entry := Entry{ID: record.ID, Payload: payload, CreatedAt: time.Now()}
	if err := o.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error; err != nil {
		return fmt.Errorf("enqueue %s: %w", record.ID, err)
	}
	return nil
}

// Pending returns up to limit queued records, oldest first. A limit <= 0
// means all of them.
func (o *Outbox) Pending(ctx context.Context, limit int) ([]model.PointRecord, error) {
	entries, err := o.entries(ctx, limit)
	if err != nil {
		return nil, err
	}
	records := make([]model.PointRecord, 0, len(entries))
	for _, e := range entries {
		rec, err := decode(e)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Len counts queued records.
func (o *Outbox) Len(ctx context.Context) (int, error) {
	var n int64
	if err := o.db.WithContext(ctx).Model(&Entry{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count outbox: %w", err)
	}
	return int(n), nil
}

// Ack removes a delivered record.
func (o *Outbox) Ack(ctx context.Context, id string) error {
	if err := o.db.WithContext(ctx).Delete(&Entry{ID: id}).Error; err != nil {
		return fmt.Errorf("ack %s: %w", id, err)
	}
	return nil
}

// Flush sends queued records oldest first and removes each one delivered. It
// stops at the first failure so order is kept, and returns how many records
// were delivered.
func (o *Outbox) Flush(ctx context.Context, send func(context.Context, model.PointRecord) error) (int, error) {
	entries, err := o.entries(ctx, 0)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, e := range entries {
		rec, err := decode(e)
		if err == nil {
			err = send(ctx, rec)
		}
		switch {
		case errors.Is(err, ErrPermanent):
			log.Printf("ERROR dropping queued record %s: %v", e.ID, err)
		case err != nil:
			if uerr := o.db.WithContext(ctx).Model(&e).Updates(map[string]any{
				"attempts":   gorm.Expr("attempts + 1"),
				"last_error": err.Error(),
			}).Error; uerr != nil {
				log.Printf("ERROR update queued record %s: %v", e.ID, uerr)
			}
			return sent, fmt.Errorf("send %s: %w", e.ID, err)
		default:
			sent++
		}
		if err := o.Ack(ctx, e.ID); err != nil {
			return sent, err
		}
	}
	return sent, nil
}

func (o *Outbox) entries(ctx context.Context, limit int) ([]Entry, error) {
	q := o.db.WithContext(ctx).Order("created_at, id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var entries []Entry
	if err := q.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list outbox: %w", err)
	}
	return entries, nil
}

func decode(e Entry) (model.PointRecord, error) {
	var rec model.PointRecord
	if err := json.Unmarshal(e.Payload, &rec); err != nil {
		return rec, fmt.Errorf("%w: decode %s: %v", ErrPermanent, e.ID, err)
	}
	return rec, nil
}
