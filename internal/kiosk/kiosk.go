// Package kiosk runs the registration wizard on a terminal and delivers its
// records to the server, queueing them while the server is unreachable.
package kiosk

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"geoponto/internal/api"
	"geoponto/internal/i18n"
	"geoponto/internal/model"
	"geoponto/internal/outbox"
	"geoponto/internal/wizard"
)

const historyLimit = 10

// Server is the part of the API the kiosk talks to.
type Server interface {
	Company(ctx context.Context) (*model.Company, error)
	AppendRecord(ctx context.Context, record model.PointRecord) (*model.PointRecord, error)
	History(ctx context.Context, limit int) ([]*model.PointRecord, error)
	Today(ctx context.Context) ([]*model.PointRecord, error)
}

// Queue holds records that could not be delivered yet.
type Queue interface {
	Enqueue(ctx context.Context, record model.PointRecord) error
	Flush(ctx context.Context, send func(context.Context, model.PointRecord) error) (int, error)
	Len(ctx context.Context) (int, error)
}

type Kiosk struct {
	server Server
	queue  Queue
	out    io.Writer
	wiz    *wizard.Wizard

	mu      sync.Mutex
	company *model.Company
}

// New builds the kiosk and its wizard. cfg.Company is the initial geofence
// configuration and may be refreshed later with Sync.
func New(user model.UserProfile, geolocator wizard.Geolocator, camera wizard.Camera, server Server, queue Queue, cfg wizard.Config, out io.Writer) *Kiosk {
	k := &Kiosk{server: server, queue: queue, out: out, company: cfg.Company}
	k.wiz = wizard.New(user, geolocator, camera, wizard.SinkFunc(k.deliver), cfg)
	return k
}

// Wizard exposes the underlying state machine.
func (k *Kiosk) Wizard() *wizard.Wizard {
	return k.wiz
}

// deliver is the wizard's record sink. Records the server cannot be reached
// for go to the queue unless the company blocks offline registration.
func (k *Kiosk) deliver(ctx context.Context, record model.PointRecord) error {
	_, err := k.server.AppendRecord(ctx, record)
	if err == nil || api.Rejected(err) {
		return err
	}

	k.mu.Lock()
	blockOffline := k.company != nil && k.company.Policies.BlockOffline
	k.mu.Unlock()
	if blockOffline {
		return err
	}

	log.Printf("ERROR deliver record %s, queueing: %v", record.ID, err)
	if qerr := k.queue.Enqueue(ctx, record); qerr != nil {
		return fmt.Errorf("%w (queue: %v)", err, qerr)
	}
	fmt.Fprintln(k.out, i18n.T(ctx, "record_offline"))
	return nil
}

// send replays a queued record. Records the server refuses are dropped.
func (k *Kiosk) send(ctx context.Context, record model.PointRecord) error {
	_, err := k.server.AppendRecord(ctx, record)
	if api.Rejected(err) {
		return fmt.Errorf("%w: %v", outbox.ErrPermanent, err)
	}
	return err
}

// Sync refreshes the company configuration and flushes the queue.
func (k *Kiosk) Sync(ctx context.Context) {
	if c, err := k.server.Company(ctx); err != nil {
		log.Printf("ERROR refresh company: %v", err)
	} else {
		k.mu.Lock()
		k.company = c
		k.mu.Unlock()
		k.wiz.SetCompany(c)
	}

	n, err := k.queue.Flush(ctx, k.send)
	if n > 0 {
		log.Printf("Delivered %d queued records", n)
	}
	if err != nil {
		log.Printf("ERROR flush queue: %v", err)
	}
}

// SyncEvery runs Sync on every tick until ctx ends.
func (k *Kiosk) SyncEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			k.Sync(ctx)
		}
	}
}

// Run reads one command per line from in until quit, EOF or ctx ends.
func (k *Kiosk) Run(ctx context.Context, in io.Reader) error {
	defer k.wiz.Close()

	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
		close(lines)
	}()

	k.prompt()
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-errc
			}
			if !k.Exec(ctx, strings.TrimSpace(line)) {
				return nil
			}
			k.prompt()
		}
	}
}

// Exec runs a single command. It reports false when the kiosk should stop.
func (k *Kiosk) Exec(ctx context.Context, cmd string) bool {
	switch cmd {
	case "":
	case "quit":
		return false
	case "start":
		k.report(ctx, k.wiz.Start(ctx, wizard.ModePlain))
	case "qr":
		k.report(ctx, k.wiz.Start(ctx, wizard.ModeQR))
	case "capture":
		if _, err := k.wiz.Capture(ctx); err != nil {
			k.report(ctx, err)
		} else {
			k.status()
		}
	case "cancel":
		k.wiz.Cancel()
		k.status()
	case "status":
		k.status()
	case "history":
		k.history(ctx)
	case "today":
		k.today(ctx)
	default:
		kind := model.RecordType(cmd)
		if !kind.Valid() {
			fmt.Fprintf(k.out, "unknown command %q\n", cmd)
			k.usage()
			return true
		}
		record, err := k.wiz.Finalize(ctx, kind)
		if err != nil {
			k.report(ctx, err)
			return true
		}
		fmt.Fprintln(k.out, i18n.T(ctx, "record_success"))
		fmt.Fprintf(k.out, "%s %s  %s (%.0f m)\n",
			i18n.T(ctx, "record_type_"+string(record.Type)),
			record.Timestamp.Format("15:04:05"),
			i18n.T(ctx, "status_"+string(record.Status)),
			record.DistanceFromOffice)
	}
	return true
}

func (k *Kiosk) report(ctx context.Context, err error) {
	if err == nil {
		k.status()
		return
	}
	// Only these errors leave a fresh message on the wizard.
	if errors.Is(err, wizard.ErrLocationUnavailable) || errors.Is(err, wizard.ErrCameraUnavailable) ||
		errors.Is(err, wizard.ErrQRDisabled) || errors.Is(err, wizard.ErrNotDelivered) {
		if msg := k.wiz.Snapshot().Error; msg != "" {
			fmt.Fprintln(k.out, msg)
			return
		}
	}
	switch {
	case errors.Is(err, wizard.ErrSelfieRequired):
		fmt.Fprintln(k.out, i18n.T(ctx, "selfie_required"))
	default:
		fmt.Fprintln(k.out, err)
	}
}

func (k *Kiosk) status() {
	s := k.wiz.Snapshot()
	line := "step=" + string(s.Step)
	if s.Mode != "" {
		line += " mode=" + string(s.Mode)
	}
	if s.Loading {
		line += " loading"
	}
	if s.Location != nil {
		line += fmt.Sprintf(" lat=%.6f lng=%.6f", s.Location.Lat, s.Location.Lng)
	}
	if s.Image != "" {
		line += " selfie=captured"
	}
	if s.Error != "" {
		line += " error=" + s.Error
	}
	if s.Success {
		line += " success"
	}
	fmt.Fprintln(k.out, line)
}

func (k *Kiosk) history(ctx context.Context) {
	records, err := k.server.History(ctx, historyLimit)
	if err != nil {
		fmt.Fprintln(k.out, err)
	}
	for _, r := range records {
		fmt.Fprintf(k.out, "%s  %-16s %-10s %.0f m\n",
			r.Timestamp.Local().Format("02/01 15:04"),
			i18n.T(ctx, "record_type_"+string(r.Type)),
			i18n.T(ctx, "status_"+string(r.Status)),
			r.DistanceFromOffice)
	}
	if n, err := k.queue.Len(ctx); err == nil && n > 0 {
		fmt.Fprintf(k.out, "+%d queued\n", n)
	}
}

// today lists the kinds already registered on the current day.
func (k *Kiosk) today(ctx context.Context) {
	records, err := k.server.Today(ctx)
	if err != nil {
		fmt.Fprintln(k.out, err)
		return
	}
	if len(records) == 0 {
		fmt.Fprintln(k.out, i18n.T(ctx, "today_empty"))
		return
	}
	for _, r := range records {
		fmt.Fprintf(k.out, "%s  %s\n",
			r.Timestamp.Local().Format("15:04"),
			i18n.T(ctx, "record_type_"+string(r.Type)))
	}
}

func (k *Kiosk) prompt() {
	fmt.Fprint(k.out, "> ")
}

func (k *Kiosk) usage() {
	fmt.Fprintln(k.out, "commands: start, qr, capture, entry, exit, pause_start, pause_end, cancel, status, history, today, quit")
}
