// Package wizard implements the point registration flow: a location reading,
// an optional station QR scan, a selfie capture and a confirmation that emits
// one PointRecord to the caller's sink.
//
// Every flow owns at most one open camera stream. The stream is released on
// each exit edge (cancel, the QR scan handing over to the front camera,
// capture, completion and errors), and deferred completions scheduled by a
// flow are dropped as soon as that flow ends.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"geoponto/internal/geo"
	"geoponto/internal/i18n"
	"geoponto/internal/model"
)

type Step string

const (
	StepIdle       Step = "idle"
	StepScanning   Step = "scanning"
	StepCamera     Step = "camera"
	StepConfirming Step = "confirming"
)

type Mode string

const (
	ModePlain Mode = "plain"
	ModeQR    Mode = "qr"
)

const (
	DefaultQRDetectDelay = 3 * time.Second
	DefaultFinalizeDelay = 1500 * time.Millisecond
	DefaultSuccessTTL    = 3 * time.Second
)

type Config struct {
	QRDetectDelay time.Duration
	FinalizeDelay time.Duration
	SuccessTTL    time.Duration

	// DeviceInfo and Address describe the caller and are copied into every
	// record. An empty Address leaves the IP for the sink to fill.
	DeviceInfo string
	Address    string

	// Company supplies the geofence and policies. Without it every policy
	// takes its default and records carry no distance.
	Company *model.Company
	Margin  float64

	Now   func() time.Time
	NewID func() string
}

func (c *Config) setDefaults() {
	if c.QRDetectDelay <= 0 {
		c.QRDetectDelay = DefaultQRDetectDelay
	}
	if c.FinalizeDelay <= 0 {
		c.FinalizeDelay = DefaultFinalizeDelay
	}
	if c.SuccessTTL <= 0 {
		c.SuccessTTL = DefaultSuccessTTL
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.NewID == nil {
		c.NewID = uuid.NewString
	}
}

func (c *Config) policies() model.Policies {
	if c.Company == nil {
		return model.DefaultPolicies()
	}
	return c.Company.Policies
}

// Snapshot is what a screen needs to render the wizard.
type Snapshot struct {
	Step     Step
	Mode     Mode
	Loading  bool
	Error    string
	Success  bool
	Image    string
	Location *model.Location
}

// flow is one pass from Start back to idle.
type flow struct {
	mode   Mode
	ctx    context.Context
	cancel context.CancelFunc

	stream     Stream
	facing     Facing
	location   *model.Location
	image      string
	finalizing bool
	delivering bool
}

type Wizard struct {
	user model.UserProfile
	geo  Geolocator
	cam  Camera
	sink Sink
	cfg  Config

	mu        sync.Mutex
	step      Step
	flow      *flow
	lastErr   string
	successAt time.Time

	timers sync.WaitGroup
}

func New(user model.UserProfile, geolocator Geolocator, camera Camera, sink Sink, cfg Config) *Wizard {
	cfg.setDefaults()
	return &Wizard{
		user: user,
		geo:  geolocator,
		cam:  camera,
		sink: sink,
		cfg:  cfg,
		step: StepIdle,
	}
}

// SetCompany replaces the geofence and policies used by the next flow.
func (w *Wizard) SetCompany(c *model.Company) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cfg.Company = c
}

// Start begins a plain (front camera) or QR-assisted flow. It returns once
// the first camera is live or the flow has failed back to idle.
func (w *Wizard) Start(ctx context.Context, mode Mode) error {
	w.mu.Lock()
	if w.flow != nil {
		w.mu.Unlock()
		return ErrBusy
	}
	policies := w.cfg.policies()
	if mode == ModeQR && !policies.QRAllowed {
		w.lastErr = i18n.T(ctx, "qr_disabled")
		w.mu.Unlock()
		return ErrQRDisabled
	}
	if mode != ModeQR {
		mode = ModePlain
	}

	fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	f := &flow{mode: mode, ctx: fctx, cancel: cancel}
	w.flow = f
	w.lastErr = ""
	w.successAt = time.Time{}
	w.mu.Unlock()

	// The caller may give up while Start is still waiting on a device.
	stop := context.AfterFunc(ctx, func() { w.abort(f) })
	defer stop()

	loc, err := w.geo.Locate(f.ctx, policies.HighAccuracyGPS)

	w.mu.Lock()
	if w.flow != f {
		w.mu.Unlock()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrCancelled
	}
	if err != nil {
		msg := "location_denied"
		if errors.Is(err, ErrGeolocationUnsupported) {
			msg = "location_unsupported"
		}
		w.fail(f, i18n.T(f.ctx, msg))
		w.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}
	f.location = &loc

	facing := FacingUser
	w.step = StepCamera
	if mode == ModeQR {
		facing = FacingEnvironment
		w.step = StepScanning
	}
	w.mu.Unlock()

	if err := w.open(f, facing); err != nil {
		if errors.Is(err, ErrCancelled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}

	if mode == ModeQR {
		w.after(f, w.cfg.QRDetectDelay, w.codeDetected)
	}
	return nil
}

// codeDetected stands in for a recognised station QR code: the rear camera
// is released and the front camera opened for the selfie.
func (w *Wizard) codeDetected(f *flow) {
	w.mu.Lock()
	if w.flow != f || w.step != StepScanning {
		w.mu.Unlock()
		return
	}
	w.release(f)
	w.step = StepCamera
	w.mu.Unlock()

	if err := w.open(f, FacingUser); err != nil && !errors.Is(err, ErrCancelled) {
		log.Printf("ERROR open front camera after scan: %v", err)
	}
}

// open acquires a stream for f. A stream that arrives after f has ended is
// closed straight away.
func (w *Wizard) open(f *flow, facing Facing) error {
	s, err := w.cam.Open(f.ctx, facing)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.flow != f {
		if err == nil && s != nil {
			closeStream(s)
		}
		return ErrCancelled
	}
	if err == nil && s == nil {
		err = errors.New("camera returned no stream")
	}
	if err != nil {
		w.fail(f, i18n.T(f.ctx, "camera_unavailable"))
		return fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
	}
	f.stream = s
	f.facing = facing
	return nil
}

// after runs fn once d has elapsed unless f ends first.
func (w *Wizard) after(f *flow, d time.Duration, fn func(*flow)) {
	w.timers.Add(1)
	go func() {
		defer w.timers.Done()
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-f.ctx.Done():
		case <-t.C:
			fn(f)
		}
	}()
}

// Capture grabs the current frame of the front camera, releases the camera
// and moves to confirmation. It returns the image as a data URL.
func (w *Wizard) Capture(ctx context.Context) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f := w.flow
	if f == nil || w.step != StepCamera || f.stream == nil {
		return "", ErrWrongStep
	}

	frame, err := f.stream.Frame()
	if err != nil {
		w.fail(f, i18n.T(ctx, "camera_unavailable"))
		return "", fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
	}
	url, err := EncodeDataURL(frame)
	if err != nil {
		w.fail(f, i18n.T(ctx, "camera_unavailable"))
		return "", fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
	}

	w.release(f)
	f.image = url
	w.step = StepConfirming
	return url, nil
}

// Finalize assembles the record for kind, waits the completion delay and
// hands the record to the sink. When the company does not require a selfie
// it may also be called straight from the camera step.
func (w *Wizard) Finalize(ctx context.Context, kind model.RecordType) (model.PointRecord, error) {
	if !kind.Valid() {
		return model.PointRecord{}, ErrInvalidType
	}

	w.mu.Lock()
	f := w.flow
	policies := w.cfg.policies()
	switch {
	case f == nil || f.finalizing:
		w.mu.Unlock()
		return model.PointRecord{}, ErrWrongStep
	case w.step == StepConfirming:
	case w.step == StepCamera && f.stream != nil && !policies.SelfieRequired:
		w.release(f)
		w.step = StepConfirming
	case w.step == StepCamera && f.stream != nil:
		w.mu.Unlock()
		return model.PointRecord{}, ErrSelfieRequired
	default:
		w.mu.Unlock()
		return model.PointRecord{}, ErrWrongStep
	}
	if policies.SelfieRequired && f.image == "" {
		w.mu.Unlock()
		return model.PointRecord{}, ErrSelfieRequired
	}
	record := w.assemble(f, kind)
	f.finalizing = true
	w.mu.Unlock()

	t := time.NewTimer(w.cfg.FinalizeDelay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-f.ctx.Done():
		return model.PointRecord{}, ErrCancelled
	case <-ctx.Done():
		w.abort(f)
		return model.PointRecord{}, ctx.Err()
	}

	w.mu.Lock()
	if w.flow != f {
		w.mu.Unlock()
		return model.PointRecord{}, ErrCancelled
	}
	// Once the record is handed over the flow can no longer be cancelled.
	f.delivering = true
	w.mu.Unlock()

	err := w.sink.Append(ctx, record)

	w.mu.Lock()
	defer w.mu.Unlock()
	f.delivering = false
	if err != nil {
		if w.flow == f {
			w.fail(f, i18n.T(ctx, "record_failed", map[string]any{"Reason": err.Error()}))
		}
		return model.PointRecord{}, fmt.Errorf("%w: %w", ErrNotDelivered, err)
	}
	if w.flow == f {
		w.end(f)
		w.successAt = w.cfg.Now()
	}
	return record, nil
}

func (w *Wizard) assemble(f *flow, kind model.RecordType) model.PointRecord {
	var at model.Location
	if f.location != nil {
		at = *f.location
	}

	verdict := geo.Verdict{Status: model.RecordStatusValid}
	if w.cfg.Company != nil {
		verdict = geo.Evaluate(geo.FenceFor(w.cfg.Company, w.cfg.Margin), f.location)
	} else if f.location == nil {
		verdict.Status = model.RecordStatusRejected
	}

	return model.PointRecord{
		ID:                 w.cfg.NewID(),
		UserID:             w.user.ID,
		UserName:           w.user.DisplayName,
		CompanyID:          w.user.CompanyID,
		Timestamp:          w.cfg.Now(),
		Type:               kind,
		Location:           at,
		SelfieURL:          f.image,
		IP:                 w.cfg.Address,
		DeviceInfo:         w.cfg.DeviceInfo,
		Status:             verdict.Status,
		DistanceFromOffice: verdict.Distance,
	}
}

// Cancel abandons the current flow from any step, releasing the camera and
// clearing the error. Cancelling while idle, or while the record is already
// with the sink, does nothing.
func (w *Wizard) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.flow == nil || w.flow.delivering {
		return
	}
	w.end(w.flow)
	w.lastErr = ""
}

// Close cancels any flow and waits for its pending completions to drain.
func (w *Wizard) Close() {
	w.Cancel()
	w.timers.Wait()
}

func (w *Wizard) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := Snapshot{
		Step:    w.step,
		Error:   w.lastErr,
		Success: w.step == StepIdle && !w.successAt.IsZero() && w.cfg.Now().Before(w.successAt.Add(w.cfg.SuccessTTL)),
	}
	if f := w.flow; f != nil {
		s.Mode = f.mode
		s.Loading = f.finalizing || (w.step != StepConfirming && f.stream == nil)
		s.Image = f.image
		if f.location != nil {
			loc := *f.location
			s.Location = &loc
		}
	}
	return s
}

func (w *Wizard) abort(f *flow) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.flow == f {
		w.end(f)
	}
}

// end closes the flow. Callers hold w.mu.
func (w *Wizard) end(f *flow) {
	w.release(f)
	f.cancel()
	w.flow = nil
	w.step = StepIdle
}

func (w *Wizard) fail(f *flow, msg string) {
	w.end(f)
	w.lastErr = msg
}

// release closes the flow's stream if one is open. Callers hold w.mu.
func (w *Wizard) release(f *flow) {
	if f.stream == nil {
		return
	}
	closeStream(f.stream)
	f.stream = nil
	f.facing = ""
}

func closeStream(s Stream) {
	if err := s.Close(); err != nil {
		log.Printf("ERROR release camera: %v", err)
	}
}
