package kiosk

import (
	"bytes"
	"context"
	"errors"
	"image"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geoponto/internal/api"
	"geoponto/internal/i18n"
	"geoponto/internal/model"
	"geoponto/internal/outbox"
	"geoponto/internal/wizard"
)

func TestMain(m *testing.M) {
	i18n.Init("pt-BR")
	os.Exit(m.Run())
}

type fakeServer struct {
	mu       sync.Mutex
	received []model.PointRecord
	err      error
	company  *model.Company
}

func (s *fakeServer) Company(ctx context.Context) (*model.Company, error) {
	return s.company, nil
}

func (s *fakeServer) AppendRecord(ctx context.Context, record model.PointRecord) (*model.PointRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.received = append(s.received, record)
	return &record, nil
}

func (s *fakeServer) History(ctx context.Context, limit int) ([]*model.PointRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.PointRecord
	for i := len(s.received) - 1; i >= 0 && len(out) < limit; i-- {
		r := s.received[i]
		out = append(out, &r)
	}
	return out, nil
}

func (s *fakeServer) Today(ctx context.Context) ([]*model.PointRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.PointRecord
	for _, r := range s.received {
		out = append(out, &r)
	}
	return out, nil
}

func (s *fakeServer) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

type still struct{}

func (still) Frame() (image.Image, error) { return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil }
func (still) Close() error                { return nil }

type camera struct{}

func (camera) Open(ctx context.Context, facing wizard.Facing) (wizard.Stream, error) {
	return still{}, nil
}

type station struct{}

type denied struct{}

func (denied) Locate(ctx context.Context, highAccuracy bool) (model.Location, error) {
	return model.Location{}, errors.New("permission denied")
}

func (station) Locate(ctx context.Context, highAccuracy bool) (model.Location, error) {
	return model.Location{Lat: -23.5614, Lng: -46.6559}, nil
}

func company() *model.Company {
	return &model.Company{
		ID:            "company_123",
		Name:          "Minha Empresa S.A.",
		Latitude:      -23.5614,
		Longitude:     -46.6559,
		AllowedRadius: 200,
		Policies:      model.DefaultPolicies(),
	}
}

func newKiosk(t *testing.T, c *model.Company) (*Kiosk, *fakeServer, *outbox.Outbox, *bytes.Buffer) {
	t.Helper()
	server := &fakeServer{company: company()}
	box, err := outbox.Open("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { box.Close() })

	var out bytes.Buffer
	user := model.UserProfile{ID: "u1", DisplayName: "João Silva", CompanyID: "company_123"}
	cfg := wizard.Config{FinalizeDelay: time.Millisecond, QRDetectDelay: time.Millisecond, Company: c, Margin: 50}
	k := New(user, station{}, camera{}, server, box, cfg, &out)
	t.Cleanup(k.Wizard().Close)
	return k, server, box, &out
}

func register(t *testing.T, k *Kiosk, kind string) {
	t.Helper()
	ctx := context.Background()
	require.True(t, k.Exec(ctx, "start"))
	require.True(t, k.Exec(ctx, "capture"))
	require.True(t, k.Exec(ctx, kind))
}

func TestRegisterDeliversRecord(t *testing.T) {
	k, server, _, out := newKiosk(t, company())

	register(t, k, "entry")

	require.Len(t, server.received, 1)
	rec := server.received[0]
	assert.Equal(t, model.RecordTypeEntry, rec.Type)
	assert.Equal(t, "u1", rec.UserID)
	assert.True(t, strings.HasPrefix(rec.SelfieURL, "data:image/jpeg;base64,"))
	assert.Equal(t, model.RecordStatusValid, rec.Status)
	assert.Contains(t, out.String(), "Ponto Registrado!")
	assert.Contains(t, out.String(), "Entrada")
	assert.Equal(t, wizard.StepIdle, k.Wizard().Snapshot().Step)
}

func TestOfflineRecordIsQueued(t *testing.T) {
	k, server, box, out := newKiosk(t, company())
	server.setErr(errors.New("dial tcp: connection refused"))

	register(t, k, "exit")

	n, err := box.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, out.String(), "Sem conexão")
	assert.Contains(t, out.String(), "Ponto Registrado!")

	server.setErr(nil)
	k.Sync(context.Background())
	require.Len(t, server.received, 1)
	assert.Equal(t, model.RecordTypeExit, server.received[0].Type)
	n, err = box.Len(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOfflineBlocked(t *testing.T) {
	c := company()
	c.Policies.BlockOffline = true
	k, server, box, out := newKiosk(t, c)
	server.setErr(errors.New("dial tcp: connection refused"))

	register(t, k, "entry")

	n, err := box.Len(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Contains(t, out.String(), "Não foi possível registrar o ponto")
	assert.Equal(t, wizard.StepIdle, k.Wizard().Snapshot().Step)
}

func TestRejectedRecordIsNotQueued(t *testing.T) {
	k, server, box, out := newKiosk(t, company())
	server.setErr(&api.Error{Status: 409, Message: "Este ponto já foi registrado"})

	register(t, k, "entry")

	n, err := box.Len(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Contains(t, out.String(), "Este ponto já foi registrado")
}

func TestSyncDropsRejectedQueuedRecords(t *testing.T) {
	k, server, box, _ := newKiosk(t, company())
	require.NoError(t, box.Enqueue(context.Background(), model.PointRecord{ID: "r1", Type: model.RecordTypeEntry}))
	server.setErr(&api.Error{Status: 400, Message: "Requisição inválida"})

	k.Sync(context.Background())

	n, err := box.Len(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSyncRefreshesCompany(t *testing.T) {
	k, server, _, out := newKiosk(t, company())
	server.company.Policies.QRAllowed = false

	k.Sync(context.Background())
	k.Exec(context.Background(), "qr")

	assert.Contains(t, out.String(), "QR Code")
	assert.Equal(t, wizard.StepIdle, k.Wizard().Snapshot().Step)
}

func TestSelfieRequiredMessage(t *testing.T) {
	k, _, _, out := newKiosk(t, company())

	k.Exec(context.Background(), "start")
	k.Exec(context.Background(), "entry")

	assert.Contains(t, out.String(), "A selfie é obrigatória")
	assert.Equal(t, wizard.StepCamera, k.Wizard().Snapshot().Step)
}

func TestRun(t *testing.T) {
	k, server, _, out := newKiosk(t, company())

	in := strings.NewReader("status\nstart\ncancel\nlunch\nstart\ncapture\npause_start\nhistory\nquit\nstatus\n")
	require.NoError(t, k.Run(context.Background(), in))

	text := out.String()
	assert.Contains(t, text, "step=idle")
	assert.Contains(t, text, "step=camera mode=plain")
	assert.Contains(t, text, `unknown command "lunch"`)
	assert.Contains(t, text, "Início da pausa")
	assert.Len(t, server.received, 1)
}

func TestRunStopsAtEOF(t *testing.T) {
	k, _, _, _ := newKiosk(t, company())
	assert.NoError(t, k.Run(context.Background(), strings.NewReader("status\n")))
}

func TestServerErrorQueuesRecord(t *testing.T) {
	k, server, box, out := newKiosk(t, company())
	server.setErr(&api.Error{Status: 500, Message: "Erro interno. Tente novamente."})

	register(t, k, "entry")

	n, err := box.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, out.String(), "Sem conexão")
	assert.Empty(t, server.received)
}

func TestSyncKeepsRecordsOnServerError(t *testing.T) {
	k, server, box, _ := newKiosk(t, company())
	require.NoError(t, box.Enqueue(context.Background(), model.PointRecord{ID: "r1", Type: model.RecordTypeEntry}))
	server.setErr(&api.Error{Status: 503, Message: "Service Unavailable"})

	k.Sync(context.Background())

	n, err := box.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	server.setErr(nil)
	k.Sync(context.Background())
	n, err = box.Len(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	require.Len(t, server.received, 1)
	assert.Equal(t, "r1", server.received[0].ID)
}

func TestToday(t *testing.T) {
	k, _, _, out := newKiosk(t, company())

	k.Exec(context.Background(), "today")
	assert.Contains(t, out.String(), "Nenhum ponto registrado hoje")

	register(t, k, "entry")
	register(t, k, "pause_start")
	out.Reset()
	k.Exec(context.Background(), "today")

	text := out.String()
	assert.Contains(t, text, "Entrada")
	assert.Contains(t, text, "Início da pausa")
	assert.NotContains(t, text, "Nenhum ponto")
}

func TestReportIgnoresEarlierFailure(t *testing.T) {
	server := &fakeServer{company: company()}
	box, err := outbox.Open("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { box.Close() })
	var out bytes.Buffer
	user := model.UserProfile{ID: "u1", CompanyID: "company_123"}
	cfg := wizard.Config{FinalizeDelay: time.Millisecond, Company: company()}
	k := New(user, denied{}, camera{}, server, box, cfg, &out)
	t.Cleanup(k.Wizard().Close)

	k.Exec(context.Background(), "start")
	assert.Contains(t, out.String(), "Acesso ao GPS negado")

	out.Reset()
	k.Exec(context.Background(), "capture")
	assert.NotContains(t, out.String(), "GPS")
	assert.Contains(t, out.String(), wizard.ErrWrongStep.Error())
}
