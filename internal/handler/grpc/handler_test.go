package grpc

import (
	"context"
	"net"
	"testing"

	"github.com/TomasB/hostgeo/internal/geo"
	"github.com/TomasB/hostgeo/internal/icon"
	"github.com/TomasB/hostgeo/internal/metrics"
	"github.com/TomasB/hostgeo/internal/resolver"
	"github.com/TomasB/hostgeo/internal/session"
	"github.com/TomasB/hostgeo/internal/tab"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type mockLookup struct {
	rec *geo.Record
	err error
}

func (m *mockLookup) Lookup(_ context.Context, _ net.IP) (*geo.Record, error) {
	return m.rec, m.err
}

type fixture struct {
	conn  *grpc.ClientConn
	tabs  *tab.Store
	board *session.Board
}

func setup(t *testing.T) *fixture {
	t.Helper()

	store, err := tab.NewStore(16)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	registry := resolver.NewRegistry(map[resolver.Source]resolver.Strategy{
		resolver.Local: resolver.NewLocalStrategy(store),
	})
	board := session.NewBoard()
	orch := session.New(registry, &mockLookup{rec: &geo.Record{Country: "United States", CountryCode: "US"}}, board)

	h := NewHandler(store, orch, board, icon.NewStore())
	h.spawn = func(f func()) { f() }

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterTabGeoServer(srv, h)
	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return &fixture{conn: conn, tabs: store, board: board}
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("failed to build struct: %v", err)
	}
	return s
}

func TestCaptureOpenAndGetState(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	if _, err := Invoke(ctx, f.conn, "CaptureResponse", mustStruct(t, map[string]any{"tab_id": 1, "ip": "93.184.216.34"})); err != nil {
		t.Fatalf("capture failed: %v", err)
	}

	resp, err := Invoke(ctx, f.conn, "Open", mustStruct(t, map[string]any{"tab_id": 1, "url": "https://example.com"}))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if resp.GetFields()["seq"].GetNumberValue() == 0 {
		t.Error("expected a sequence number")
	}

	st, err := Invoke(ctx, f.conn, "GetState", mustStruct(t, map[string]any{"tab_id": 1}))
	if err != nil {
		t.Fatalf("get state failed: %v", err)
	}
	fields := st.GetFields()
	if kind := fields["kind"].GetStringValue(); kind != string(session.KindContent) {
		t.Errorf("expected content, got %s", kind)
	}
	if ip := fields["ip"].GetStringValue(); ip != "93.184.216.34" {
		t.Errorf("expected 93.184.216.34, got %s", ip)
	}
	if cc := fields["geo"].GetStructValue().GetFields()["country_code"].GetStringValue(); cc != "US" {
		t.Errorf("expected country code US, got %s", cc)
	}
}

func TestOpen_NothingToShow(t *testing.T) {
	f := setup(t)

	st, err := Invoke(context.Background(), f.conn, "Open", mustStruct(t, map[string]any{"tab_id": 2, "url": "about:blank"}))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if kind := st.GetFields()["kind"].GetStringValue(); kind != string(session.KindNothingToShow) {
		t.Errorf("expected nothing-to-show, got %s", kind)
	}
}

func TestErrors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		method string
		in     map[string]any
		want   codes.Code
	}{
		{name: "missing tab", method: "GetState", in: map[string]any{}, want: codes.InvalidArgument},
		{name: "fractional tab", method: "GetState", in: map[string]any{"tab_id": 1.5}, want: codes.InvalidArgument},
		{name: "unknown state", method: "GetState", in: map[string]any{"tab_id": 42}, want: codes.NotFound},
		{name: "ipv6 capture", method: "CaptureResponse", in: map[string]any{"tab_id": 1, "ip": "2001:db8::1"}, want: codes.InvalidArgument},
		{name: "switch before open", method: "SwitchSource", in: map[string]any{"tab_id": 3, "source": "google"}, want: codes.FailedPrecondition},
		{name: "unknown source", method: "SwitchSource", in: map[string]any{"tab_id": 3, "source": "bing"}, want: codes.InvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Invoke(ctx, f.conn, tt.method, mustStruct(t, tt.in))
			if status.Code(err) != tt.want {
				t.Errorf("expected %s, got %v", tt.want, err)
			}
		})
	}
}

func TestCloseTab(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	Invoke(ctx, f.conn, "CaptureResponse", mustStruct(t, map[string]any{"tab_id": 5, "ip": "1.2.3.4"}))
	Invoke(ctx, f.conn, "Open", mustStruct(t, map[string]any{"tab_id": 5, "url": "https://example.com"}))

	if _, err := Invoke(ctx, f.conn, "CloseTab", mustStruct(t, map[string]any{"tab_id": 5})); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if _, ok := f.tabs.Get(5); ok {
		t.Error("expected captured IP to be removed")
	}
	if _, ok := f.board.Get(5); ok {
		t.Error("expected state to be removed")
	}
}

func TestTrackedTabsGauge(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for _, id := range []int{6, 7} {
		if _, err := Invoke(ctx, f.conn, "CaptureResponse", mustStruct(t, map[string]any{"tab_id": id, "ip": "1.2.3.4"})); err != nil {
			t.Fatalf("capture failed: %v", err)
		}
	}
	if got := testutil.ToFloat64(metrics.TrackedTabs); got != 2 {
		t.Errorf("expected 2 tracked tabs, got %v", got)
	}

	if _, err := Invoke(ctx, f.conn, "CloseTab", mustStruct(t, map[string]any{"tab_id": 6})); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if got := testutil.ToFloat64(metrics.TrackedTabs); got != 1 {
		t.Errorf("expected 1 tracked tab, got %v", got)
	}
}

func TestHealthService(t *testing.T) {
	f := setup(t)

	resp, err := healthpb.NewHealthClient(f.conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("expected SERVING, got %s", resp.Status)
	}
}
