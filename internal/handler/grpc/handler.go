package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net"

	"github.com/TomasB/hostgeo/internal/icon"
	"github.com/TomasB/hostgeo/internal/metrics"
	"github.com/TomasB/hostgeo/internal/resolver"
	"github.com/TomasB/hostgeo/internal/session"
	"github.com/TomasB/hostgeo/internal/tab"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Handler implements the gRPC TabGeo service.
type Handler struct {
	tabs  *tab.Store
	orch  *session.Orchestrator
	board *session.Board
	icons *icon.Store

	spawn func(func())
}

// NewHandler creates a new gRPC handler.
func NewHandler(tabs *tab.Store, orch *session.Orchestrator, board *session.Board, icons *icon.Store) *Handler {
	return &Handler{
		tabs:  tabs,
		orch:  orch,
		board: board,
		icons: icons,
		spawn: func(f func()) { go f() },
	}
}

func tabID(req *structpb.Struct) (tab.ID, error) {
	if req == nil {
		return 0, status.Error(codes.InvalidArgument, "request is required")
	}
	v, ok := req.GetFields()["tab_id"]
	if !ok {
		return 0, status.Error(codes.InvalidArgument, "tab_id is required")
	}
	n := v.GetNumberValue()
	if n != math.Trunc(n) || n < math.MinInt32 || n > math.MaxInt32 {
		return 0, status.Error(codes.InvalidArgument, "invalid tab_id")
	}
	return tab.ID(n), nil
}

func stringField(req *structpb.Struct, name string) string {
	return req.GetFields()[name].GetStringValue()
}

func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	return out, nil
}

func (h *Handler) accepted(ctx context.Context, r session.Request, seq uint64) (*structpb.Struct, error) {
	ctx = context.WithoutCancel(ctx)
	h.spawn(func() { h.orch.Run(ctx, r, seq) })
	return structpb.NewStruct(map[string]any{"seq": float64(seq)})
}

// Open issues a resolution for the page a popup was opened on.
func (h *Handler) Open(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := tabID(req)
	if err != nil {
		return nil, err
	}

	src := resolver.Local
	if s := stringField(req, "source"); s != "" {
		if src, err = resolver.ParseSource(s); err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
	}

	r, seq, err := h.orch.Open(id, stringField(req, "url"), src)
	if err != nil {
		st, _ := h.board.Get(id)
		return toStruct(st)
	}
	return h.accepted(ctx, r, seq)
}

// SwitchSource re-resolves the opened page of a tab with another source.
func (h *Handler) SwitchSource(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := tabID(req)
	if err != nil {
		return nil, err
	}

	src, err := resolver.ParseSource(stringField(req, "source"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	r, seq, err := h.orch.Switch(id, src)
	if errors.Is(err, session.ErrNotOpened) {
		return nil, status.Error(codes.FailedPrecondition, err.Error())
	}
	return h.accepted(ctx, r, seq)
}

// GetState returns the current UI state of a tab.
func (h *Handler) GetState(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := tabID(req)
	if err != nil {
		return nil, err
	}

	st, ok := h.board.Get(id)
	if !ok {
		return nil, status.Error(codes.NotFound, "no state for tab")
	}
	return toStruct(st)
}

// CaptureResponse records the source IP of a top-level response.
func (h *Handler) CaptureResponse(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := tabID(req)
	if err != nil {
		return nil, err
	}

	ip := net.ParseIP(stringField(req, "ip")).To4()
	if ip == nil {
		return nil, status.Error(codes.InvalidArgument, "invalid IPv4 address")
	}
	h.tabs.Record(id, ip)
	metrics.TrackedTabs.Set(float64(h.tabs.Len()))
	return &structpb.Struct{}, nil
}

// CloseTab releases everything held for a tab.
func (h *Handler) CloseTab(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := tabID(req)
	if err != nil {
		return nil, err
	}

	h.tabs.Remove(id)
	h.orch.Forget(id)
	h.icons.Remove(id)
	metrics.TrackedTabs.Set(float64(h.tabs.Len()))
	return &structpb.Struct{}, nil
}
