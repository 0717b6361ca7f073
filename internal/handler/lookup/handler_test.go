package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/TomasB/hostgeo/internal/geo"
	"github.com/TomasB/hostgeo/internal/resolver"
	"github.com/gin-gonic/gin"
)

// mockLookup implements geo.Lookup for testing.
type mockLookup struct {
	rec *geo.Record
	err error
}

func (m *mockLookup) Lookup(_ context.Context, _ net.IP) (*geo.Record, error) {
	return m.rec, m.err
}

// mockResolvers implements session.SourceResolver for testing.
type mockResolvers struct {
	ip  string
	err error
}

func (m *mockResolvers) Resolve(_ context.Context, _ resolver.Source, _ resolver.Query) (net.IP, error) {
	if m.err != nil {
		return nil, m.err
	}
	return net.ParseIP(m.ip), nil
}

func setupRouter(resolvers *mockResolvers, lookup *mockLookup) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(resolvers, lookup)
	r.POST("/api/v1/lookup", h.Lookup)
	return r
}

func post(router *gin.Engine, body any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", "/api/v1/lookup", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestLookup_Success(t *testing.T) {
	router := setupRouter(
		&mockResolvers{ip: "93.184.216.34"},
		&mockLookup{rec: &geo.Record{Country: "United States", CountryCode: "US"}},
	)

	w := post(router, LookupRequest{Hostname: "example.com", Source: "google"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp LookupResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.IP != "93.184.216.34" {
		t.Errorf("expected IP 93.184.216.34, got %s", resp.IP)
	}
	if resp.Geo == nil || resp.Geo.CountryCode != "US" {
		t.Errorf("expected US record, got %+v", resp.Geo)
	}
	if resp.Error != "" {
		t.Errorf("expected empty error, got %s", resp.Error)
	}
}

func TestLookup_NoGeoData(t *testing.T) {
	router := setupRouter(&mockResolvers{ip: "10.0.0.1"}, &mockLookup{})

	w := post(router, LookupRequest{Hostname: "intranet", Source: "local", TabID: 1})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp LookupResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Geo != nil {
		t.Errorf("expected no geo data, got %+v", resp.Geo)
	}
}

func TestLookup_Errors(t *testing.T) {
	tests := []struct {
		name      string
		body      any
		resolvers *mockResolvers
		lookup    *mockLookup
		want      int
	}{
		{
			name:      "missing hostname",
			body:      map[string]string{"source": "google"},
			resolvers: &mockResolvers{ip: "1.1.1.1"},
			lookup:    &mockLookup{},
			want:      http.StatusBadRequest,
		},
		{
			name:      "unknown source",
			body:      LookupRequest{Hostname: "example.com", Source: "bing"},
			resolvers: &mockResolvers{ip: "1.1.1.1"},
			lookup:    &mockLookup{},
			want:      http.StatusBadRequest,
		},
		{
			name:      "not captured",
			body:      LookupRequest{Hostname: "example.com", Source: "local"},
			resolvers: &mockResolvers{err: resolver.ErrNotCaptured},
			lookup:    &mockLookup{},
			want:      http.StatusNotFound,
		},
		{
			name:      "dns failure",
			body:      LookupRequest{Hostname: "example.com", Source: "alidns"},
			resolvers: &mockResolvers{err: &resolver.DNSStatusError{Provider: "AliDNS", Status: 2}},
			lookup:    &mockLookup{},
			want:      http.StatusBadGateway,
		},
		{
			name:      "geo failure",
			body:      LookupRequest{Hostname: "example.com", Source: "google"},
			resolvers: &mockResolvers{ip: "1.1.1.1"},
			lookup:    &mockLookup{err: &geo.APIError{Message: "bad ip"}},
			want:      http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(setupRouter(tt.resolvers, tt.lookup), tt.body)
			if w.Code != tt.want {
				t.Fatalf("expected status %d, got %d", tt.want, w.Code)
			}
			var resp LookupResponse
			json.Unmarshal(w.Body.Bytes(), &resp)
			if resp.Error == "" {
				t.Error("expected an error message")
			}
		})
	}
}
