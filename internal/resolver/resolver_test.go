package resolver

import (
	"context"
	"errors"
	"net"
	"testing"
)

func TestParseSource(t *testing.T) {
	tests := []struct {
		in      string
		want    Source
		wantErr bool
	}{
		{in: "local", want: Local},
		{in: "alidns", want: AliDNS},
		{in: "Google", want: Google},
		{in: " google ", want: Google},
		{in: "cloudflare", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSource(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownSource) {
					t.Errorf("expected ErrUnknownSource, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry(map[Source]Strategy{
		Google: StrategyFunc(func(_ context.Context, q Query) (net.IP, error) {
			if q.Hostname != "example.com" {
				t.Errorf("unexpected hostname %s", q.Hostname)
			}
			return net.ParseIP("93.184.216.34"), nil
		}),
	})

	ip, err := r.Resolve(context.Background(), Google, Query{Hostname: "example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ip.String() != "93.184.216.34" {
		t.Errorf("expected 93.184.216.34, got %s", ip)
	}

	if _, err := r.Resolve(context.Background(), AliDNS, Query{Hostname: "example.com"}); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("expected ErrUnknownSource, got %v", err)
	}
}
