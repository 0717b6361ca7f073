package tab

import (
	"net"
	"sync"
	"testing"
)

func newTestStore(t *testing.T, max int) *Store {
	t.Helper()
	s, err := NewStore(max)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s
}

func TestStore_RecordAndGet(t *testing.T) {
	s := newTestStore(t, 0)

	if _, ok := s.Get(1); ok {
		t.Fatal("expected no entry before capture")
	}

	s.Record(1, net.ParseIP("1.2.3.4"))
	ip, ok := s.Get(1)
	if !ok {
		t.Fatal("expected entry after capture")
	}
	if ip.String() != "1.2.3.4" {
		t.Errorf("expected 1.2.3.4, got %s", ip)
	}
}

func TestStore_RecordOverwrites(t *testing.T) {
	s := newTestStore(t, 0)

	s.Record(7, net.ParseIP("1.1.1.1"))
	s.Record(7, net.ParseIP("2.2.2.2"))

	ip, _ := s.Get(7)
	if ip.String() != "2.2.2.2" {
		t.Errorf("expected latest capture 2.2.2.2, got %s", ip)
	}
	if s.Len() != 1 {
		t.Errorf("expected a single entry per tab, got %d", s.Len())
	}
}

func TestStore_RemoveIsIdempotent(t *testing.T) {
	s := newTestStore(t, 0)

	s.Record(3, net.ParseIP("10.0.0.1"))
	s.Remove(3)
	s.Remove(3)

	if _, ok := s.Get(3); ok {
		t.Error("expected entry to be gone after remove")
	}
	if s.Len() != 0 {
		t.Errorf("expected empty store, got %d entries", s.Len())
	}
}

func TestStore_Bounded(t *testing.T) {
	s := newTestStore(t, 2)

	s.Record(1, net.ParseIP("1.1.1.1"))
	s.Record(2, net.ParseIP("2.2.2.2"))
	s.Record(3, net.ParseIP("3.3.3.3"))

	if s.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", s.Len())
	}
	if _, ok := s.Get(1); ok {
		t.Error("expected oldest tab to be evicted")
	}
	if _, ok := s.Get(3); !ok {
		t.Error("expected newest tab to be kept")
	}
}

func TestStore_ConcurrentTabs(t *testing.T) {
	s := newTestStore(t, 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id ID) {
			defer wg.Done()
			s.Record(id, net.IPv4(10, 0, 0, byte(id)))
			s.Get(id)
		}(ID(i))
	}
	wg.Wait()

	if s.Len() != 50 {
		t.Errorf("expected 50 entries, got %d", s.Len())
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    ID
		wantErr bool
	}{
		{in: "42", want: 42},
		{in: "0", want: 0},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseID(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}
