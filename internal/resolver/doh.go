package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/TomasB/hostgeo/internal/httpx"
	"github.com/miekg/dns"
)

const (
	// DefaultGoogleURL is the Google JSON DNS-over-HTTPS endpoint.
	DefaultGoogleURL = "https://dns.google/resolve"
	// DefaultAliDNSURL is the AliDNS JSON DNS-over-HTTPS endpoint.
	DefaultAliDNSURL = "https://dns.alidns.com/resolve"
)

var (
	// ErrNoARecord means the provider answered successfully without any A record.
	ErrNoARecord = errors.New("no A records")

	// ErrInvalidHostname is returned before querying for a name that cannot be resolved.
	ErrInvalidHostname = errors.New("invalid hostname")
)

// DNSStatusError is returned when the provider reports a non-zero DNS status.
type DNSStatusError struct {
	Provider string
	Status   int
}

func (e *DNSStatusError) Error() string {
	return fmt.Sprintf("%s resolution failed (%s)", e.Provider, statusText(e.Status))
}

func statusText(status int) string {
	if status < 0 {
		return "missing status"
	}
	if name, ok := dns.RcodeToString[status]; ok {
		return name
	}
	return fmt.Sprintf("status %d", status)
}

type dohAnswer struct {
	Name string `json:"name"`
	Type int    `json:"type"`
	TTL  int    `json:"TTL"`
	Data string `json:"data"`
}

type dohResponse struct {
	Status *int        `json:"Status"`
	Answer []dohAnswer `json:"Answer"`
}

// DoHStrategy resolves A records through a JSON DNS-over-HTTPS provider
// (the dns.google /resolve schema).
type DoHStrategy struct {
	provider string
	endpoint string
	client   httpx.Doer
}

// NewDoHStrategy creates a strategy querying endpoint. provider is the
// human-readable name used in error messages.
func NewDoHStrategy(provider, endpoint string, client httpx.Doer) *DoHStrategy {
	return &DoHStrategy{provider: provider, endpoint: endpoint, client: client}
}

// NewGoogleStrategy creates the Google DNS strategy.
func NewGoogleStrategy(endpoint string, client httpx.Doer) *DoHStrategy {
	if endpoint == "" {
		endpoint = DefaultGoogleURL
	}
	return NewDoHStrategy("Google DNS", endpoint, client)
}

// NewAliDNSStrategy creates the AliDNS strategy.
func NewAliDNSStrategy(endpoint string, client httpx.Doer) *DoHStrategy {
	if endpoint == "" {
		endpoint = DefaultAliDNSURL
	}
	return NewDoHStrategy("AliDNS", endpoint, client)
}

// Provider returns the provider name.
func (s *DoHStrategy) Provider() string {
	return s.provider
}

// Resolve queries the A records of q.Hostname and returns the first one in
// the order the provider listed them.
func (s *DoHStrategy) Resolve(ctx context.Context, q Query) (net.IP, error) {
	host := strings.TrimSuffix(q.Hostname, ".")
	if _, ok := dns.IsDomainName(host); !ok || host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHostname, q.Hostname)
	}

	params := url.Values{}
	params.Set("name", host)
	params.Set("type", dns.TypeToString[dns.TypeA])

	resp, err := httpx.GetJSON[dohResponse](ctx, s.client, s.endpoint+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.provider, err)
	}

	if resp.Status == nil {
		return nil, &DNSStatusError{Provider: s.provider, Status: -1}
	}
	if *resp.Status != dns.RcodeSuccess {
		return nil, &DNSStatusError{Provider: s.provider, Status: *resp.Status}
	}

	for _, a := range resp.Answer {
		if a.Type != int(dns.TypeA) {
			continue
		}
		ip := net.ParseIP(a.Data).To4()
		if ip == nil {
			return nil, fmt.Errorf("%s returned invalid A record %q", s.provider, a.Data)
		}
		return ip, nil
	}
	return nil, fmt.Errorf("%s returned %w", s.provider, ErrNoARecord)
}
