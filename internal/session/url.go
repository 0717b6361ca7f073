package session

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// Error texts here are shown verbatim in the popup, hence the UI casing.
var (
	// ErrNotWebPage is returned for pages that have no resolvable host, such as
	// internal browser pages or an empty tab.
	ErrNotWebPage = errors.New("No website visited")

	// ErrInvalidURL is returned when the page URL cannot be parsed.
	ErrInvalidURL = errors.New("Invalid URL")
)

// Hostname extracts the ASCII hostname of a web page URL.
func Hostname(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrNotWebPage
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	case "":
		return "", fmt.Errorf("%w: missing scheme", ErrInvalidURL)
	default:
		return "", ErrNotWebPage
	}

	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	return strings.ToLower(ascii), nil
}
