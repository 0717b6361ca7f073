package session

import (
	"fmt"

	"github.com/TomasB/hostgeo/internal/geo"
	"github.com/TomasB/hostgeo/internal/resolver"
)

// Kind is the kind of UI state shown for a tab.
type Kind string

const (
	KindIdle          Kind = "idle"
	KindLoading       Kind = "loading"
	KindError         Kind = "error"
	KindContent       Kind = "content"
	KindNothingToShow Kind = "nothing_to_show"
)

// State is what the popup displays for a tab. Exactly one state is current per tab.
type State struct {
	Kind     Kind            `json:"kind"`
	Seq      uint64          `json:"seq"`
	Hostname string          `json:"hostname,omitempty"`
	Source   resolver.Source `json:"source,omitempty"`
	IP       string          `json:"ip,omitempty"`
	Geo      *geo.Record     `json:"geo,omitempty"`
	Message  string          `json:"message,omitempty"`
	Display  *Display        `json:"display,omitempty"`
}

// Display holds the text fields of the content view.
type Display struct {
	IP        string  `json:"ip"`
	Country   string  `json:"country"`
	City      string  `json:"city"`
	Timezone  string  `json:"timezone"`
	Coords    string  `json:"coords"`
	NoGeoData bool    `json:"no_geo_data"`
	ShowMap   bool    `json:"show_map"`
	Lat       float64 `json:"lat,omitempty"`
	Lon       float64 `json:"lon,omitempty"`
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// NewDisplay formats the content view for ip and an optional record.
func NewDisplay(ip string, rec *geo.Record) *Display {
	if rec == nil {
		return &Display{
			IP:        orDash(ip),
			Country:   "N/A",
			City:      "-",
			Timezone:  "-",
			Coords:    "-",
			NoGeoData: true,
		}
	}
	return &Display{
		IP:       orDash(ip),
		Country:  fmt.Sprintf("%s (%s)", rec.Country, rec.CountryCode),
		City:     orDash(rec.City),
		Timezone: orDash(rec.Timezone),
		Coords:   fmt.Sprintf("%v, %v", rec.Lat, rec.Lon),
		ShowMap:  rec.Lat != 0 && rec.Lon != 0,
		Lat:      rec.Lat,
		Lon:      rec.Lon,
	}
}
