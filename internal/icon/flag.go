package icon

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"strings"

	"github.com/TomasB/hostgeo/internal/httpx"
)

// DefaultFlagBase serves 40px wide country flags as <code>.png.
const DefaultFlagBase = "https://flagcdn.com/w40"

// Icon is raw RGBA pixel data, 4 bytes per pixel, rows top to bottom.
type Icon struct {
	Width  int
	Height int
	Pix    []byte
}

// Image returns the icon as an image.
func (i Icon) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    i.Pix,
		Stride: 4 * i.Width,
		Rect:   image.Rect(0, 0, i.Width, i.Height),
	}
}

// EncodePNG encodes the icon as PNG.
func (i Icon) EncodePNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, i.Image()); err != nil {
		return nil, fmt.Errorf("failed to encode icon: %w", err)
	}
	return buf.Bytes(), nil
}

// FlagFetcher downloads country flags and converts them to icons.
type FlagFetcher struct {
	base   string
	client httpx.Doer
}

// NewFlagFetcher creates a fetcher for flags under base.
func NewFlagFetcher(base string, client httpx.Doer) *FlagFetcher {
	if base == "" {
		base = DefaultFlagBase
	}
	return &FlagFetcher{base: strings.TrimRight(base, "/"), client: client}
}

// Fetch downloads the flag of an ISO 3166 country code.
func (f *FlagFetcher) Fetch(ctx context.Context, countryCode string) (Icon, error) {
	code := strings.ToLower(strings.TrimSpace(countryCode))
	if len(code) != 2 {
		return Icon{}, fmt.Errorf("invalid country code %q", countryCode)
	}

	body, err := httpx.GetRaw(ctx, f.client, f.base+"/"+code+".png")
	if err != nil {
		return Icon{}, err
	}
	return Decode(body)
}

// Decode converts a PNG image to an Icon.
func Decode(data []byte) (Icon, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return Icon{}, fmt.Errorf("failed to decode flag: %w", err)
	}

	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return Icon{Width: b.Dx(), Height: b.Dy(), Pix: rgba.Pix}, nil
}
