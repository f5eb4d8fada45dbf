// Package draw rasterizes challenge text into an obfuscated PNG using
// base64Captcha.
package draw

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mojocn/base64Captcha"
)

var (
	ErrBadColor    = errors.New("draw: color must be #RRGGBB or #RRGGBBAA")
	ErrBadStyle    = errors.New("draw: invalid style")
	ErrUnknownLine = errors.New("draw: unknown line option")
)

// Line options, mirroring base64Captcha.
const (
	LineHollow = base64Captcha.OptionShowHollowLine
	LineSlime  = base64Captcha.OptionShowSlimeLine
	LineSine   = base64Captcha.OptionShowSineLine
)

var lineNames = map[string]int{
	"hollow": LineHollow,
	"slime":  LineSlime,
	"sine":   LineSine,
}

// ParseLineOptions turns line option names ("hollow", "slime", "sine") into
// the bit mask used by Style. "none" or no names yield 0.
func ParseLineOptions(names ...string) (int, error) {
	var result int

	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		switch name {
		case "", "none":
			continue
		}

		opt, ok := lineNames[name]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnknownLine, name)
		}
		result |= opt
	}

	return result, nil
}

// Style is how a challenge image looks. It travels through the image URL,
// so every field is validated before drawing.
type Style struct {
	Width       int      `json:"width,omitempty"`
	Height      int      `json:"height"`
	NoiseCount  int      `json:"noiseCount"`
	LineOptions int      `json:"lineOptions"`
	BackColor   string   `json:"backColor,omitempty"`
	Fonts       []string `json:"fonts,omitempty"`
}

// Limits keep client supplied styles from producing huge images.
const (
	MinHeight   = 20
	MaxHeight   = 200
	MaxWidth    = 1200
	MaxNoise    = 200
	MaxLineMask = LineHollow | LineSlime | LineSine
)

// DefaultStyle is used when configuration does not override it.
func DefaultStyle() Style {
	return Style{
		Height:      60,
		NoiseCount:  8,
		LineOptions: LineSlime,
		BackColor:   "#f5f5f5",
	}
}

func (s Style) Valid() error {
	var errs []error

	if s.Height < MinHeight || s.Height > MaxHeight {
		errs = append(errs, fmt.Errorf("height must be in [%d,%d], got %d", MinHeight, MaxHeight, s.Height))
	}

	if s.Width < 0 || s.Width > MaxWidth {
		errs = append(errs, fmt.Errorf("width must be in [0,%d], got %d", MaxWidth, s.Width))
	}

	if s.NoiseCount < 0 || s.NoiseCount > MaxNoise {
		errs = append(errs, fmt.Errorf("noise count must be in [0,%d], got %d", MaxNoise, s.NoiseCount))
	}

	if s.LineOptions < 0 || s.LineOptions&^MaxLineMask != 0 {
		errs = append(errs, fmt.Errorf("unknown line options %d", s.LineOptions))
	}

	if s.BackColor != "" {
		if _, err := ParseColor(s.BackColor); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) != 0 {
		return fmt.Errorf("%w: %w", ErrBadStyle, errors.Join(errs...))
	}

	return nil
}

// width grows the image with the text so long words stay legible.
func (s Style) width(text string) int {
	auto := utf8.RuneCountInString(text) * s.Height / 2
	w := max(s.Width, auto, s.Height*4)
	return min(w, MaxWidth)
}

// ParseColor parses #RRGGBB or #RRGGBBAA.
func ParseColor(s string) (*color.RGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return nil, fmt.Errorf("%w: %q", ErrBadColor, s)
	}
	if len(hex) == 6 {
		hex += "ff"
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBadColor, s)
	}

	return &color.RGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}

// Drawer renders text to PNG.
type Drawer struct {
	fonts *FontCache
}

func NewDrawer(fonts *FontCache) *Drawer {
	if fonts == nil {
		fonts = NewFontCache(DefaultFontCacheSize)
	}
	return &Drawer{fonts: fonts}
}

// CheckFonts returns ErrFontNotFound if any name is neither registered nor
// embedded.
func (d *Drawer) CheckFonts(names ...string) error {
	for _, name := range names {
		if d.fonts.LoadFontByName(name) == nil {
			return fmt.Errorf("%w: %s", ErrFontNotFound, name)
		}
	}

	return nil
}

// Draw writes a PNG of text in the given style to w.
func (d *Drawer) Draw(w io.Writer, text string, style Style) error {
	if err := style.Valid(); err != nil {
		return err
	}

	if err := d.CheckFonts(style.Fonts...); err != nil {
		return err
	}

	var bg *color.RGBA
	if style.BackColor != "" {
		bg, _ = ParseColor(style.BackColor)
	}

	driver := base64Captcha.NewDriverString(
		style.Height,
		style.width(text),
		style.NoiseCount,
		style.LineOptions,
		utf8.RuneCountInString(text),
		"",
		bg,
		d.fonts,
		style.Fonts,
	)

	item, err := driver.DrawCaptcha(text)
	if err != nil {
		return fmt.Errorf("draw: can't draw captcha: %w", err)
	}

	if _, err := item.WriteTo(w); err != nil {
		return fmt.Errorf("draw: can't encode image: %w", err)
	}

	return nil
}
