package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/TecharoHQ/numcaptcha/lib/draw"
)

var (
	ErrInvalidImage     = errors.New("config.Image: invalid image style")
	ErrFontMustHaveName = errors.New("config.Font: must set name")
	ErrFontMustHavePath = errors.New("config.Font: must set path")
	ErrFontFileMissing  = errors.New("config.Font: font file does not exist")
)

type imageFileConfig struct {
	Height     int      `json:"height,omitempty"`
	Width      int      `json:"width,omitempty"`
	NoiseCount *int     `json:"noise_count,omitempty"`
	Lines      []string `json:"lines,omitempty"`
	BackColor  string   `json:"back_color,omitempty"`
	Fonts      []string `json:"fonts,omitempty"`
}

func (i *imageFileConfig) style() (draw.Style, error) {
	result := draw.DefaultStyle()

	if i.Height != 0 {
		result.Height = i.Height
	}

	result.Width = i.Width

	if i.NoiseCount != nil {
		result.NoiseCount = *i.NoiseCount
	}

	if i.Lines != nil {
		lines, err := draw.ParseLineOptions(i.Lines...)
		if err != nil {
			return draw.Style{}, err
		}
		result.LineOptions = lines
	}

	if i.BackColor != "" {
		result.BackColor = i.BackColor
	}

	result.Fonts = i.Fonts

	return result, nil
}

func (i *imageFileConfig) Valid() error {
	style, err := i.style()
	if err == nil {
		err = style.Valid()
	}

	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	return nil
}

// Font is a TrueType font file registered under a name usable in image
// styles.
type Font struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

func (f Font) Valid() error {
	var errs []error

	if f.Name == "" {
		errs = append(errs, ErrFontMustHaveName)
	}

	if f.Path == "" {
		errs = append(errs, ErrFontMustHavePath)
	} else if st, err := os.Stat(f.Path); err != nil || st.IsDir() {
		errs = append(errs, fmt.Errorf("%w: %s", ErrFontFileMissing, f.Path))
	}

	if len(errs) != 0 {
		return fmt.Errorf("config.Font %q: %w", f.Name, errors.Join(errs...))
	}

	return nil
}
