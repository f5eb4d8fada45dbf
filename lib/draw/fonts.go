package draw

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/golang/freetype/truetype"
	"github.com/mojocn/base64Captcha"
)

var (
	ErrFontNotFound = errors.New("draw: font not found")
	ErrBadFont      = errors.New("draw: font file can't be parsed")
)

// DefaultFontCacheSize bounds the number of parsed fonts kept in memory.
const DefaultFontCacheSize = 32

// FontCache implements base64Captcha.FontsStorage. It serves fonts
// registered from files and falls back to the fonts embedded in
// base64Captcha. Parsed fonts are kept for the life of the process, up to
// a fixed count.
type FontCache struct {
	lock     sync.Mutex
	custom   map[string]string
	parsed   map[string]*truetype.Font
	order    []string
	max      int
	fallback base64Captcha.FontsStorage
}

// NewFontCache creates a cache holding at most max parsed fonts.
func NewFontCache(max int) *FontCache {
	if max <= 0 {
		max = DefaultFontCacheSize
	}

	return &FontCache{
		custom:   map[string]string{},
		parsed:   map[string]*truetype.Font{},
		max:      max,
		fallback: base64Captcha.DefaultEmbeddedFonts,
	}
}

// Register makes the font file at path available as name. The file is
// parsed right away so that a bad path fails at startup.
func (fc *FontCache) Register(name, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %s (%s): %w", ErrFontNotFound, name, path, err)
	}

	font, err := truetype.Parse(data)
	if err != nil {
		return fmt.Errorf("%w: %s (%s): %w", ErrBadFont, name, path, err)
	}

	fc.lock.Lock()
	defer fc.lock.Unlock()

	fc.custom[name] = path
	fc.putLocked(name, font)

	return nil
}

// Has reports whether name is a registered font.
func (fc *FontCache) Has(name string) bool {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	_, ok := fc.custom[name]
	return ok
}

func (fc *FontCache) putLocked(name string, font *truetype.Font) {
	if _, ok := fc.parsed[name]; !ok {
		if len(fc.order) >= fc.max {
			oldest := fc.order[0]
			fc.order = fc.order[1:]
			delete(fc.parsed, oldest)
		}
		fc.order = append(fc.order, name)
	}
	fc.parsed[name] = font
}

// LoadFontByName returns a parsed font. base64Captcha asks for embedded
// fonts as "fonts/<file>"; custom fonts are looked up by their bare name.
func (fc *FontCache) LoadFontByName(name string) *truetype.Font {
	bare := strings.TrimPrefix(name, "fonts/")

	fc.lock.Lock()
	defer fc.lock.Unlock()

	if font, ok := fc.parsed[bare]; ok {
		return font
	}

	var font *truetype.Font
	if path, ok := fc.custom[bare]; ok {
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Error("can't reload registered font", "name", bare, "path", path, "err", err)
			return nil
		}
		font, err = truetype.Parse(data)
		if err != nil {
			slog.Error("can't parse registered font", "name", bare, "path", path, "err", err)
			return nil
		}
	} else {
		font = fc.loadEmbedded(bare)
	}

	if font != nil {
		fc.putLocked(bare, font)
	}

	return font
}

// loadEmbedded returns nil for unknown names; the embedded storage panics
// on them.
func (fc *FontCache) loadEmbedded(name string) (font *truetype.Font) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("embedded font not found", "name", name, "err", r)
			font = nil
		}
	}()

	return fc.fallback.LoadFontByName("fonts/" + name)
}

func (fc *FontCache) LoadFontsByNames(names []string) []*truetype.Font {
	result := make([]*truetype.Font, 0, len(names))
	for _, name := range names {
		if font := fc.LoadFontByName(name); font != nil {
			result = append(result, font)
		}
	}
	return result
}

// Len returns the number of parsed fonts held.
func (fc *FontCache) Len() int {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	return len(fc.parsed)
}
