package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-pdf/fpdf"
)

// ErrBackendUnavailable means the rendering fonts could not be loaded.
// Nothing is written when it is returned.
var ErrBackendUnavailable = errors.New("report rendering backend unavailable")

const (
	unicodeFamily   = "DejaVu"
	regularFontFile = "DejaVuSans.ttf"
	boldFontFile    = "DejaVuSans-Bold.ttf"
	coreFamily      = "Helvetica"
)

// fontSet is the loaded state shared by every document rendered by a Backend.
type fontSet struct {
	family  string
	unicode bool
	regular []byte
	bold    []byte
}

// install registers the fonts on a fresh document and returns the
// function every string must pass through before reaching the page.
func (fs *fontSet) install(pdf *fpdf.Fpdf) func(string) string {
	if fs.unicode {
		pdf.AddUTF8FontFromBytes(fs.family, "", fs.regular)
		pdf.AddUTF8FontFromBytes(fs.family, "B", fs.bold)
		return stripUnsupported(true)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	strip := stripUnsupported(false)
	return func(s string) string { return tr(strip(s)) }
}

// Backend lazily loads fonts once. A successful load is kept for the life
// of the Backend; a failed load is reported and retried on the next call.
type Backend struct {
	mu       sync.Mutex
	ready    bool
	fonts    *fontSet
	fontDir  string
	readFile func(string) ([]byte, error)
}

// NewBackend returns a backend that embeds DejaVu fonts from fontDir, or
// uses the core Helvetica font when fontDir is empty.
func NewBackend(fontDir string) *Backend {
	return &Backend{fontDir: fontDir, readFile: os.ReadFile}
}

// Ready reports whether fonts are loaded.
func (b *Backend) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ready
}

// Load performs the one-time initialization. Concurrent callers wait for
// the same load.
func (b *Backend) Load(ctx context.Context) (*fontSet, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ready {
		return b.fonts, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	fonts, err := b.loadFonts()
	if err != nil {
		slog.ErrorContext(ctx, "Report backend load failed", "font_dir", b.fontDir, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	b.fonts = fonts
	b.ready = true
	slog.InfoContext(ctx, "Report backend ready", "family", fonts.family, "unicode", fonts.unicode)
	return fonts, nil
}

func (b *Backend) loadFonts() (*fontSet, error) {
	if b.fontDir == "" {
		return &fontSet{family: coreFamily}, nil
	}
	regular, err := b.readFile(filepath.Join(b.fontDir, regularFontFile))
	if err != nil {
		return nil, fmt.Errorf("read regular font: %w", err)
	}
	bold, err := b.readFile(filepath.Join(b.fontDir, boldFontFile))
	if err != nil {
		return nil, fmt.Errorf("read bold font: %w", err)
	}
	if len(regular) == 0 || len(bold) == 0 {
		return nil, errors.New("empty font file")
	}
	return &fontSet{family: unicodeFamily, unicode: true, regular: regular, bold: bold}, nil
}

// cp1252Extras are the non Latin-1 runes the core font encoding can show.
var cp1252Extras = map[rune]bool{
	'€': true, '‚': true, 'ƒ': true, '„': true, '…': true, '†': true, '‡': true,
	'ˆ': true, '‰': true, 'Š': true, '‹': true, 'Œ': true, 'Ž': true, '‘': true,
	'’': true, '“': true, '”': true, '•': true, '–': true, '—': true, '˜': true,
	'™': true, 'š': true, '›': true, 'œ': true, 'ž': true, 'Ÿ': true,
}

// stripUnsupported drops runes the selected font cannot draw, such as the
// emoji used for category icons.
func stripUnsupported(unicode bool) func(string) string {
	return func(s string) string {
		out := make([]rune, 0, len(s))
		for _, r := range s {
			switch {
			case r < 0x20:
				continue
			case unicode && r < 0x2700 && r != '\u200D':
				out = append(out, r)
			case !unicode && (r < 0x100 || cp1252Extras[r]):
				out = append(out, r)
			}
		}
		return string(out)
	}
}
