// Package qrcode renders one QR code image per board position. Each image encodes the URL
// that opens the game at that position.
package qrcode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"chess-quiz-service/internal/domain"
	qr "github.com/skip2/go-qrcode"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultSize    = 300
	DefaultURLBase = "/qrcodes/"
)

// ErrGeneration wraps encoding and file-system failures.
var ErrGeneration = fmt.Errorf("qr code generation failed: %w", domain.ErrInternal)

// Recorder is notified about freshly generated images.
type Recorder interface {
	QRCodeGenerated()
}

// Config configures a Generator.
type Config struct {
	Dir     string // output directory
	BaseURL string // game origin encoded in every image
	URLBase string // public prefix of the returned references
	Size    int
}

// Generator writes <Dir>/<POS>.png files. It is idempotent: an existing file is reused.
type Generator struct {
	dir     string
	baseURL string
	urlBase string
	size    int
	sf      singleflight.Group
	rec     Recorder
	logger  *slog.Logger
	encode  func(content string, size int) ([]byte, error)
}

func NewGenerator(cfg Config, rec Recorder, logger *slog.Logger) *Generator {
	if cfg.Size <= 0 {
		cfg.Size = DefaultSize
	}
	if cfg.URLBase == "" {
		cfg.URLBase = DefaultURLBase
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		dir:     cfg.Dir,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		urlBase: strings.TrimRight(cfg.URLBase, "/") + "/",
		size:    cfg.Size,
		rec:     rec,
		logger:  logger,
		encode: func(content string, size int) ([]byte, error) {
			return qr.Encode(content, qr.Highest, size)
		},
	}
}

// Dir returns the output directory.
func (g *Generator) Dir() string {
	return g.dir
}

// Content returns the URL encoded for a position.
func (g *Generator) Content(p domain.Position) string {
	return g.baseURL + "/game.html?position=" + url.QueryEscape(string(p))
}

// GenerateForPosition returns the public reference of the position's image, writing it
// first if it does not exist yet. Concurrent calls for one position share one write.
func (g *Generator) GenerateForPosition(ctx context.Context, raw string) (string, error) {
	p, err := domain.ParsePosition(raw)
	if err != nil {
		return "", err
	}
	name := string(p) + ".png"
	ref := g.urlBase + name

	if err := ctx.Err(); err != nil {
		return "", err
	}
	// the shared write outlives any single caller, so it runs on a detached context
	shared := context.WithoutCancel(ctx)
	ch := g.sf.DoChan(name, func() (interface{}, error) {
		path := filepath.Join(g.dir, name)
		if _, err := os.Stat(path); err == nil {
			return nil, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: stat %s: %w", ErrGeneration, path, err)
		}
		if err := g.write(path, g.Content(p)); err != nil {
			return nil, err
		}
		if g.rec != nil {
			g.rec.QRCodeGenerated()
		}
		g.logger.InfoContext(shared, "qr code generated", "position", string(p), "path", path)
		return nil, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return ref, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// GenerateAll makes sure every one of the 64 positions has an image.
func (g *Generator) GenerateAll(ctx context.Context) (map[domain.Position]string, error) {
	refs := make(map[domain.Position]string, 64)
	for _, p := range domain.AllPositions() {
		ref, err := g.GenerateForPosition(ctx, string(p))
		if err != nil {
			return refs, err
		}
		refs[p] = ref
	}
	return refs, nil
}

// write renders into a temp file and renames it, so readers never see a partial image.
func (g *Generator) write(path, content string) error {
	png, err := g.encode(content, g.size)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrGeneration, err)
	}
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return fmt.Errorf("%w: create dir: %w", ErrGeneration, err)
	}
	tmp, err := os.CreateTemp(g.dir, ".qr-*.png")
	if err != nil {
		return fmt.Errorf("%w: temp file: %w", ErrGeneration, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(png); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write: %w", ErrGeneration, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close: %w", ErrGeneration, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: rename: %w", ErrGeneration, err)
	}
	return nil
}
