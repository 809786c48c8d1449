package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path/filepath"

	"golang.org/x/time/rate"

	"txanomaly/internal/config"
)

// Publisher uploads finished report directories to one storage location
type Publisher struct {
	store   Store
	root    URI
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewPublisher connects to cfg.PublishURI. It returns nil and no error when
// publishing is not configured.
func NewPublisher(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*Publisher, error) {
	if cfg.PublishURI == "" {
		return nil, nil
	}
	root, err := ParseURI(cfg.PublishURI)
	if err != nil {
		return nil, err
	}
	store, err := OpenStore(ctx, root, cfg)
	if err != nil {
		return nil, err
	}
	return NewPublisherWithStore(store, root, logger).WithUploadRate(cfg.UploadRate), nil
}

// NewPublisherWithStore returns a publisher writing below root through store
func NewPublisherWithStore(store Store, root URI, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{store: store, root: root, logger: logger}
}

// WithUploadRate limits uploads to perSecond objects per second. Zero or
// less removes the limit.
func (p *Publisher) WithUploadRate(perSecond float64) *Publisher {
	if perSecond <= 0 {
		p.limiter = nil
		return p
	}
	p.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	return p
}

// Publish uploads every regular file below dir to <root>/<runID>/ keeping
// the relative layout, and returns the URI of the run folder. Files are
// visited in lexical order.
func (p *Publisher) Publish(ctx context.Context, dir, runID string) (string, error) {
	target := p.root.Join(runID)
	files := 0

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if err := p.upload(ctx, path, target.Key(filepath.ToSlash(rel))); err != nil {
			return err
		}
		files++
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("publish %s: %w", dir, err)
	}

	p.logger.InfoContext(ctx, "Published reports",
		slog.String("uri", target.String()),
		slog.Int("files", files))
	return target.String(), nil
}

func (p *Publisher) upload(ctx context.Context, path, key string) error {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file %q: %w", path, err)
	}
	defer f.Close()

	if err := p.store.Put(ctx, key, f, contentType(path)); err != nil {
		return err
	}
	p.logger.DebugContext(ctx, "uploaded object", slog.String("key", key))
	return nil
}

// Close releases the underlying client
func (p *Publisher) Close() error {
	return p.store.Close()
}

// Fetch downloads the object at rawURI into dst, replacing any existing
// file. The download goes to a temporary file that is renamed on success.
func Fetch(ctx context.Context, rawURI, dst string, cfg config.StorageConfig) error {
	uri, err := ParseURI(rawURI)
	if err != nil {
		return err
	}
	if uri.Prefix == "" {
		return fmt.Errorf("invalid storage URI %q: no object path", rawURI)
	}
	store, err := OpenStore(ctx, uri, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return FetchFrom(ctx, store, uri.Prefix, dst)
}

// FetchFrom downloads key from store into dst
func FetchFrom(ctx context.Context, store Store, key, dst string) error {
	rc, err := store.Get(ctx, key)
	if err != nil {
		return err
	}
	defer rc.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		return fmt.Errorf("download %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func contentType(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
