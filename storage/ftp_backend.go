package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/jlaffaye/ftp"
)

type FTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	BaseURL  string
	Timeout  time.Duration
}

// FTPBackend stores images on an FTP server. A ServerConn is not safe for
// concurrent use, so every command runs under mu and the connection is
// re-established after a failure.
type FTPBackend struct {
	cfg  FTPConfig
	mu   sync.Mutex
	conn *ftp.ServerConn
}

func NewFTPBackend(cfg FTPConfig) *FTPBackend {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &FTPBackend{cfg: cfg}
}

func (b *FTPBackend) connect(ctx context.Context) error {
	if b.conn != nil {
		return nil
	}
	addr := b.cfg.Host + ":" + b.cfg.Port
	conn, err := ftp.Dial(addr, ftp.DialWithTimeout(b.cfg.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to connect to FTP: %w", err)
	}
	if err := conn.Login(b.cfg.User, b.cfg.Password); err != nil {
		conn.Quit()
		return fmt.Errorf("failed to login to FTP: %w", err)
	}
	// The namespace directories may already exist; MakeDir errors are expected then.
	for _, dir := range []string{"temporary_properties", "permanent_properties"} {
		_ = conn.MakeDir(dir)
	}
	b.conn = conn
	return nil
}

// do runs fn on a live connection and drops the connection when fn fails
// with anything other than a file-unavailable reply.
func (b *FTPBackend) do(ctx context.Context, fn func(*ftp.ServerConn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.connect(ctx); err != nil {
		return err
	}
	err := fn(b.conn)
	if err != nil && !isFileUnavailable(err) {
		b.conn.Quit()
		b.conn = nil
	}
	return err
}

func isFileUnavailable(err error) bool {
	var tpErr *textproto.Error
	return errors.As(err, &tpErr) && tpErr.Code == ftp.StatusFileUnavailable
}

func mapFTPError(err error) error {
	if isFileUnavailable(err) {
		return fmt.Errorf("%w: %v", ErrObjectNotFound, err)
	}
	return err
}

func (b *FTPBackend) Put(ctx context.Context, key string, data io.Reader) error {
	err := b.do(ctx, func(c *ftp.ServerConn) error {
		return c.Stor(key, data)
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

func (b *FTPBackend) Rename(ctx context.Context, from, to string) error {
	err := b.do(ctx, func(c *ftp.ServerConn) error {
		return c.Rename(from, to)
	})
	if err != nil {
		return fmt.Errorf("failed to rename %s: %w", from, mapFTPError(err))
	}
	return nil
}

func (b *FTPBackend) Exists(ctx context.Context, key string) (bool, error) {
	err := b.do(ctx, func(c *ftp.ServerConn) error {
		_, err := c.FileSize(key)
		return err
	})
	if err == nil {
		return true, nil
	}
	if isFileUnavailable(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", key, err)
}

func (b *FTPBackend) Delete(ctx context.Context, key string) error {
	err := b.do(ctx, func(c *ftp.ServerConn) error {
		return c.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, mapFTPError(err))
	}
	return nil
}

func (b *FTPBackend) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	dir := strings.TrimSuffix(prefix, "/")
	var entries []*ftp.Entry
	err := b.do(ctx, func(c *ftp.ServerConn) error {
		var err error
		entries, err = c.List(dir)
		return err
	})
	if err != nil {
		if isFileUnavailable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	objects := make([]ObjectInfo, 0, len(entries))
	for _, e := range entries {
		if e.Type != ftp.EntryTypeFile {
			continue
		}
		objects = append(objects, ObjectInfo{Key: path.Join(dir, e.Name), ModTime: e.Time})
	}
	return objects, nil
}

func (b *FTPBackend) URL(key string) string {
	return strings.TrimSuffix(b.cfg.BaseURL, "/") + "/" + key
}

func (b *FTPBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		err := b.conn.Quit()
		b.conn = nil
		return err
	}
	return nil
}
