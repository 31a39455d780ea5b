package fetcher

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultFTPPort = "21"

type FetcherConfig struct {
	Timeout    time.Duration
	RateLimit  float64 // requests per second
	HTTPClient *http.Client
	Logger     *zap.Logger
	// NewProgress, if set, returns a writer that receives a copy of every
	// downloaded byte. size is -1 when the server does not report it.
	NewProgress func(rawURL string, size int64) io.Writer
}

// Fetcher downloads remote resources to local temporary files. Each call
// makes exactly one attempt.
type Fetcher struct {
	config  FetcherConfig
	client  *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

func NewWithConfig(config FetcherConfig) *Fetcher {
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 1
	}

	client := config.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout: config.Timeout,
		}
	}

	log := config.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Fetcher{
		config:  config,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		log:     log,
	}
}

func New() *Fetcher {
	return NewWithConfig(FetcherConfig{})
}

// Fetch downloads rawURL into a new temporary file and returns its path.
// The caller owns the file.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp("", "chartdata-*"+filepath.Ext(u.Path))
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer tmp.Close()

	f.log.Debug("fetching", zap.String("url", rawURL), zap.String("path", tmp.Name()))

	switch strings.ToLower(u.Scheme) {
	case "ftp":
		err = f.fetchFTP(ctx, u, tmp)
	case "http", "https":
		err = f.fetchHTTP(ctx, rawURL, tmp)
	case "file":
		err = f.fetchFile(u, tmp)
	default:
		err = fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}

	return tmp.Name(), nil
}

// FetchTo downloads rawURL and moves the result to dst, replacing any
// existing file.
func (f *Fetcher) FetchTo(ctx context.Context, rawURL, dst string) error {
	path, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(dst); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			os.Remove(path)
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := os.Rename(path, dst); err != nil {
		// temp dir may live on another filesystem
		copyErr := copyFile(path, dst)
		os.Remove(path)
		if copyErr != nil {
			return fmt.Errorf("failed to move download to %s: %w", dst, copyErr)
		}
	}
	return nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, rawURL string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, rawURL)
	}

	return f.copy(rawURL, resp.ContentLength, w, resp.Body)
}

func (f *Fetcher) fetchFTP(ctx context.Context, u *url.URL, w io.Writer) error {
	addr := ftpAddr(u)
	conn, err := ftp.Dial(addr, ftp.DialWithTimeout(f.config.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return fmt.Errorf("ftp: connection failed: %w", err)
	}
	defer func() {
		if err := conn.Quit(); err != nil {
			f.log.Debug("ftp quit failed", zap.String("addr", addr), zap.Error(err))
		}
	}()

	user, pass := ftpCredentials(u)
	if err := conn.Login(user, pass); err != nil {
		return fmt.Errorf("ftp: login failed: %w", err)
	}

	size, err := conn.FileSize(u.Path)
	if err != nil {
		size = -1
	}

	resp, err := conn.Retr(u.Path)
	if err != nil {
		return fmt.Errorf("ftp: retr %s: %w", u.Path, err)
	}
	defer resp.Close()

	return f.copy(u.String(), size, w, resp)
}

func (f *Fetcher) fetchFile(u *url.URL, w io.Writer) error {
	path := u.Path
	if path == "" {
		path = u.Opaque
	}
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	size := int64(-1)
	if info, err := src.Stat(); err == nil {
		size = info.Size()
	}
	return f.copy(u.String(), size, w, src)
}

func (f *Fetcher) copy(rawURL string, size int64, w io.Writer, r io.Reader) error {
	if f.config.NewProgress != nil {
		if pw := f.config.NewProgress(rawURL, size); pw != nil {
			r = io.TeeReader(r, pw)
		}
	}
	n, err := io.Copy(w, r)
	if err != nil {
		return err
	}
	f.log.Debug("fetched", zap.String("url", rawURL), zap.Int64("bytes", n))
	return nil
}

func ftpAddr(u *url.URL) string {
	port := u.Port()
	if port == "" {
		port = defaultFTPPort
	}
	return net.JoinHostPort(u.Hostname(), port)
}

func ftpCredentials(u *url.URL) (string, string) {
	if u.User == nil || u.User.Username() == "" {
		return "anonymous", "anonymous"
	}
	pass, _ := u.User.Password()
	return u.User.Username(), pass
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
