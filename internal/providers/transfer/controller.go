// Package transfer streams download artifacts to disk.
//
// A Controller owns at most one transfer per app id. Transfers follow
// redirects manually so the file name derived from the original URL survives
// opaque CDN redirect targets, stream straight to a ".part" file, and report
// progress per received chunk. Every call settles to an Outcome; nothing
// escapes as a panic or a bare error.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Smallzoamz/Bonchon-Studio/internal/infrastructure/monitoring"
	"github.com/Smallzoamz/Bonchon-Studio/internal/logging"
	"github.com/Smallzoamz/Bonchon-Studio/internal/providers/http/client"
	"github.com/Smallzoamz/Bonchon-Studio/internal/shared/types"
	"github.com/Smallzoamz/Bonchon-Studio/internal/shared/utils"
)

const (
	DefaultChunkSize    = 32 * 1024
	DefaultMaxRedirects = 10
	DefaultSpeedWindow  = 500 * time.Millisecond
	partSuffix          = ".part"
)

var (
	// ErrSessionExists is returned when the app id already has a transfer
	ErrSessionExists = errors.New("transfer already in progress")
	// ErrTooManyRedirects is returned when the redirect chain exceeds the limit
	ErrTooManyRedirects = errors.New("too many redirects")
)

// Status is the terminal state of a transfer
type Status int

const (
	StatusSuccess Status = iota
	StatusCancelled
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusCancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

// Outcome is the settled result of Start
type Outcome struct {
	Status Status
	// Path is the artifact location on success
	Path  string
	Bytes int64
	Err   error
	Kind  types.ErrorKind
}

// Progress is reported once per chunk written to disk
type Progress struct {
	BytesDownloaded  int64
	BytesTotal       int64
	Percent          int
	ElapsedSeconds   float64
	SpeedBytesPerSec float64
}

// ProgressFunc receives progress from the transfer's goroutine
type ProgressFunc func(Progress)

// Options configures a Controller
type Options struct {
	UserAgent     string
	HeaderTimeout time.Duration
	MaxRedirects  int
	ChunkSize     int
	FallbackExt   string
	Logger        *logging.Logger
	Metrics       *monitoring.Metrics
}

// Controller runs transfers
type Controller struct {
	client       *client.Client
	sessions     *table
	maxRedirects int
	chunkSize    int
	fallbackExt  string
	speedWindow  time.Duration
	logger       *logging.Logger
	metrics      *monitoring.Metrics
}

// NewController creates a transfer controller
func NewController(opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = DefaultMaxRedirects
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.FallbackExt == "" {
		opts.FallbackExt = ".exe"
	}

	logger := opts.Logger.Component("transfer")
	return &Controller{
		client: client.New(client.Options{
			UserAgent:          opts.UserAgent,
			HeaderTimeout:      opts.HeaderTimeout,
			DisableCompression: true,
			Logger:             logger,
		}),
		sessions:     newTable(),
		maxRedirects: opts.MaxRedirects,
		chunkSize:    opts.ChunkSize,
		fallbackExt:  opts.FallbackExt,
		speedWindow:  DefaultSpeedWindow,
		logger:       logger,
		metrics:      opts.Metrics,
	}
}

// Start downloads rawURL into destDir and blocks until the transfer settles.
// A second Start for an app id with a live session fails with ErrSessionExists.
func (c *Controller) Start(ctx context.Context, appID, rawURL, destDir string, onProgress ProgressFunc) Outcome {
	if err := utils.ValidateDownloadURL(rawURL); err != nil {
		return failed(err, types.ErrorNetwork)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := &session{appID: appID, url: rawURL, started: time.Now(), cancel: cancel}
	if !c.sessions.claim(s) {
		return failed(fmt.Errorf("%s: %w", appID, ErrSessionExists), types.ErrorState)
	}
	defer c.sessions.release(s)

	log := c.logger.WithApp(appID)

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return failed(fmt.Errorf("failed to create directory: %w", err), types.ErrorFilesystem)
	}

	// Name comes from the original URL only, never from a redirect target
	name := TargetFileName(appID, rawURL, c.fallbackExt)
	target := filepath.Join(destDir, name)

	log.Info("Transfer started", zap.String("url", rawURL), zap.String("target", target))

	out := c.run(runCtx, s, rawURL, target, onProgress)
	switch out.Status {
	case StatusSuccess:
		log.Info("Transfer complete",
			zap.String("path", out.Path),
			zap.Int64("bytes", out.Bytes),
			zap.Duration("elapsed", time.Since(s.started)),
		)
	case StatusCancelled:
		log.Info("Transfer cancelled")
	default:
		log.Warn("Transfer failed", zap.Error(out.Err))
	}
	return out
}

func (c *Controller) run(ctx context.Context, s *session, rawURL, target string, onProgress ProgressFunc) Outcome {
	body, total, err := c.open(ctx, rawURL)
	if err != nil {
		if c.wasCancelled(ctx, s) {
			return Outcome{Status: StatusCancelled}
		}
		return failed(err, types.ErrorNetwork)
	}
	defer body.Close()

	part := target + partSuffix
	file, err := os.Create(part)
	if err != nil {
		return failed(fmt.Errorf("failed to create %s: %w", part, err), types.ErrorFilesystem)
	}

	written, copyErr := c.stream(ctx, body, file, total, s.started, onProgress)
	closeErr := file.Close()

	// A cancel observed at any point wins over success or failure
	if c.wasCancelled(ctx, s) {
		os.Remove(part)
		return Outcome{Status: StatusCancelled}
	}
	if copyErr != nil {
		os.Remove(part)
		return failed(copyErr, kindOf(copyErr))
	}
	if closeErr != nil {
		os.Remove(part)
		return failed(fmt.Errorf("failed to write %s: %w", part, closeErr), types.ErrorFilesystem)
	}
	if total > 0 && written != total {
		os.Remove(part)
		return failed(fmt.Errorf("transfer truncated: got %d of %d bytes", written, total), types.ErrorNetwork)
	}

	if err := os.Rename(part, target); err != nil {
		os.Remove(part)
		return failed(fmt.Errorf("failed to move artifact into place: %w", err), types.ErrorFilesystem)
	}

	return Outcome{Status: StatusSuccess, Path: target, Bytes: written}
}

// open issues the request, following redirects manually, and returns the
// body of the final 2xx response with its declared length (0 if unknown).
func (c *Controller) open(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	current := rawURL
	for hops := 0; ; hops++ {
		req, err := c.client.Request(ctx)
		if err != nil {
			return nil, 0, err
		}

		resp, err := req.SetDoNotParseResponse(true).Get(current)
		if err != nil {
			return nil, 0, fmt.Errorf("request failed: %w", err)
		}
		raw := resp.RawResponse
		body := resp.RawBody()

		switch {
		case isRedirect(raw.StatusCode):
			location := raw.Header.Get("Location")
			body.Close()
			if location == "" {
				return nil, 0, fmt.Errorf("redirect %d without Location header", raw.StatusCode)
			}
			if hops >= c.maxRedirects {
				return nil, 0, ErrTooManyRedirects
			}
			next, err := resolve(current, location)
			if err != nil {
				return nil, 0, err
			}
			c.metrics.IncRedirects()
			c.logger.Debug("Following redirect", zap.Int("status", raw.StatusCode), zap.String("to", next))
			current = next

		case raw.StatusCode < 200 || raw.StatusCode >= 300:
			body.Close()
			return nil, 0, fmt.Errorf("download failed: HTTP %d", raw.StatusCode)

		default:
			total := raw.ContentLength
			if total < 0 {
				total = 0
			}
			return body, total, nil
		}
	}
}

// stream copies body to w chunk by chunk, reporting progress after each write
func (c *Controller) stream(ctx context.Context, body io.Reader, w io.Writer, total int64, started time.Time, onProgress ProgressFunc) (int64, error) {
	buf := make([]byte, c.chunkSize)
	var written int64

	meter := newSpeedMeter(started, c.speedWindow)

	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return written, &writeError{err: err}
			}
			written += int64(n)
			c.metrics.AddTransferBytes(int64(n))

			if onProgress != nil {
				now := time.Now()
				onProgress(Progress{
					BytesDownloaded:  written,
					BytesTotal:       total,
					Percent:          utils.Percent(written, total),
					ElapsedSeconds:   now.Sub(started).Seconds(),
					SpeedBytesPerSec: meter.sample(now, written),
				})
			}
		}

		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, fmt.Errorf("transfer interrupted: %w", readErr)
		}
	}
}

// Cancel aborts the app's transfer. It reports whether a transfer was running.
func (c *Controller) Cancel(appID string) bool {
	s, ok := c.sessions.get(appID)
	if !ok {
		return false
	}
	s.cancelled.Store(true)
	s.cancel()
	return true
}

func (c *Controller) wasCancelled(ctx context.Context, s *session) bool {
	return s.cancelled.Load() || errors.Is(ctx.Err(), context.Canceled)
}

type writeError struct{ err error }

func (e *writeError) Error() string { return "failed to write artifact: " + e.err.Error() }
func (e *writeError) Unwrap() error { return e.err }

func kindOf(err error) types.ErrorKind {
	var we *writeError
	if errors.As(err, &we) {
		return types.ErrorFilesystem
	}
	return types.ErrorNetwork
}

func failed(err error, kind types.ErrorKind) Outcome {
	return Outcome{Status: StatusFailed, Err: err, Kind: kind}
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func resolve(base, location string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", base, err)
	}
	l, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("invalid redirect location %q: %w", location, err)
	}
	return b.ResolveReference(l).String(), nil
}
