package fetch

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"visiontune/internal/config"
	"visiontune/internal/fileutil"
	"visiontune/internal/logging"
)

const (
	// ArchiveName is the temporary file each download is written to.
	ArchiveName = "dataset.zip"

	defaultTimeout = 10 * time.Minute
)

// Failure records a dataset that could not be downloaded or extracted.
type Failure struct {
	Name string
	Err  error
}

// Result lists what happened to each configured dataset, in input order.
type Result struct {
	Downloaded []string
	Skipped    []string
	Failed     []Failure
}

// Fetcher downloads dataset archives over HTTP(S).
type Fetcher struct {
	client *http.Client
	logger *slog.Logger
}

// New constructs a fetcher. timeout bounds connecting and waiting for
// response headers; the body transfer itself is bounded only by ctx. A zero
// timeout uses the default.
func New(timeout time.Duration, logger *slog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
	transport.ResponseHeaderTimeout = timeout
	return &Fetcher{
		client: &http.Client{Transport: transport},
		logger: logging.NewComponentLogger(logger, "fetch"),
	}
}

// NewFromConfig constructs a fetcher using the fetch section of cfg.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Fetcher {
	var timeout time.Duration
	if cfg != nil {
		timeout = time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second
	}
	return New(timeout, logger)
}

// Fetch ensures every dataset has a directory under root. Existing
// directories are skipped. The returned error is non-nil only when root cannot
// be created or ctx is cancelled; individual dataset failures are reported in
// the result.
func (f *Fetcher) Fetch(ctx context.Context, root string, datasets []config.Dataset) (Result, error) {
	var result Result
	if err := os.MkdirAll(root, 0o755); err != nil {
		return result, fmt.Errorf("create datasets root: %w", err)
	}

	for _, ds := range datasets {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		dir := filepath.Join(root, ds.Name)
		logger := f.logger.With(logging.String(logging.FieldDataset, ds.Name))

		if fileutil.Exists(dir) {
			logger.Info("dataset already present", logging.String(logging.FieldPath, dir))
			result.Skipped = append(result.Skipped, ds.Name)
			continue
		}

		logger.Info("downloading dataset", logging.String(logging.FieldURL, ds.URL))
		start := time.Now()
		size, err := f.fetchOne(ctx, ds.URL, dir)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			logging.WarnWithContext(logger, "dataset download failed", "dataset_fetch_failed",
				logging.String(logging.FieldURL, ds.URL),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the dataset directory and re-run fetch once the URL is reachable"),
				logging.String(logging.FieldImpact, "dataset may be missing or incomplete"),
			)
			result.Failed = append(result.Failed, Failure{Name: ds.Name, Err: err})
			continue
		}
		logger.Info("dataset downloaded",
			logging.String(logging.FieldPath, dir),
			logging.String("archive_size", humanize.IBytes(uint64(size))),
			logging.Duration("elapsed", time.Since(start)),
		)
		result.Downloaded = append(result.Downloaded, ds.Name)
	}
	return result, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, url, dir string) (int64, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create dataset directory: %w", err)
	}
	archive := filepath.Join(dir, ArchiveName)
	size, err := f.download(ctx, url, archive)
	if err != nil {
		return 0, err
	}
	if err := extract(archive, dir); err != nil {
		return size, err
	}
	if err := os.Remove(archive); err != nil {
		return size, fmt.Errorf("remove archive: %w", err)
	}
	return size, nil
}

func (f *Fetcher) download(ctx context.Context, url, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("download: unexpected status %d", resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("create archive: %w", err)
	}
	written, err := io.Copy(out, resp.Body)
	if err != nil {
		out.Close()
		return written, fmt.Errorf("download: %w", err)
	}
	if err := out.Close(); err != nil {
		return written, fmt.Errorf("write archive: %w", err)
	}
	return written, nil
}

// extract unpacks archive into dir. Entries that would land outside dir or
// overwrite the archive itself are skipped.
func extract(archive, dir string) error {
	zr, err := zip.OpenReader(archive)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	for _, file := range zr.File {
		target, ok := entryPath(dir, file.Name)
		if !ok || filepath.Clean(target) == filepath.Clean(archive) {
			continue
		}
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", file.Name, err)
			}
			continue
		}
		if err := extractFile(file, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(file *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", file.Name, err)
	}
	rc, err := file.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", file.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", file.Name, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("extract %s: %w", file.Name, err)
	}
	return out.Close()
}

// entryPath resolves an archive entry name beneath dir.
func entryPath(dir, name string) (string, bool) {
	name = strings.ReplaceAll(name, "\\", "/")
	if name == "" || strings.HasPrefix(name, "/") || filepath.IsAbs(name) {
		return "", false
	}
	target := filepath.Join(dir, filepath.FromSlash(name))
	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return target, true
}

// FailedNames returns the names of failed datasets.
func (r Result) FailedNames() []string {
	names := make([]string, 0, len(r.Failed))
	for _, failure := range r.Failed {
		names = append(names, failure.Name)
	}
	return names
}

// Err joins every per-dataset failure, or returns nil.
func (r Result) Err() error {
	errs := make([]error, 0, len(r.Failed))
	for _, failure := range r.Failed {
		errs = append(errs, fmt.Errorf("%s: %w", failure.Name, failure.Err))
	}
	return errors.Join(errs...)
}
