package preflight

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"visiontune/internal/config"
)

// MinFreeBytes is the free space required under the output directory before
// a run: merged images, checkpoints and exports.
const MinFreeBytes uint64 = 5 << 30

const hostCheckTimeout = 10 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies that the filesystem holding path has at least min
// bytes available to unprivileged users.
func CheckFreeSpace(name, path string, min uint64) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	avail := stat.Bavail * uint64(stat.Bsize)
	detail := fmt.Sprintf("%s available", humanize.IBytes(avail))
	if avail < min {
		return Result{Name: name, Detail: fmt.Sprintf("%s (need %s)", detail, humanize.IBytes(min))}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckBaseModel verifies that the checkpoint to fine-tune is a readable file.
func CheckBaseModel(path string) Result {
	const name = "Base model"

	path = strings.TrimSpace(path)
	if path == "" {
		return Result{Name: name, Detail: "not provided"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	if !strings.EqualFold(filepath.Ext(path), ".pt") {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (warning: expected a .pt checkpoint)", path)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, humanize.IBytes(uint64(info.Size())))}
}

// CheckDatasetHosts probes each distinct host among the datasets that still
// need downloading. Any HTTP response counts as reachable. Failures are
// advisory because fetch already tolerates unavailable datasets.
func CheckDatasetHosts(ctx context.Context, datasets []config.Dataset) []Result {
	seen := make(map[string]bool)
	var results []Result
	client := &http.Client{Timeout: hostCheckTimeout}
	for _, ds := range datasets {
		parsed, err := url.Parse(ds.URL)
		if err != nil || parsed.Host == "" {
			results = append(results, Result{Name: "Dataset " + ds.Name, Advisory: true, Detail: fmt.Sprintf("invalid url %q", ds.URL)})
			continue
		}
		if seen[parsed.Host] {
			continue
		}
		seen[parsed.Host] = true
		results = append(results, checkHost(ctx, client, parsed))
	}
	return results
}

func checkHost(ctx context.Context, client *http.Client, target *url.URL) Result {
	name := "Dataset host " + target.Host

	checkCtx, cancel := context.WithTimeout(ctx, hostCheckTimeout)
	defer cancel()

	root := url.URL{Scheme: target.Scheme, Host: target.Host, Path: "/"}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, root.String(), nil)
	if err != nil {
		return Result{Name: name, Advisory: true, Detail: fmt.Sprintf("request failed (%v)", err)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Advisory: true, Detail: fmt.Sprintf("unreachable (%v)", err)}
	}
	resp.Body.Close()
	return Result{Name: name, Passed: true, Advisory: true, Detail: fmt.Sprintf("reachable (%d)", resp.StatusCode)}
}
