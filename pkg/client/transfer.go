package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/politusanalytics/hdfs/pkg/logging"
	"github.com/politusanalytics/hdfs/pkg/metrics"
	"github.com/politusanalytics/hdfs/pkg/protocol"
)

// TransferOptions control Upload and Download.
type TransferOptions struct {
	Recursive bool // required when the source is a directory
	Overwrite bool // replace pre-existing targets instead of skipping them
	Workers   int  // max concurrent file transfers, default 1
}

// TransferResult is the outcome for one file of a transfer plan.
type TransferResult struct {
	LocalPath  string
	RemotePath string
	Skipped    bool // pre-existing target left in place (Overwrite unset)
	Err        error
}

// TransferReport aggregates per-file outcomes, in plan order regardless of
// completion order. It is returned even when the transfer fails, so partial
// success stays observable.
type TransferReport struct {
	Path    string // resolved remote root (upload) or local root (download)
	Results []TransferResult
}

// errTargetExists marks a per-file pre-existing-target conflict.
var errTargetExists = errors.New("transfer target already exists")

type transferEntry struct {
	local  string
	remote string
}

type transferFunc func(ctx context.Context, e transferEntry, overwrite bool) error

// Upload copies a local file or directory tree to a remote path. Directory
// sources require Recursive. The plan is built single-threaded, remote
// directories are created first, then file creates fan out across Workers.
func (c *Client) Upload(ctx context.Context, remotePath, localPath string, opts TransferOptions) (*TransferReport, error) {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	resolved, err := c.resolve(remotePath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(localPath)
	if err != nil {
		return nil, err
	}

	report := &TransferReport{Path: resolved}

	if !info.IsDir() {
		plan := []transferEntry{{local: localPath, remote: remotePath}}
		err := c.runTransfer(ctx, report, plan, opts, c.uploadFile, "upload", true)
		return report, err
	}

	if !opts.Recursive {
		return nil, fmt.Errorf("%w: %s is a directory, recursive upload not requested", ErrInvalidArgument, localPath)
	}

	// Plan construction is single-threaded and completes before fan-out.
	var dirs, files []transferEntry
	err = filepath.WalkDir(localPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(localPath, p)
		if err != nil {
			return err
		}
		target := remotePath
		if rel != "." {
			target = path.Join(remotePath, filepath.ToSlash(rel))
		}
		e := transferEntry{local: p, remote: target}
		if d.IsDir() {
			dirs = append(dirs, e)
		} else {
			files = append(files, e)
		}
		return nil
	})
	if err != nil {
		return report, err
	}

	for _, d := range dirs {
		if _, err := c.MkDirs(ctx, d.remote, ""); err != nil {
			return report, fmt.Errorf("mkdirs %s: %w", d.remote, err)
		}
	}

	logging.Debug("upload plan built",
		zap.String("remote", resolved), zap.Int("dirs", len(dirs)), zap.Int("files", len(files)))

	err = c.runTransfer(ctx, report, files, opts, c.uploadFile, "upload", false)
	return report, err
}

// Download copies a remote file or directory tree to a local path,
// symmetric to Upload: the remote tree is walked via the listing operation
// and file reads fan out across Workers.
func (c *Client) Download(ctx context.Context, remotePath, localPath string, opts TransferOptions) (*TransferReport, error) {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	resolved, err := c.resolve(remotePath)
	if err != nil {
		return nil, err
	}
	status, err := c.Status(ctx, remotePath)
	if err != nil {
		return nil, err
	}

	report := &TransferReport{Path: localPath}

	if !status.IsDir() {
		plan := []transferEntry{{local: localPath, remote: remotePath}}
		err := c.runTransfer(ctx, report, plan, opts, c.downloadFile, "download", true)
		return report, err
	}

	if !opts.Recursive {
		return nil, fmt.Errorf("%w: %s is a directory, recursive download not requested", ErrInvalidArgument, remotePath)
	}

	var dirs, files []transferEntry
	err = c.Walk(ctx, remotePath, func(p string, s *protocol.FileStatus) error {
		rel := strings.TrimPrefix(strings.TrimPrefix(p, resolved), "/")
		e := transferEntry{
			local:  filepath.Join(localPath, filepath.FromSlash(rel)),
			remote: p,
		}
		if s.IsDir() {
			dirs = append(dirs, e)
		} else {
			files = append(files, e)
		}
		return nil
	})
	if err != nil {
		return report, err
	}

	for _, d := range dirs {
		if err := os.MkdirAll(d.local, 0o755); err != nil {
			return report, err
		}
	}

	logging.Debug("download plan built",
		zap.String("remote", resolved), zap.Int("dirs", len(dirs)), zap.Int("files", len(files)))

	err = c.runTransfer(ctx, report, files, opts, c.downloadFile, "download", false)
	return report, err
}

// runTransfer executes a precomputed, immutable plan with a bounded worker
// pool. Results land at their plan index, so the report is in plan order no
// matter when workers finish. The first hard failure stops dispatch of new
// tasks; in-flight tasks run to completion and nothing already transferred
// is rolled back. A pre-existing-target conflict is a per-file skip unless
// it hits the sole top-level target.
func (c *Client) runTransfer(ctx context.Context, report *TransferReport, plan []transferEntry, opts TransferOptions, fn transferFunc, direction string, sole bool) error {
	results := make([]TransferResult, len(plan))

	var (
		wg   sync.WaitGroup
		stop atomic.Bool
		sem  = make(chan struct{}, opts.Workers)
	)

	for i, e := range plan {
		results[i] = TransferResult{LocalPath: e.local, RemotePath: e.remote}
		if stop.Load() || ctx.Err() != nil {
			results[i].Err = ErrAborted
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		// A worker that failed while we waited for a slot must stop
		// dispatch here, not one entry later.
		if stop.Load() || ctx.Err() != nil {
			results[i].Err = ErrAborted
			<-sem
			wg.Done()
			continue
		}
		go func(i int, e transferEntry) {
			defer wg.Done()
			defer func() { <-sem }()

			err := fn(ctx, e, opts.Overwrite)
			switch {
			case err == nil:
				metrics.RecordTransferFile(direction, "ok")
			case errors.Is(err, errTargetExists) && !sole:
				results[i].Skipped = true
				metrics.RecordTransferFile(direction, "skipped")
				logging.Debug("target exists, skipping",
					zap.String("remote", e.remote), zap.String("local", e.local))
			default:
				results[i].Err = err
				metrics.RecordTransferFile(direction, "error")
				stop.Store(true)
			}
		}(i, e)
	}
	wg.Wait()

	report.Results = results
	for i := range results {
		if results[i].Err != nil && !errors.Is(results[i].Err, ErrAborted) {
			return fmt.Errorf("%s %s: %w", direction, results[i].RemotePath, results[i].Err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

func (c *Client) uploadFile(ctx context.Context, e transferEntry, overwrite bool) error {
	f, err := os.Open(e.local)
	if err != nil {
		return err
	}
	defer f.Close()

	err = c.Create(ctx, e.remote, f, CreateOptions{Overwrite: overwrite})
	if err != nil && IsFileExists(err) {
		return fmt.Errorf("%w: %w", errTargetExists, err)
	}
	return err
}

func (c *Client) downloadFile(ctx context.Context, e transferEntry, overwrite bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	out, err := os.OpenFile(e.local, flags, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %w", errTargetExists, err)
		}
		return err
	}

	r, err := c.Open(ctx, e.remote, OpenOptions{})
	if err != nil {
		out.Close()
		return err
	}
	defer r.Close()

	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
