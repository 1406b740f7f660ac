package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strconv"

	"github.com/politusanalytics/hdfs/pkg/metrics"
	"github.com/politusanalytics/hdfs/pkg/protocol"
)

// CreateOptions control Create.
type CreateOptions struct {
	Overwrite   bool
	Permission  string // octal permission, e.g. "755"
	BlockSize   int64
	Replication int
	BufferSize  int
}

// OpenOptions control Open.
type OpenOptions struct {
	Offset     int64
	Length     int64 // 0 reads to end of file
	BufferSize int
}

// Status returns a fresh metadata snapshot for a path. Missing paths yield
// a remote not-found error (check with IsNotFound).
func (c *Client) Status(ctx context.Context, p string) (*protocol.FileStatus, error) {
	rp, err := c.resolve(p)
	if err != nil {
		return nil, err
	}
	resp, err := c.session.execute(ctx, protocol.GetFileStatus, rp, nil, nil)
	if err != nil {
		return nil, err
	}
	var body protocol.FileStatusResponse
	if err := decodeJSON(resp, &body); err != nil {
		return nil, err
	}
	return &body.FileStatus, nil
}

// List returns the entries of a directory in the order the service supplied
// them, never re-sorted.
func (c *Client) List(ctx context.Context, p string) ([]protocol.FileStatus, error) {
	rp, err := c.resolve(p)
	if err != nil {
		return nil, err
	}
	resp, err := c.session.execute(ctx, protocol.ListStatus, rp, nil, nil)
	if err != nil {
		return nil, err
	}
	var body protocol.ListStatusResponse
	if err := decodeJSON(resp, &body); err != nil {
		return nil, err
	}
	return body.FileStatuses.FileStatus, nil
}

// ContentSummary returns aggregate usage below a directory.
func (c *Client) ContentSummary(ctx context.Context, p string) (*protocol.ContentSummary, error) {
	rp, err := c.resolve(p)
	if err != nil {
		return nil, err
	}
	resp, err := c.session.execute(ctx, protocol.GetContentSummary, rp, nil, nil)
	if err != nil {
		return nil, err
	}
	var body protocol.ContentSummaryResponse
	if err := decodeJSON(resp, &body); err != nil {
		return nil, err
	}
	return &body.ContentSummary, nil
}

// MkDirs creates a directory and any missing parents, returning the
// service's boolean.
func (c *Client) MkDirs(ctx context.Context, p, permission string) (bool, error) {
	rp, err := c.resolve(p)
	if err != nil {
		return false, err
	}
	params := url.Values{}
	if permission != "" {
		params.Set("permission", permission)
	}
	return c.boolOp(ctx, protocol.MkDirs, rp, params)
}

// Create writes a new file from data, streaming it to the data-node the
// name-node redirects to. data is consumed exactly once and never fully
// buffered. Fails with a file-exists error (check IsFileExists) when the
// target exists and Overwrite is unset. A retried create after an
// unconfirmed success re-runs with the same overwrite semantics, so the
// contract is at-least-once.
func (c *Client) Create(ctx context.Context, p string, data io.Reader, opts CreateOptions) error {
	rp, err := c.resolve(p)
	if err != nil {
		return err
	}
	params := url.Values{}
	params.Set("overwrite", strconv.FormatBool(opts.Overwrite))
	if opts.Permission != "" {
		params.Set("permission", opts.Permission)
	}
	if opts.BlockSize > 0 {
		params.Set("blocksize", strconv.FormatInt(opts.BlockSize, 10))
	}
	if opts.Replication > 0 {
		params.Set("replication", strconv.Itoa(opts.Replication))
	}
	if opts.BufferSize > 0 {
		params.Set("buffersize", strconv.Itoa(opts.BufferSize))
	}

	var body io.Reader
	if data != nil {
		body = &uploadCountingReader{r: data}
	}
	resp, err := c.session.execute(ctx, protocol.Create, rp, params, body)
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

// Append appends data to an existing file. The target must already exist
// as a file; a missing target yields a remote not-found error.
func (c *Client) Append(ctx context.Context, p string, data io.Reader) error {
	rp, err := c.resolve(p)
	if err != nil {
		return err
	}
	var body io.Reader
	if data != nil {
		body = &uploadCountingReader{r: data}
	}
	resp, err := c.session.execute(ctx, protocol.Append, rp, nil, body)
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

// Open returns a lazy, single-pass stream of file content backed by the
// data-node response. The stream is not restartable; the caller must close
// it.
func (c *Client) Open(ctx context.Context, p string, opts OpenOptions) (io.ReadCloser, error) {
	rp, err := c.resolve(p)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	if opts.Offset > 0 {
		params.Set("offset", strconv.FormatInt(opts.Offset, 10))
	}
	if opts.Length > 0 {
		params.Set("length", strconv.FormatInt(opts.Length, 10))
	}
	if opts.BufferSize > 0 {
		params.Set("buffersize", strconv.Itoa(opts.BufferSize))
	}
	resp, err := c.session.execute(ctx, protocol.Open, rp, params, nil)
	if err != nil {
		return nil, err
	}
	return &downloadCountingReader{rc: resp.Body}, nil
}

// Delete removes a path. Deleting a missing path returns false, not an
// error; deleting a non-empty directory without recursive is a remote
// error.
func (c *Client) Delete(ctx context.Context, p string, recursive bool) (bool, error) {
	rp, err := c.resolve(p)
	if err != nil {
		return false, err
	}
	params := url.Values{}
	params.Set("recursive", strconv.FormatBool(recursive))
	return c.boolOp(ctx, protocol.Delete, rp, params)
}

// Rename moves a path. Returns false, not an error, when the service
// refuses because the destination already exists.
func (c *Client) Rename(ctx context.Context, p, destination string) (bool, error) {
	rp, err := c.resolve(p)
	if err != nil {
		return false, err
	}
	rd, err := c.resolve(destination)
	if err != nil {
		return false, err
	}
	params := url.Values{}
	params.Set("destination", rd)
	return c.boolOp(ctx, protocol.Rename, rp, params)
}

// Checksum returns the data-node-computed checksum of a file. Directories
// yield a remote error.
func (c *Client) Checksum(ctx context.Context, p string) (*protocol.FileChecksum, error) {
	rp, err := c.resolve(p)
	if err != nil {
		return nil, err
	}
	resp, err := c.session.execute(ctx, protocol.GetFileChecksum, rp, nil, nil)
	if err != nil {
		return nil, err
	}
	var body protocol.FileChecksumResponse
	if err := decodeJSON(resp, &body); err != nil {
		return nil, err
	}
	return &body.FileChecksum, nil
}

// HomeDirectory returns the remote home directory of the authenticated
// user.
func (c *Client) HomeDirectory(ctx context.Context) (string, error) {
	resp, err := c.session.execute(ctx, protocol.GetHomeDirectory, "/", nil, nil)
	if err != nil {
		return "", err
	}
	var body protocol.PathResponse
	if err := decodeJSON(resp, &body); err != nil {
		return "", err
	}
	return body.Path, nil
}

// SetOwner changes the owner and/or group of a path. At least one of the
// two must be non-empty.
func (c *Client) SetOwner(ctx context.Context, p, owner, group string) error {
	if owner == "" && group == "" {
		return fmt.Errorf("%w: setowner needs an owner or a group", ErrInvalidArgument)
	}
	rp, err := c.resolve(p)
	if err != nil {
		return err
	}
	params := url.Values{}
	if owner != "" {
		params.Set("owner", owner)
	}
	if group != "" {
		params.Set("group", group)
	}
	resp, err := c.session.execute(ctx, protocol.SetOwner, rp, params, nil)
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

// SetPermission changes the octal permission of a path.
func (c *Client) SetPermission(ctx context.Context, p, permission string) error {
	rp, err := c.resolve(p)
	if err != nil {
		return err
	}
	params := url.Values{}
	params.Set("permission", permission)
	resp, err := c.session.execute(ctx, protocol.SetPermission, rp, params, nil)
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

// SetReplication changes the replication factor of a file.
func (c *Client) SetReplication(ctx context.Context, p string, replication int) (bool, error) {
	rp, err := c.resolve(p)
	if err != nil {
		return false, err
	}
	params := url.Values{}
	params.Set("replication", strconv.Itoa(replication))
	return c.boolOp(ctx, protocol.SetReplication, rp, params)
}

// SetTimes changes modification and/or access time, in milliseconds since
// the epoch. Pass -1 to leave a field unchanged.
func (c *Client) SetTimes(ctx context.Context, p string, modificationTime, accessTime int64) error {
	rp, err := c.resolve(p)
	if err != nil {
		return err
	}
	params := url.Values{}
	if modificationTime >= 0 {
		params.Set("modificationtime", strconv.FormatInt(modificationTime, 10))
	}
	if accessTime >= 0 {
		params.Set("accesstime", strconv.FormatInt(accessTime, 10))
	}
	resp, err := c.session.execute(ctx, protocol.SetTimes, rp, params, nil)
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

// SkipDir can be returned from a WalkFunc to skip a directory's children.
var SkipDir = fs.SkipDir

// WalkFunc is called once per entry visited by Walk. p is the resolved
// remote path of the entry.
type WalkFunc func(p string, status *protocol.FileStatus) error

// Walk traverses the remote tree rooted at p depth-first, calling fn for
// the root and every entry below it. Directory listings are fetched on the
// way down; entries within one directory are visited in service order.
func (c *Client) Walk(ctx context.Context, p string, fn WalkFunc) error {
	rp, err := c.resolve(p)
	if err != nil {
		return err
	}
	status, err := c.Status(ctx, rp)
	if err != nil {
		return err
	}
	err = c.walk(ctx, rp, status, fn)
	if errors.Is(err, SkipDir) {
		return nil
	}
	return err
}

func (c *Client) walk(ctx context.Context, p string, status *protocol.FileStatus, fn WalkFunc) error {
	if err := fn(p, status); err != nil {
		if status.IsDir() && errors.Is(err, SkipDir) {
			return nil
		}
		return err
	}
	if !status.IsDir() {
		return nil
	}

	entries, err := c.List(ctx, p)
	if err != nil {
		return err
	}
	for i := range entries {
		child := path.Join(p, entries[i].PathSuffix)
		if err := c.walk(ctx, child, &entries[i], fn); err != nil {
			return err
		}
	}
	return nil
}

// boolOp runs an operation whose body is a plain boolean response.
func (c *Client) boolOp(ctx context.Context, op protocol.Operation, rp string, params url.Values) (bool, error) {
	resp, err := c.session.execute(ctx, op, rp, params, nil)
	if err != nil {
		return false, err
	}
	var body protocol.BooleanResponse
	if err := decodeJSON(resp, &body); err != nil {
		return false, err
	}
	return body.Boolean, nil
}

func decodeJSON(resp *http.Response, v any) error {
	defer drain(resp)
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decoding body: %v", ErrProtocol, err)
	}
	return nil
}

// uploadCountingReader feeds request bodies while counting bytes sent.
type uploadCountingReader struct {
	r io.Reader
}

func (u *uploadCountingReader) Read(p []byte) (int, error) {
	n, err := u.r.Read(p)
	metrics.AddBytesUploaded(int64(n))
	return n, err
}

// downloadCountingReader wraps data-node response bodies, counting bytes
// received.
type downloadCountingReader struct {
	rc io.ReadCloser
}

func (d *downloadCountingReader) Read(p []byte) (int, error) {
	n, err := d.rc.Read(p)
	metrics.AddBytesDownloaded(int64(n))
	return n, err
}

func (d *downloadCountingReader) Close() error {
	return d.rc.Close()
}
