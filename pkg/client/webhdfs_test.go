package client

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/politusanalytics/hdfs/pkg/retry"
)

// fakeHDFS is an in-memory WebHDFS server: a name-node front that redirects
// data-bearing verbs back to itself with a datanode marker, plus a flat
// file/dir store.
type fakeHDFS struct {
	mu    sync.Mutex
	files map[string][]byte
	dirs  map[string]bool
	order []string // creation order, for LISTSTATUS

	standby bool           // always answer with a StandbyException
	fail    map[string]int // path → remaining 500 responses (-1 = always)

	lastUser string

	srv *httptest.Server
}

func newFakeHDFS(t *testing.T) *fakeHDFS {
	f := &fakeHDFS{
		files: make(map[string][]byte),
		dirs:  map[string]bool{"/": true},
		fail:  make(map[string]int),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeHDFS) url() string {
	return f.srv.URL
}

func (f *fakeHDFS) content(p string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[p]
	return data, ok
}

func (f *fakeHDFS) addDir(p string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mkdirsLocked(p)
}

func (f *fakeHDFS) addFile(p string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mkdirsLocked(path.Dir(p))
	f.files[p] = data
	f.order = append(f.order, p)
}

func (f *fakeHDFS) failPath(p string, times int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[p] = times
}

func (f *fakeHDFS) mkdirsLocked(p string) {
	for p != "/" {
		if !f.dirs[p] {
			f.dirs[p] = true
			f.order = append(f.order, p)
		}
		p = path.Dir(p)
	}
}

func (f *fakeHDFS) handle(w http.ResponseWriter, r *http.Request) {
	p := strings.TrimPrefix(r.URL.Path, "/webhdfs/v1")
	if p == "" {
		p = "/"
	}
	q := r.URL.Query()
	op := q.Get("op")

	f.mu.Lock()
	defer f.mu.Unlock()

	if u := q.Get("user.name"); u != "" {
		f.lastUser = u
	}

	if f.standby {
		writeException(w, 403, "StandbyException", "Operation category READ is not supported in state standby")
		return
	}
	if n, ok := f.fail[p]; ok && n != 0 {
		if n > 0 {
			f.fail[p] = n - 1
		}
		writeException(w, 500, "RetriableException", "injected failure")
		return
	}

	// Data-bearing verbs redirect once, then run against the "data-node".
	redirected := q.Get("datanode") == "true"
	switch op {
	case "CREATE", "APPEND", "OPEN", "GETFILECHECKSUM":
		if !redirected {
			loc := f.srv.URL + r.URL.Path + "?" + encodeWith(q, "datanode", "true")
			w.Header().Set("Location", loc)
			w.WriteHeader(http.StatusTemporaryRedirect)
			return
		}
	}

	switch op {
	case "GETFILESTATUS":
		status, ok := f.statusLocked(p)
		if !ok {
			writeException(w, 404, "FileNotFoundException", "File does not exist: "+p)
			return
		}
		writeJSON(w, map[string]any{"FileStatus": status})

	case "LISTSTATUS":
		if _, isFile := f.files[p]; isFile {
			status, _ := f.statusLocked(p)
			writeJSON(w, map[string]any{"FileStatuses": map[string]any{"FileStatus": []any{status}}})
			return
		}
		if !f.dirs[p] {
			writeException(w, 404, "FileNotFoundException", "File does not exist: "+p)
			return
		}
		var entries []map[string]any
		for _, child := range f.order {
			if path.Dir(child) != p || child == p {
				continue
			}
			status, _ := f.statusLocked(child)
			status["pathSuffix"] = path.Base(child)
			entries = append(entries, status)
		}
		writeJSON(w, map[string]any{"FileStatuses": map[string]any{"FileStatus": entries}})

	case "GETCONTENTSUMMARY":
		if !f.dirs[p] {
			if _, ok := f.files[p]; !ok {
				writeException(w, 404, "FileNotFoundException", "File does not exist: "+p)
				return
			}
		}
		var files, length int64
		for fp, data := range f.files {
			if strings.HasPrefix(fp, p+"/") || p == "/" {
				files++
				length += int64(len(data))
			}
		}
		writeJSON(w, map[string]any{"ContentSummary": map[string]any{
			"fileCount": files, "directoryCount": 1, "length": length,
		}})

	case "MKDIRS":
		if _, isFile := f.files[p]; isFile {
			writeException(w, 403, "ParentNotDirectoryException", p+" is a file")
			return
		}
		f.mkdirsLocked(p)
		writeJSON(w, map[string]any{"boolean": true})

	case "CREATE":
		data, _ := io.ReadAll(r.Body)
		if f.dirs[p] {
			writeException(w, 403, "FileAlreadyExistsException", p+" is a directory")
			return
		}
		if _, exists := f.files[p]; exists && q.Get("overwrite") != "true" {
			writeException(w, 403, "FileAlreadyExistsException", "File already exists: "+p)
			return
		}
		if _, exists := f.files[p]; !exists {
			f.order = append(f.order, p)
		}
		f.mkdirsLocked(path.Dir(p))
		f.files[p] = data
		w.WriteHeader(http.StatusCreated)

	case "APPEND":
		data, _ := io.ReadAll(r.Body)
		existing, ok := f.files[p]
		if !ok {
			writeException(w, 404, "FileNotFoundException", "File does not exist: "+p)
			return
		}
		f.files[p] = append(existing, data...)

	case "OPEN":
		data, ok := f.files[p]
		if !ok {
			writeException(w, 404, "FileNotFoundException", "File does not exist: "+p)
			return
		}
		offset, _ := strconv.ParseInt(q.Get("offset"), 10, 64)
		if offset > int64(len(data)) {
			offset = int64(len(data))
		}
		data = data[offset:]
		if l := q.Get("length"); l != "" {
			length, _ := strconv.ParseInt(l, 10, 64)
			if length < int64(len(data)) {
				data = data[:length]
			}
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(data)

	case "DELETE":
		if _, ok := f.files[p]; ok {
			delete(f.files, p)
			f.removeFromOrder(p)
			writeJSON(w, map[string]any{"boolean": true})
			return
		}
		if !f.dirs[p] {
			writeJSON(w, map[string]any{"boolean": false})
			return
		}
		if f.hasChildrenLocked(p) && q.Get("recursive") != "true" {
			writeException(w, 403, "PathIsNotEmptyDirectoryException", p+" is non empty")
			return
		}
		for fp := range f.files {
			if strings.HasPrefix(fp, p+"/") {
				delete(f.files, fp)
				f.removeFromOrder(fp)
			}
		}
		for dp := range f.dirs {
			if dp == p || strings.HasPrefix(dp, p+"/") {
				delete(f.dirs, dp)
				f.removeFromOrder(dp)
			}
		}
		writeJSON(w, map[string]any{"boolean": true})

	case "RENAME":
		dst := q.Get("destination")
		if _, ok := f.files[dst]; ok {
			writeJSON(w, map[string]any{"boolean": false})
			return
		}
		if f.dirs[dst] {
			writeJSON(w, map[string]any{"boolean": false})
			return
		}
		data, ok := f.files[p]
		if !ok {
			writeException(w, 404, "FileNotFoundException", "File does not exist: "+p)
			return
		}
		delete(f.files, p)
		f.removeFromOrder(p)
		f.mkdirsLocked(path.Dir(dst))
		f.files[dst] = data
		f.order = append(f.order, dst)
		writeJSON(w, map[string]any{"boolean": true})

	case "GETFILECHECKSUM":
		data, ok := f.files[p]
		if !ok {
			if f.dirs[p] {
				writeException(w, 403, "AccessControlException", "checksum of a directory: "+p)
				return
			}
			writeException(w, 404, "FileNotFoundException", "File does not exist: "+p)
			return
		}
		writeJSON(w, map[string]any{"FileChecksum": map[string]any{
			"algorithm": "MD5-of-0MD5-of-512CRC32C",
			"bytes":     hex.EncodeToString([]byte(fmt.Sprintf("%08x", len(data)))),
			"length":    28,
		}})

	case "GETHOMEDIRECTORY":
		user := f.lastUser
		if user == "" {
			user = "hdfs"
		}
		writeJSON(w, map[string]any{"Path": "/user/" + user})

	default:
		writeException(w, 400, "IllegalArgumentException", "unsupported op "+op)
	}
}

func (f *fakeHDFS) statusLocked(p string) (map[string]any, bool) {
	if data, ok := f.files[p]; ok {
		return map[string]any{
			"pathSuffix": "", "type": "FILE", "length": len(data),
			"owner": "tester", "group": "supergroup", "permission": "644",
			"modificationTime": time.Now().UnixMilli(), "replication": 3,
			"blockSize": 134217728,
		}, true
	}
	if f.dirs[p] {
		return map[string]any{
			"pathSuffix": "", "type": "DIRECTORY", "length": 0,
			"owner": "tester", "group": "supergroup", "permission": "755",
			"modificationTime": time.Now().UnixMilli(), "replication": 0,
		}, true
	}
	return nil, false
}

func (f *fakeHDFS) hasChildrenLocked(p string) bool {
	for fp := range f.files {
		if strings.HasPrefix(fp, p+"/") {
			return true
		}
	}
	for dp := range f.dirs {
		if strings.HasPrefix(dp, p+"/") {
			return true
		}
	}
	return false
}

func (f *fakeHDFS) removeFromOrder(p string) {
	for i, o := range f.order {
		if o == p {
			f.order = append(f.order[:i], f.order[i+1:]...)
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeException(w http.ResponseWriter, status int, class, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"RemoteException": map[string]any{
			"exception":     class,
			"javaClassName": "org.apache.hadoop." + class,
			"message":       msg,
		},
	})
}

func encodeWith(q map[string][]string, key, value string) string {
	out := make(map[string][]string, len(q)+1)
	for k, vs := range q {
		out[k] = vs
	}
	out[key] = []string{value}
	var b strings.Builder
	first := true
	for k, vs := range out {
		for _, v := range vs {
			if !first {
				b.WriteString("&")
			}
			first = false
			b.WriteString(k + "=" + v)
		}
	}
	return b.String()
}

func fastRetry() retry.Config {
	return retry.Config{
		MaxAttempts: 3,
		InitialWait: time.Millisecond,
		MaxWait:     time.Millisecond,
	}
}

func testClient(t *testing.T, urls []string, root string) *Client {
	t.Helper()
	c, err := New(Config{
		URLs:  urls,
		Root:  root,
		User:  "tester",
		Retry: fastRetry(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}
