package site

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/diplodoc-platform/testpack/internal/obs"
	"github.com/diplodoc-platform/testpack/internal/s3client"
)

const s3FetchTimeout = 10 * time.Second

// ObjectStore is the subset of the S3 client the site root needs.
type ObjectStore interface {
	GetObject(ctx context.Context, key string) ([]byte, s3client.ObjectInfo, error)
	ListObjects(ctx context.Context, prefix string) ([]s3client.ObjectInfo, error)
}

type cachedObject struct {
	data    []byte
	modTime time.Time
}

// S3FS exposes a bucket prefix as a read-only fs.FS. Object bodies are cached
// after the first read; the key listing is taken by Refresh.
type S3FS struct {
	store  ObjectStore
	prefix string

	mu    sync.RWMutex
	cache map[string]cachedObject
	files map[string]s3client.ObjectInfo
	dirs  map[string][]fs.DirEntry
}

var (
	_ fs.FS        = (*S3FS)(nil)
	_ fs.ReadDirFS = (*S3FS)(nil)
)

// NewS3FS lists prefix once and returns the file system.
func NewS3FS(ctx context.Context, store ObjectStore, prefix string) (*S3FS, error) {
	s := &S3FS{
		store:  store,
		prefix: strings.Trim(prefix, "/"),
		cache:  make(map[string]cachedObject),
	}
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Refresh reloads the key listing and drops cached bodies.
func (s *S3FS) Refresh(ctx context.Context) error {
	objects, err := s.store.ListObjects(ctx, s.keyPrefix())
	if err != nil {
		return err
	}

	files := make(map[string]s3client.ObjectInfo, len(objects))
	children := make(map[string]map[string]bool)
	addChild := func(dir, child string) {
		if children[dir] == nil {
			children[dir] = make(map[string]bool)
		}
		children[dir][child] = true
	}
	children["."] = map[string]bool{}

	for _, obj := range objects {
		name := strings.TrimPrefix(obj.Key, s.keyPrefix())
		if name == "" || strings.HasSuffix(name, "/") || !fs.ValidPath(name) {
			continue
		}
		files[name] = obj
		for p := name; p != "."; p = path.Dir(p) {
			addChild(path.Dir(p), p)
		}
	}

	dirs := make(map[string][]fs.DirEntry, len(children))
	for dir, set := range children {
		entries := make([]fs.DirEntry, 0, len(set))
		for child := range set {
			if info, ok := files[child]; ok {
				entries = append(entries, fs.FileInfoToDirEntry(objectFileInfo{name: path.Base(child), size: info.Size, modTime: info.LastModified}))
			} else {
				entries = append(entries, fs.FileInfoToDirEntry(objectFileInfo{name: path.Base(child), dir: true}))
			}
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		dirs[dir] = entries
	}

	s.mu.Lock()
	s.files = files
	s.dirs = dirs
	s.cache = make(map[string]cachedObject)
	s.mu.Unlock()

	obs.Pkg("site").Info("s3_listing_loaded", "bucket_prefix", s.prefix, "files", len(files))
	return nil
}

// Open implements fs.FS.
func (s *S3FS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}

	s.mu.RLock()
	entries, isDir := s.dirs[name]
	s.mu.RUnlock()
	if isDir {
		return &s3Dir{info: objectFileInfo{name: path.Base(name), dir: true}, entries: entries}, nil
	}

	obj, err := s.readCached(name)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	return &s3File{
		Reader: bytes.NewReader(obj.data),
		info:   objectFileInfo{name: path.Base(name), size: int64(len(obj.data)), modTime: obj.modTime},
	}, nil
}

// ReadDir implements fs.ReadDirFS.
func (s *S3FS) ReadDir(name string) ([]fs.DirEntry, error) {
	s.mu.RLock()
	entries, ok := s.dirs[name]
	s.mu.RUnlock()
	if !ok {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	out := make([]fs.DirEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (s *S3FS) keyPrefix() string {
	if s.prefix == "" {
		return ""
	}
	return s.prefix + "/"
}

func (s *S3FS) readCached(name string) (cachedObject, error) {
	s.mu.RLock()
	obj, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return obj, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s3FetchTimeout)
	defer cancel()

	data, info, err := s.store.GetObject(ctx, s.keyPrefix()+name)
	if err != nil {
		if errors.Is(err, s3client.ErrObjectNotFound) {
			return cachedObject{}, fs.ErrNotExist
		}
		return cachedObject{}, err
	}

	obj = cachedObject{data: data, modTime: info.LastModified}
	s.mu.Lock()
	s.cache[name] = obj
	s.mu.Unlock()
	return obj, nil
}

type objectFileInfo struct {
	name    string
	size    int64
	modTime time.Time
	dir     bool
}

func (i objectFileInfo) Name() string       { return i.name }
func (i objectFileInfo) Size() int64        { return i.size }
func (i objectFileInfo) ModTime() time.Time { return i.modTime }
func (i objectFileInfo) IsDir() bool        { return i.dir }
func (i objectFileInfo) Sys() any           { return nil }
func (i objectFileInfo) Mode() fs.FileMode {
	if i.dir {
		return fs.ModeDir | 0o555
	}
	return 0o444
}

type s3File struct {
	*bytes.Reader
	info objectFileInfo
}

func (f *s3File) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *s3File) Close() error               { return nil }

type s3Dir struct {
	info    objectFileInfo
	entries []fs.DirEntry
	offset  int
}

func (d *s3Dir) Stat() (fs.FileInfo, error) { return d.info, nil }
func (d *s3Dir) Close() error               { return nil }
func (d *s3Dir) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.info.name, Err: errors.New("is a directory")}
}

func (d *s3Dir) ReadDir(n int) ([]fs.DirEntry, error) {
	rest := d.entries[d.offset:]
	if n <= 0 {
		d.offset = len(d.entries)
		return rest, nil
	}
	if len(rest) == 0 {
		return nil, io.EOF
	}
	if n > len(rest) {
		n = len(rest)
	}
	d.offset += n
	return rest[:n], nil
}
