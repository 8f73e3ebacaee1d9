package objhash

import (
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/specialistvlad/bibixgo/internal/value"
	"google.golang.org/protobuf/encoding/protowire"
	"lukechampine.com/blake3"
)

// FileHash is the content hash of one input path.
type FileHash struct {
	Path string
	// Hash is empty for paths that do not exist.
	Hash []byte
}

// InputHashes are the hashes of every path reachable from a rule's
// arguments, sorted by path.
type InputHashes []FileHash

// Encode returns the canonical encoding of the hashes.
func (h InputHashes) Encode() []byte {
	var b []byte
	for _, f := range h {
		var entry []byte
		entry = appendString(entry, 1, f.Path)
		if len(f.Hash) > 0 {
			entry = appendBytes(entry, 2, f.Hash)
		}
		b = appendBytes(b, 1, entry)
	}
	return b
}

// String is the hex digest of the encoded hashes. Two builds saw the same
// inputs if and only if their strings are equal.
func (h InputHashes) String() string {
	return Hex(h.Encode())
}

// ObjectID combines a target id with the input hashes of one build.
func ObjectID(targetIDData []byte, inputs InputHashes) string {
	var b []byte
	b = appendBytes(b, 1, targetIDData)
	b = appendBytes(b, 2, inputs.Encode())
	return Hex(b)
}

type fileStamp struct {
	path    string
	size    int64
	modTime time.Time
	dir     bool
}

// FileHashStore hashes files and directories, remembering recent results
// keyed by path, size and modification time.
type FileHashStore struct {
	cache *lru.Cache[fileStamp, []byte]
}

// NewFileHashStore creates a store remembering up to size hashes.
func NewFileHashStore(size int) (*FileHashStore, error) {
	cache, err := lru.New[fileStamp, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create file hash cache: %w", err)
	}
	return &FileHashStore{cache: cache}, nil
}

// Hash returns the content hash of path, or nil if it does not exist.
// Directory hashes cover the relative names and hashes of every entry.
func (s *FileHashStore) Hash(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return s.hashDirectory(path)
	}
	return s.hashFile(path, info)
}

func (s *FileHashStore) hashFile(path string, info os.FileInfo) ([]byte, error) {
	stamp := fileStamp{path: path, size: info.Size(), modTime: info.ModTime()}
	if h, ok := s.cache.Get(stamp); ok {
		return h, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	hasher := blake3.New(32, nil)
	if _, err := io.Copy(hasher, f); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	h := hasher.Sum(nil)
	s.cache.Add(stamp, h)
	return h, nil
}

func (s *FileHashStore) hashDirectory(dir string) ([]byte, error) {
	type entry struct {
		rel  string
		hash []byte
	}
	var entries []entry
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		var h []byte
		switch {
		case d.Type()&fs.ModeSymlink != 0:
			// Links are hashed by their target and never followed, so
			// links to directories, dangling links and link cycles all hash.
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			h = Sum([]byte("symlink:" + filepath.ToSlash(target)))
		case !d.Type().IsRegular():
			h = Sum([]byte("irregular:" + d.Type().String()))
		default:
			info, err := d.Info()
			if err != nil {
				return err
			}
			if h, err = s.hashFile(path, info); err != nil {
				return err
			}
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		entries = append(entries, entry{rel: filepath.ToSlash(rel), hash: h})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].rel < entries[j].rel })

	var b []byte
	for _, e := range entries {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, e.rel)
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, e.hash)
	}
	return Sum(b), nil
}

// InputHashes collects and hashes every path inside the arguments. Paths
// under mainBase are recorded relative to it.
func (s *FileHashStore) InputHashes(args map[string]value.Value, mainBase string) (InputHashes, error) {
	paths := map[string]bool{}
	for _, v := range args {
		collectPaths(v, paths)
	}
	sorted := make([]string, 0, len(paths))
	for p := range paths {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)

	hashes := make(InputHashes, 0, len(sorted))
	for _, p := range sorted {
		h, err := s.Hash(p)
		if err != nil {
			return nil, err
		}
		recorded := string(RelativizePaths(value.Path(p), mainBase).(value.Path))
		hashes = append(hashes, FileHash{Path: recorded, Hash: h})
	}
	return hashes, nil
}

func collectPaths(v value.Value, into map[string]bool) {
	switch v := v.(type) {
	case value.Path:
		into[string(v)] = true
	case value.File:
		into[string(v)] = true
	case value.Directory:
		into[string(v)] = true
	case value.List:
		for _, e := range v.Values {
			collectPaths(e, into)
		}
	case value.Set:
		for _, e := range v.Values {
			collectPaths(e, into)
		}
	case value.Tuple:
		for _, e := range v.Values {
			collectPaths(e, into)
		}
	case value.NamedTuple:
		for _, p := range v.Pairs {
			collectPaths(p.Value, into)
		}
	case value.ClassInstance:
		for _, f := range v.Fields {
			collectPaths(f, into)
		}
	case value.NClassInstance:
		for _, f := range v.Fields {
			collectPaths(f, into)
		}
	}
}

// HexHash formats a file hash for logs.
func HexHash(h []byte) string {
	if h == nil {
		return "missing"
	}
	return hex.EncodeToString(h)
}
