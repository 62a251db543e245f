package schema

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"
)

// Document is one raw category file.
type Document struct {
	Source string
	Data   []byte
}

// Source supplies raw category documents in load order.
type Source interface {
	Documents() ([]Document, error)
}

// DefaultExtensions are the file extensions FileSource reads.
var DefaultExtensions = []string{".yaml", ".yml", ".json"}

// DefaultMaxFileSize bounds a single category file.
const DefaultMaxFileSize int64 = 1 << 20

// FileSource reads category documents from a file or a directory tree. Files in a
// directory are returned in lexical path order.
type FileSource struct {
	Path        string
	Extensions  []string
	SkipHidden  bool
	MaxFileSize int64
}

// NewFileSource creates a file source with default settings.
func NewFileSource(path string) *FileSource {
	return &FileSource{
		Path:        path,
		Extensions:  DefaultExtensions,
		SkipHidden:  true,
		MaxFileSize: DefaultMaxFileSize,
	}
}

// Documents implements Source.
func (s *FileSource) Documents() ([]Document, error) {
	info, err := os.Stat(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Path: s.Path, Message: "path not found", Cause: err}
		}
		return nil, &LoadError{Path: s.Path, Message: "failed to access path", Cause: err}
	}

	if !info.IsDir() {
		doc, err := s.readFile(s.Path)
		if err != nil {
			return nil, err
		}
		return []Document{doc}, nil
	}

	paths, err := s.collect()
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, &LoadError{Path: s.Path, Message: "no rule files found in directory"}
	}

	docs := make([]Document, 0, len(paths))
	for _, path := range paths {
		doc, err := s.readFile(path)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Matches reports whether path has one of the source's extensions. The watcher
// uses it to ignore unrelated files.
func (s *FileSource) Matches(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, valid := range s.Extensions {
		if ext == strings.ToLower(valid) {
			return true
		}
	}
	return false
}

func (s *FileSource) collect() ([]string, error) {
	var paths []string

	err := filepath.WalkDir(s.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if s.SkipHidden && strings.HasPrefix(d.Name(), ".") && path != s.Path {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !s.Matches(path) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, &LoadError{Path: s.Path, Message: "failed to walk directory", Cause: err}
	}

	slices.Sort(paths)
	return paths, nil
}

func (s *FileSource) readFile(path string) (Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Document{}, &LoadError{Path: path, Message: "failed to access file", Cause: err}
	}
	if !info.Mode().IsRegular() {
		return Document{}, &LoadError{Path: path, Message: "not a regular file"}
	}
	if s.MaxFileSize > 0 && info.Size() > s.MaxFileSize {
		return Document{}, &LoadError{
			Path:    path,
			Message: fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", info.Size(), s.MaxFileSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, &LoadError{Path: path, Message: "failed to read file", Cause: err}
	}
	if !utf8.Valid(data) {
		return Document{}, &LoadError{Path: path, Message: "file contains invalid UTF-8 encoding"}
	}

	return Document{Source: path, Data: data}, nil
}

// MemorySource holds category documents in memory, in insertion order.
type MemorySource struct {
	mu   sync.RWMutex
	docs []Document
}

// NewMemorySource creates a memory source from name/data pairs.
func NewMemorySource(docs ...Document) *MemorySource {
	return &MemorySource{docs: slices.Clone(docs)}
}

// Put adds or replaces the document stored under name.
func (s *MemorySource) Put(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.docs {
		if s.docs[i].Source == name {
			s.docs[i].Data = slices.Clone(data)
			return
		}
	}
	s.docs = append(s.docs, Document{Source: name, Data: slices.Clone(data)})
}

// Documents implements Source.
func (s *MemorySource) Documents() ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.docs), nil
}
