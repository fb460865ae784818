package palettegen

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zip"
)

// sink receives the encoded images produced by a run. Implementations must
// be safe for concurrent use.
type sink interface {
	WriteFile(name string, b []byte) error
	Close() error
}

type dirSink struct {
	dir string
}

func newDirSink(dir string) (*dirSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &dirSink{dir: dir}, nil
}

func (s *dirSink) WriteFile(name string, b []byte) error {
	return os.WriteFile(filepath.Join(s.dir, name), b, 0644)
}

func (s *dirSink) Close() error {
	return nil
}

type zipSink struct {
	mu sync.Mutex
	f  *os.File
	zw *zip.Writer
}

func newZipSink(file string) (*zipSink, error) {
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return nil, err
	}
	f, err := os.Create(file)
	if err != nil {
		return nil, err
	}
	return &zipSink{
		f:  f,
		zw: zip.NewWriter(f),
	}, nil
}

func (s *zipSink) WriteFile(name string, b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.zw.CreateHeader(&zip.FileHeader{
		Name:   name,
		Method: zip.Deflate,
	})
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func (s *zipSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.zw.Close(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}

// multiSink writes every file to each of its sinks
type multiSink []sink

func (m multiSink) WriteFile(name string, b []byte) error {
	for _, s := range m {
		if err := s.WriteFile(name, b); err != nil {
			return err
		}
	}
	return nil
}

func (m multiSink) Close() error {
	var first error
	for _, s := range m {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
