package sink

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileSink appends one audit line per accepted instruction to a single
// file, in the exact order instructions were applied.
type FileSink struct {
	path string
	file *os.File
}

func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

func (s *FileSink) Open() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	s.file = f
	return nil
}

func (s *FileSink) Write(kind string, rank int, side string, price, qty float64) error {
	if s.file == nil {
		return fmt.Errorf("%w: not open", ErrUnavailable)
	}
	if _, err := s.file.WriteString(Line(kind, rank, side, price, qty)); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *FileSink) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
