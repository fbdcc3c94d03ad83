package logging

import (
	"fmt"
	"os"
	"sync"
)

const defaultLogCapMB = 16

// fileSink writes log output to a single file and truncates it back to empty
// whenever the next write would push it past the cap. The tracker runs
// unattended for long stretches, so the log file must not grow without bound.
type fileSink struct {
	mu   sync.Mutex
	path string
	cap  int64
	file *os.File
	size int64
}

func newFileSink(path string, capMB int) (*fileSink, error) {
	if capMB <= 0 {
		capMB = defaultLogCapMB
	}
	s := &fileSink{path: path, cap: int64(capMB) << 20}
	if err := s.open(os.O_APPEND); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *fileSink) open(mode int) error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|mode, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	s.file = f
	s.size = info.Size()
	return nil
}

func (s *fileSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		if err := s.open(os.O_APPEND); err != nil {
			return 0, err
		}
	}
	if s.size+int64(len(p)) > s.cap {
		_ = s.file.Close()
		if err := s.open(os.O_TRUNC); err != nil {
			return 0, err
		}
	}
	n, err := s.file.Write(p)
	s.size += int64(n)
	return n, err
}

func (s *fileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
