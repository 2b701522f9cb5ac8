package results

import (
	"errors"
	"fmt"
	"os"
	"unsafe"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sys/unix"
)

const slotSize = int(unsafe.Sizeof(int32(0)))

// ErrSizeMismatch is returned when an existing buffer file does not hold the
// expected number of slots.
var ErrSizeMismatch = errors.New("shared buffer size mismatch")

// Shared is a buffer backed by a MAP_SHARED file mapping, so that writes made
// by worker processes are visible to the process that created it.
type Shared struct {
	path  string
	file  *os.File
	data  []byte
	slots []int32
	owner bool
}

// DefaultDir returns /dev/shm when available, falling back to the OS temp dir.
func DefaultDir() string {
	if info, err := os.Stat("/dev/shm"); err == nil && info.IsDir() {
		return "/dev/shm"
	}
	return os.TempDir()
}

// CreateShared allocates a zeroed buffer of n slots in a new file under dir.
// The caller owns the file; Close removes it.
func CreateShared(dir string, n int) (*Shared, error) {
	if n < 0 {
		return nil, fmt.Errorf("create shared buffer: negative size %d", n)
	}
	if dir == "" {
		dir = DefaultDir()
	}
	f, err := os.CreateTemp(dir, "sentiment-*.buf")
	if err != nil {
		return nil, fmt.Errorf("create shared buffer file: %w", err)
	}
	if err := f.Truncate(int64(n * slotSize)); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("size shared buffer file: %w", err)
	}
	s, err := mapFile(f, n)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, err
	}
	s.owner = true
	return s, nil
}

// OpenShared maps an existing buffer file created by CreateShared.
func OpenShared(path string, n int) (*Shared, error) {
	// #nosec G304 -- the path is handed over by the parent process.
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open shared buffer: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat shared buffer: %w", err)
	}
	if info.Size() != int64(n*slotSize) {
		_ = f.Close()
		return nil, fmt.Errorf("%s holds %d bytes, want %d: %w", path, info.Size(), n*slotSize, ErrSizeMismatch)
	}
	s, err := mapFile(f, n)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return s, nil
}

func mapFile(f *os.File, n int) (*Shared, error) {
	s := &Shared{path: f.Name(), file: f}
	if n == 0 {
		return s, nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, n*slotSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap shared buffer: %w", err)
	}
	s.data = data
	s.slots = unsafe.Slice((*int32)(unsafe.Pointer(&data[0])), n)
	return s, nil
}

// Path is the backing file, passed to worker processes.
func (s *Shared) Path() string { return s.path }

// Store implements Sink.
func (s *Shared) Store(i int, score int32) { s.slots[i] = score }

// Load implements Sink.
func (s *Shared) Load(i int) int32 { return s.slots[i] }

// Len implements Sink.
func (s *Shared) Len() int { return len(s.slots) }

// Close unmaps the buffer. The creating process also removes the file.
func (s *Shared) Close() error {
	var result *multierror.Error
	if s.data != nil {
		if err := unix.Munmap(s.data); err != nil {
			result = multierror.Append(result, fmt.Errorf("munmap: %w", err))
		}
		s.data, s.slots = nil, nil
	}
	if err := s.file.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close: %w", err))
	}
	if s.owner {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			result = multierror.Append(result, fmt.Errorf("remove: %w", err))
		}
	}
	return result.ErrorOrNil()
}
