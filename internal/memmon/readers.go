package memmon

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/process"
)

const bytesPerMB = 1024 * 1024

// Reader returns the current memory usage of the process in megabytes.
type Reader interface {
	ReadMB(ctx context.Context) (float64, error)
}

// ReaderFunc adapts a function to Reader.
type ReaderFunc func(ctx context.Context) (float64, error)

// ReadMB calls f.
func (f ReaderFunc) ReadMB(ctx context.Context) (float64, error) {
	return f(ctx)
}

// ProcessReader reports the resident set size of the current process.
type ProcessReader struct {
	once sync.Once
	proc *process.Process
	err  error
}

// NewProcessReader creates a reader bound to the current process.
func NewProcessReader() *ProcessReader {
	return &ProcessReader{}
}

// ReadMB implements Reader.
func (r *ProcessReader) ReadMB(ctx context.Context) (float64, error) {
	r.once.Do(func() {
		r.proc, r.err = process.NewProcess(int32(os.Getpid()))
	})
	if r.err != nil {
		return 0, fmt.Errorf("open process: %w", r.err)
	}

	info, err := r.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("read process memory: %w", err)
	}
	return float64(info.RSS) / bytesPerMB, nil
}

// RuntimeReader reports bytes of allocated heap objects as seen by the Go
// runtime.
type RuntimeReader struct{}

// ReadMB implements Reader.
func (RuntimeReader) ReadMB(context.Context) (float64, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return float64(ms.HeapAlloc) / bytesPerMB, nil
}

// NewReader returns the reader for source: "process" or "runtime".
func NewReader(source string) (Reader, error) {
	switch source {
	case "", SourceProcess:
		return NewProcessReader(), nil
	case SourceRuntime:
		return RuntimeReader{}, nil
	default:
		return nil, fmt.Errorf("memmon: unknown memory source %q", source)
	}
}

// Memory sources accepted by NewReader.
const (
	SourceProcess = "process"
	SourceRuntime = "runtime"
)
