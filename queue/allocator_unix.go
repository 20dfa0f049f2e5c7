//go:build aix || darwin || dragonfly || freebsd || openbsd || solaris || zos || linux || netbsd
// +build aix darwin dragonfly freebsd openbsd solaris zos linux netbsd

// build tags are sync from:
// golang.org/x/sys@v0.21.0/unix/mmap_nomremap.go
// golang.org/x/sys@v0.21.0/unix/mmap_mremap.go

package queue

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func pageUpper(in uintptr) uintptr {
	pageMask := uintptr(unix.Getpagesize() - 1)
	return (in + pageMask) &^ (pageMask)
}

// MmapAllocator keeps buffers in anonymous private memory mappings, outside of the Go heap.
// Buffers are released with munmap on Dispose.
type MmapAllocator struct{}

// Create maps size bytes rounded up to whole pages
func (MmapAllocator) Create(size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("queue: invalid buffer size %d", size)
	}
	if size == 0 {
		return []byte{}, nil
	}
	mapped, err := unix.Mmap(
		-1,
		0,
		int(pageUpper(uintptr(size))),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANON|unix.MAP_PRIVATE,
	)
	if err != nil {
		return nil, fmt.Errorf("queue: mmap %d bytes: %w", size, err)
	}
	return mapped[:size], nil
}

// Dispose unmaps a buffer obtained from Create
func (MmapAllocator) Dispose(buf []byte) error {
	if cap(buf) == 0 {
		return nil
	}
	if err := unix.Munmap(buf[:cap(buf)]); err != nil {
		return fmt.Errorf("queue: munmap: %w", err)
	}
	return nil
}
