//go:build !aix && !darwin && !dragonfly && !freebsd && !openbsd && !solaris && !zos && !linux && !netbsd
// +build !aix,!darwin,!dragonfly,!freebsd,!openbsd,!solaris,!zos,!linux,!netbsd

package queue

// MmapAllocator falls back to the heap on platforms without mmap support.
type MmapAllocator struct {
	HeapAllocator
}
