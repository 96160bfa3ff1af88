//go:build unix

package mmap

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"golang.org/x/sys/unix"
)

// Map maps the file at path read-only into memory and returns its bytes
// along with a close function that unmaps them. Before returning, it
// pre-faults every page so that a truncated or corrupt disk image fails
// here with a clean error instead of raising SIGBUS the first time a
// scanner touches an inaccessible page.
func Map(path string) ([]byte, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close() // mapping keeps the pages resident after the fd is closed

	info, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	size := info.Size()
	if size == 0 {
		return []byte{}, func() error { return nil }, nil
	}
	if size > int64(^uint(0)>>1) {
		return nil, nil, fmt.Errorf("mmap: file too large to map (%d bytes)", size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, fmt.Errorf("mmap: %w", err)
	}

	if err := prefault(data); err != nil {
		_ = unix.Munmap(data)
		return nil, nil, fmt.Errorf("mmap: mapped region contains inaccessible pages: %w", err)
	}

	closed := false
	cleanup := func() error {
		if closed || data == nil {
			return nil
		}
		closed = true
		err := unix.Munmap(data)
		if errors.Is(err, unix.EINVAL) {
			return nil // already unmapped; treat as a no-op
		}
		return err
	}
	return data, cleanup, nil
}

// madvisePopulateRead is MADV_POPULATE_READ (Linux 5.14+): it pre-faults
// pages and returns EFAULT instead of raising SIGBUS. Unsupported kernels
// and non-Linux unixes return EINVAL/ENOTSUP, handled by falling back to
// manualPrefault below.
const madvisePopulateRead = 22

func prefault(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := unix.Madvise(data, madvisePopulateRead); err == nil {
		return nil
	} else if !errors.Is(err, unix.EINVAL) && !errors.Is(err, unix.ENOSYS) && !errors.Is(err, unix.ENOTSUP) {
		return err
	}
	return manualPrefault(data)
}

// manualPrefault reads one byte per page to force the whole mapping
// resident, converting a would-be SIGBUS into a recoverable panic via
// debug.SetPanicOnFault.
func manualPrefault(data []byte) (retErr error) {
	old := debug.SetPanicOnFault(true)
	defer debug.SetPanicOnFault(old)
	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("memory access fault while pre-faulting mapped region: %v", r)
		}
	}()

	const pageSize = 4096
	var sink byte
	for i := 0; i < len(data); i += pageSize {
		sink ^= data[i]
	}
	sink ^= data[len(data)-1]
	_ = sink
	return nil
}
