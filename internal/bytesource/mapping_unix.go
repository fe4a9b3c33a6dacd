//go:build !windows

// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package bytesource

import (
	"fmt"
	"os"
	"syscall"
	"unsafe"
)

// mapping is a memory-mapped view of a file or block device.
type mapping struct {
	data []byte
}

func newMapping(f *os.File, size int64) (*mapping, error) {
	if size <= 0 {
		return nil, fmt.Errorf("bytesource: cannot map a source of unknown or zero size")
	}

	data, err := syscall.Mmap(int(f.Fd()), 0, int(size), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("bytesource: mmap failed: %w", err)
	}
	return &mapping{data: data}, nil
}

func (m *mapping) close() error {
	if m.data == nil {
		return nil
	}
	err := syscall.Munmap(m.data)
	m.data = nil
	return err
}

func openRaw(path string) (*os.File, error) {
	return os.Open(path)
}

// statSize reports the size of a regular file or, for a block device, queries
// the kernel directly via BLKGETSIZE64 since os.Stat reports zero for block
// special files.
func statSize(f *os.File) (int64, bool) {
	fi, err := f.Stat()
	if err != nil {
		return 0, false
	}

	if fi.Mode().IsRegular() {
		return fi.Size(), true
	}

	if fi.Mode()&os.ModeDevice != 0 {
		const blkGetSize64 = 0x80081272
		var size int64
		_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, f.Fd(), blkGetSize64, uintptr(unsafe.Pointer(&size)))
		if errno == 0 && size > 0 {
			return size, true
		}
	}
	return 0, false
}
