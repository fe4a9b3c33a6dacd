//go:build windows

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
	"unsafe"

	"golang.org/x/sys/windows"
)

// mapping is unused on Windows: raw volumes cannot reliably be mapped
// through the standard library, so every Windows source runs Streamed.
type mapping struct {
	data []byte
}

func newMapping(f *os.File, size int64) (*mapping, error) {
	return nil, fmt.Errorf("bytesource: memory mapping is not supported on windows")
}

func (m *mapping) close() error { return nil }

func openRaw(path string) (*os.File, error) {
	return os.Open(path)
}

type diskGeometry struct {
	Cylinders         int64
	MediaType         uint32
	TracksPerCylinder uint32
	SectorsPerTrack   uint32
	BytesPerSector    uint32
}

const ioctlDiskGetDriveGeometry = 0x70000

// statSize reports the size of a regular file or, for a raw volume, queries
// the drive geometry via IOCTL_DISK_GET_DRIVE_GEOMETRY.
func statSize(f *os.File) (int64, bool) {
	fi, err := f.Stat()
	if err == nil && fi.Mode().IsRegular() {
		return fi.Size(), true
	}

	var geometry diskGeometry
	var bytesReturned uint32
	err = windows.DeviceIoControl(
		windows.Handle(f.Fd()),
		ioctlDiskGetDriveGeometry,
		nil,
		0,
		(*byte)(unsafe.Pointer(&geometry)),
		uint32(unsafe.Sizeof(geometry)),
		&bytesReturned,
		nil,
	)
	if err != nil {
		return 0, false
	}

	size := geometry.Cylinders * int64(geometry.TracksPerCylinder) * int64(geometry.SectorsPerTrack) * int64(geometry.BytesPerSector)
	return size, size > 0
}
