//go:build windows

package mmap

import (
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

func osMap(f *os.File, size int) ([]byte, func([]byte) error, func([]byte) error, error) {
	// PAGE_READWRITE so stores through the view reach the file.
	h, err := windows.CreateFileMapping(windows.Handle(f.Fd()), nil, windows.PAGE_READWRITE, 0, 0, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	// The view holds a reference; the mapping handle can be closed immediately.
	defer windows.CloseHandle(h)

	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_WRITE, 0, 0, uintptr(size))
	if err != nil {
		return nil, nil, nil, err
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)

	// Flush needs a file handle of its own: the caller may close f once
	// the mapping is established.
	var fd windows.Handle
	proc := windows.CurrentProcess()
	if err := windows.DuplicateHandle(proc, windows.Handle(f.Fd()), proc, &fd, 0, false, windows.DUPLICATE_SAME_ACCESS); err != nil {
		windows.UnmapViewOfFile(addr)
		return nil, nil, nil, err
	}

	flush := func(b []byte) error {
		if err := windows.FlushViewOfFile(addr, uintptr(size)); err != nil {
			return err
		}
		// FlushViewOfFile does not write the file metadata; FlushFileBuffers
		// completes the durability contract.
		return windows.FlushFileBuffers(fd)
	}

	unmap := func(b []byte) error {
		err := windows.UnmapViewOfFile(addr)
		if closeErr := windows.CloseHandle(fd); closeErr != nil && err == nil {
			err = closeErr
		}
		return err
	}

	return data, flush, unmap, nil
}
