//go:build darwin

package mmap

import (
	"syscall"
	"unsafe"
)

const mapSupported = true

// mmap wraps the mmap system call
func mmap(fd int, length int) ([]byte, error) {
	return syscall.Mmap(fd, 0, length, syscall.PROT_READ, syscall.MAP_SHARED)
}

// munmap wraps the munmap system call
func munmap(b []byte) error {
	return syscall.Munmap(b)
}

// adviseSequential hints that b will be read front to back
func adviseSequential(b []byte) error {
	_, _, err := syscall.Syscall(syscall.SYS_MADVISE, uintptr(unsafe.Pointer(&b[0])), uintptr(len(b)), uintptr(syscall.MADV_SEQUENTIAL))
	if err != 0 {
		return err
	}
	return nil
}
