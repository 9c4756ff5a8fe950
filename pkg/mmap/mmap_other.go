//go:build !linux && !darwin

package mmap

import "github.com/ajitpratap0/strata/pkg/errors"

const mapSupported = false

func mmap(int, int) ([]byte, error) {
	return nil, errors.New(errors.ErrorTypeInternal, "mmap is not supported on this platform")
}

func munmap([]byte) error { return nil }

func adviseSequential([]byte) error { return nil }
