// Package mmap maps files into memory.Buffer values without copying them.
//
// A mapped buffer is read-only: it owns the mapping through an adopted
// deallocator, so it cannot grow, and Reset unmaps the file. On platforms
// without mmap the file is read into the Go heap instead.
package mmap

import (
	"os"

	"go.uber.org/zap"

	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/logger"
	"github.com/ajitpratap0/strata/pkg/memory"
)

type mapping struct {
	file *os.File
}

func unmap(data []byte, _ int64, priv interface{}) {
	m := priv.(*mapping)
	if err := munmap(data); err != nil {
		logger.Named("mmap").Debug("munmap failed", zap.String("file", m.file.Name()), zap.Error(err))
	}
	_ = m.file.Close()
}

// MapFile replaces the contents of out with the bytes of the file at path.
// Empty files and platforms without mmap are read into ordinary memory.
func MapFile(path string, out *memory.Buffer) error {
	file, err := os.Open(path) //nolint:gosec // G304: path comes from the caller
	if err != nil {
		return errors.Wrapf(err, errors.ErrorTypeNotFound, "failed to open %s", path)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return errors.Wrapf(err, errors.ErrorTypeIO, "failed to stat %s", path)
	}
	size := stat.Size()
	if size == 0 || !mapSupported {
		_ = file.Close()
		return readFile(path, out)
	}

	data, err := mmap(int(file.Fd()), int(size))
	if err != nil {
		_ = file.Close()
		return errors.Wrapf(err, errors.ErrorTypeIO, "failed to mmap %s", path)
	}
	if err := adviseSequential(data); err != nil {
		logger.Named("mmap").Debug("madvise failed", zap.String("file", path), zap.Error(err))
	}

	out.Adopt(data, unmap, &mapping{file: file})
	return nil
}

func readFile(path string, out *memory.Buffer) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the caller
	if err != nil {
		return errors.Wrapf(err, errors.ErrorTypeIO, "failed to read %s", path)
	}
	out.Reset()
	return out.Append(data)
}
