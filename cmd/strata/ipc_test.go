package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	arrowarray "github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	arrowmem "github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArrowFile(t *testing.T, path string) {
	t.Helper()
	as := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	w := ipc.NewWriter(f, ipc.WithSchema(as))

	b := arrowarray.NewRecordBuilder(arrowmem.NewGoAllocator(), as)
	defer b.Release()
	for _, batch := range [][]int64{{1, 2}, {3}} {
		for _, id := range batch {
			b.Field(0).(*arrowarray.Int64Builder).Append(id)
			b.Field(1).(*arrowarray.StringBuilder).Append("row")
		}
		rec := b.NewRecord()
		require.NoError(t, w.Write(rec))
		rec.Release()
	}
	require.NoError(t, w.Close())
}

func TestIPCInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.arrows")
	writeArrowFile(t, path)

	out, err := run(t, "ipc", "inspect", path)
	require.NoError(t, err)
	assert.Equal(t, "struct<id: int64, name: string>\nbatch 0: 2 rows\nbatch 1: 1 rows\n", out)

	_, err = run(t, "ipc", "inspect", filepath.Join(t.TempDir(), "missing.arrows"))
	assert.Error(t, err)
}

func TestIPCRewrite(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.arrows")
	writeArrowFile(t, in)

	for _, algo := range []string{"zstd", "lz4", "none"} {
		out := filepath.Join(dir, algo+".arrows")
		_, err := run(t, "ipc", "rewrite", in, out, "-a", algo)
		require.NoError(t, err, algo)

		f, err := os.Open(out)
		require.NoError(t, err)
		rdr, err := ipc.NewReader(f)
		require.NoError(t, err)
		var rows int64
		for rdr.Next() {
			rows += rdr.Record().NumRows()
		}
		require.NoError(t, rdr.Err())
		rdr.Release()
		f.Close()
		assert.Equal(t, int64(3), rows, algo)
	}

	_, err := run(t, "ipc", "rewrite", in, filepath.Join(dir, "s2.arrows"), "-a", "s2")
	assert.Error(t, err)
}
