package bridge

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	arrowarray "github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"go.uber.org/zap"

	"github.com/ajitpratap0/strata/pkg/array"
	"github.com/ajitpratap0/strata/pkg/compression"
	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/logger"
	"github.com/ajitpratap0/strata/pkg/schema"
	"github.com/ajitpratap0/strata/pkg/stream"
	stringpool "github.com/ajitpratap0/strata/pkg/strings"
)

// CompressionOption returns the IPC writer option for alg. Arrow IPC bodies
// only know LZ4 frames and Zstd.
func CompressionOption(alg compression.Algorithm) ([]ipc.Option, error) {
	switch alg {
	case compression.None:
		return nil, nil
	case compression.LZ4:
		return []ipc.Option{ipc.WithLZ4()}, nil
	case compression.Zstd:
		return []ipc.Option{ipc.WithZstd()}, nil
	default:
		return nil, unsupported("arrow ipc bodies cannot use %s compression", alg)
	}
}

// WriteIPC drains st into w as an Arrow IPC stream, one record batch per
// array. The stream schema must be a struct whose children become the
// columns; arrays are validated at the default level and may not contain
// null rows. It returns the number of batches written.
func WriteIPC(w io.Writer, st stream.ArrayStream, opts ...ipc.Option) (int, error) {
	var s schema.Schema
	if err := st.GetSchema(&s); err != nil {
		return 0, err
	}
	defer s.Release()

	as, err := Schema(&s)
	if err != nil {
		return 0, err
	}
	dt, err := DataType(&s)
	if err != nil {
		return 0, err
	}
	v, err := array.NewViewFromSchema(&s)
	if err != nil {
		return 0, err
	}

	wr := ipc.NewWriter(w, append([]ipc.Option{ipc.WithSchema(as)}, opts...)...)
	batches := 0
	for {
		var a array.Array
		if err := st.GetNext(&a); err != nil {
			_ = wr.Close()
			return batches, err
		}
		if a.IsReleased() {
			break
		}
		err := writeBatch(wr, as, dt, &s, v, &a)
		a.Release()
		if err != nil {
			_ = wr.Close()
			return batches, errors.Prefix(err, batchPrefix(batches))
		}
		batches++
	}
	if err := wr.Close(); err != nil {
		return batches, errors.Wrap(err, errors.ErrorTypeIO, "closing arrow ipc stream")
	}

	logger.Named("bridge").Debug("wrote arrow ipc stream",
		zap.Int("batches", batches),
		zap.Int("columns", as.NumFields()))
	return batches, nil
}

func writeBatch(wr *ipc.Writer, as *arrow.Schema, dt arrow.DataType, s *schema.Schema, v *array.View, a *array.Array) error {
	if err := v.SetArray(a); err != nil {
		return err
	}
	data, err := exportData(dt, s, v)
	if err != nil {
		return err
	}
	defer data.Release()

	st := arrowarray.NewStructData(data)
	defer st.Release()
	if st.NullN() > 0 {
		return unsupported("record batches cannot hold %d null rows", st.NullN())
	}

	rec := arrowarray.RecordFromStructArray(st, as)
	defer rec.Release()
	if err := wr.Write(rec); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "writing record batch")
	}
	return nil
}

// ReadIPC reads an Arrow IPC stream into a stream holding one struct array
// per record batch. The arrays share memory with the decoded batches.
func ReadIPC(r io.Reader, opts ...ipc.Option) (*stream.BasicArrayStream, error) {
	rdr, err := ipc.NewReader(r, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "opening arrow ipc stream")
	}
	defer rdr.Release()

	var arrays []array.Array
	release := func() {
		for i := range arrays {
			arrays[i].Release()
		}
	}

	for rdr.Next() {
		st := arrowarray.RecordToStructArray(rdr.Record())
		var a array.Array
		err := ImportArray(st, &a)
		st.Release()
		if err != nil {
			release()
			return nil, errors.Prefix(err, batchPrefix(len(arrays)))
		}
		arrays = append(arrays, a)
	}
	if err := rdr.Err(); err != nil {
		release()
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "reading arrow ipc stream")
	}

	var s schema.Schema
	if err := ImportSchema(rdr.Schema(), &s); err != nil {
		release()
		return nil, err
	}
	out, err := stream.New(&s, len(arrays))
	if err != nil {
		s.Release()
		release()
		return nil, err
	}
	for i := range arrays {
		if err := out.SetArray(i, &arrays[i]); err != nil {
			out.Release()
			release()
			return nil, err
		}
	}
	return out, nil
}

func batchPrefix(i int) string {
	return stringpool.Sprintf("batch %d: ", i)
}
