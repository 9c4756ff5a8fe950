// Package stream provides pull-based sequences of arrays that share a schema.
package stream

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/strata/pkg/array"
	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/logger"
	"github.com/ajitpratap0/strata/pkg/schema"
	stringpool "github.com/ajitpratap0/strata/pkg/strings"
)

// ArrayStream yields arrays that all conform to one schema.
type ArrayStream interface {
	// GetSchema copies the stream schema into out, which must be released.
	GetSchema(out *schema.Schema) error
	// GetNext moves the next array into out, which must be released. At the
	// end of the stream out is left released and the error is nil.
	GetNext(out *array.Array) error
	// LastError describes the last failure, or returns "".
	LastError() string
	// Release frees the stream and any arrays it still holds.
	Release()
}

// BasicArrayStream is an ArrayStream over a fixed number of array slots.
// Slots that are never set are skipped. It is not safe for concurrent use.
type BasicArrayStream struct {
	schema  schema.Schema
	arrays  []array.Array
	next    int
	lastErr string
	log     *zap.Logger
}

var _ ArrayStream = (*BasicArrayStream)(nil)

// New returns a stream that takes ownership of s and has room for n arrays.
func New(s *schema.Schema, n int) (*BasicArrayStream, error) {
	st := &BasicArrayStream{}
	if err := st.Init(s, n); err != nil {
		return nil, err
	}
	return st, nil
}

// Init takes ownership of s, leaving it released, and reserves n slots.
func (st *BasicArrayStream) Init(s *schema.Schema, n int) error {
	if s.IsReleased() {
		return errors.New(errors.ErrorTypeInvalidArgument, "stream schema is released")
	}
	if n < 0 {
		return errors.Newf(errors.ErrorTypeInvalidArgument, "cannot create a stream of %d arrays", n)
	}
	st.Release()
	*st = BasicArrayStream{
		arrays: make([]array.Array, n),
		log:    logger.Named("stream"),
	}
	s.Move(&st.schema)
	return nil
}

// IsReleased reports whether st holds no schema.
func (st *BasicArrayStream) IsReleased() bool {
	return st == nil || st.schema.IsReleased()
}

// Len returns the number of slots.
func (st *BasicArrayStream) Len() int {
	return len(st.arrays)
}

// SetArray moves a into slot i, leaving a released. An array already in the
// slot is released.
func (st *BasicArrayStream) SetArray(i int, a *array.Array) error {
	if st.IsReleased() {
		return errors.New(errors.ErrorTypeInvalidArgument, "stream is released")
	}
	if i < 0 || i >= len(st.arrays) {
		return errors.Newf(errors.ErrorTypeInvalidArgument, "array index %d is out of range for a stream of %d arrays", i, len(st.arrays))
	}
	st.arrays[i].Release()
	a.Move(&st.arrays[i])
	return nil
}

// GetSchema copies the stream schema into out.
func (st *BasicArrayStream) GetSchema(out *schema.Schema) error {
	if st.IsReleased() {
		return st.fail(errors.New(errors.ErrorTypeInvalidArgument, "stream is released"))
	}
	if err := st.schema.DeepCopy(out); err != nil {
		return st.fail(err)
	}
	return nil
}

// GetNext moves the next set array into out.
func (st *BasicArrayStream) GetNext(out *array.Array) error {
	if st.IsReleased() {
		return st.fail(errors.New(errors.ErrorTypeInvalidArgument, "stream is released"))
	}
	for st.next < len(st.arrays) {
		slot := &st.arrays[st.next]
		st.next++
		if !slot.IsReleased() {
			slot.Move(out)
			return nil
		}
	}
	*out = array.Array{}
	return nil
}

// LastError implements ArrayStream.
func (st *BasicArrayStream) LastError() string {
	return st.lastErr
}

func (st *BasicArrayStream) fail(err error) error {
	st.lastErr = err.Error()
	return err
}

// Validate checks every set array that has not been consumed against the
// stream schema at the default validation level and returns the first
// failure, prefixed with the slot index.
func (st *BasicArrayStream) Validate() error {
	if st.IsReleased() {
		return errors.New(errors.ErrorTypeInvalidArgument, "stream is released")
	}
	var v array.View
	if err := v.InitFromSchema(&st.schema); err != nil {
		return st.fail(err)
	}
	for i := st.next; i < len(st.arrays); i++ {
		a := &st.arrays[i]
		if a.IsReleased() {
			continue
		}
		if err := v.SetArray(a); err != nil {
			st.log.Debug("stream array failed validation",
				zap.Int("index", i),
				zap.Int64("length", a.Length),
				zap.Error(err))
			return st.fail(errors.Prefix(err, stringpool.Sprintf("array %d: ", i)))
		}
	}
	return nil
}

// Release frees the schema and any arrays not yet consumed.
func (st *BasicArrayStream) Release() {
	if st.IsReleased() {
		return
	}
	st.schema.Release()
	for i := range st.arrays {
		st.arrays[i].Release()
	}
	*st = BasicArrayStream{}
}

// Move transfers st to dst, leaving st released. dst must be released.
func (st *BasicArrayStream) Move(dst *BasicArrayStream) {
	*dst = *st
	*st = BasicArrayStream{}
}
