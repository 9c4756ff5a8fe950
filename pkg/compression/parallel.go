package compression

import (
	"context"
	"runtime"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/logger"
	"github.com/ajitpratap0/strata/pkg/memory"
	stringpool "github.com/ajitpratap0/strata/pkg/strings"
)

const tracerName = "github.com/ajitpratap0/strata/pkg/compression"

// ParallelCompressor encodes and decodes many bodies at once, one worker
// per body up to its concurrency.
type ParallelCompressor struct {
	logger     *zap.Logger
	pool        *CompressorPool
	numWorkers  int
	maxBodySize int64

	bytesProcessed  int64
	bodiesProcessed int64
}

// NewParallelCompressor creates a parallel compressor. A Concurrency of 0
// uses one worker per CPU.
func NewParallelCompressor(config *Config) (*ParallelCompressor, error) {
	if config == nil {
		config = DefaultConfig()
	}
	pool, err := NewCompressorPool(config)
	if err != nil {
		return nil, err
	}
	workers := config.Concurrency
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &ParallelCompressor{
		logger:      logger.Named("compression"),
		pool:        pool,
		numWorkers:  workers,
		maxBodySize: config.MaxBodySize,
	}, nil
}

// EncodeBodies encodes each buffer with EncodeBody. The result keeps the
// order of buffers.
func (pc *ParallelCompressor) EncodeBodies(ctx context.Context, buffers [][]byte) (_ [][]byte, err error) {
	ctx, span := pc.startSpan(ctx, "compression.EncodeBodies", len(buffers))
	defer func() { endSpan(span, err) }()

	bodies := make([][]byte, len(buffers))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(pc.numWorkers)

	for i, buf := range buffers {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c := pc.pool.Get()
			defer pc.pool.Put(c)

			body, err := EncodeBody(c, buf)
			if err != nil {
				return errors.Prefix(err, stringpool.Sprintf("buffer %d: ", i))
			}
			bodies[i] = body
			atomic.AddInt64(&pc.bytesProcessed, int64(len(buf)))
			atomic.AddInt64(&pc.bodiesProcessed, 1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		pc.logger.Debug("encoding bodies failed", zap.Int("bodies", len(buffers)), zap.Error(err))
		return nil, err
	}
	return bodies, nil
}

// DecodeBodies decodes body i into out[i], which must be initialized.
// out must have at least len(bodies) entries. Bodies larger than the
// configured MaxBodySize are rejected before anything is allocated.
func (pc *ParallelCompressor) DecodeBodies(ctx context.Context, bodies [][]byte, out []memory.Buffer) (err error) {
	ctx, span := pc.startSpan(ctx, "compression.DecodeBodies", len(bodies))
	defer func() { endSpan(span, err) }()

	if len(out) < len(bodies) {
		return errors.Newf(errors.ErrorTypeInvalidArgument,
			"expected at least %d output buffers but found %d", len(bodies), len(out))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(pc.numWorkers)

	for i, body := range bodies {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c := pc.pool.Get()
			defer pc.pool.Put(c)

			before := out[i].Len()
			if err := DecodeBodyLimit(c, body, &out[i], pc.maxBodySize); err != nil {
				return errors.Prefix(err, stringpool.Sprintf("buffer %d: ", i))
			}
			atomic.AddInt64(&pc.bytesProcessed, out[i].Len()-before)
			atomic.AddInt64(&pc.bodiesProcessed, 1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		pc.logger.Debug("decoding bodies failed", zap.Int("bodies", len(bodies)), zap.Error(err))
		return err
	}
	return nil
}

func (pc *ParallelCompressor) startSpan(ctx context.Context, name string, bodies int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(
		attribute.String("compression.algorithm", string(pc.pool.config.Algorithm)),
		attribute.Int("compression.bodies", bodies),
		attribute.Int("compression.workers", pc.numWorkers),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Stats returns the uncompressed bytes and bodies processed so far.
func (pc *ParallelCompressor) Stats() (bytesProcessed, bodiesProcessed int64) {
	return atomic.LoadInt64(&pc.bytesProcessed), atomic.LoadInt64(&pc.bodiesProcessed)
}
