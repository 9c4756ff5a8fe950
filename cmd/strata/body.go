package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/strata/pkg/compression"
	"github.com/ajitpratap0/strata/pkg/config"
	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/memory"
)

func newBodyCommand(a *app) *cobra.Command {
	var (
		algorithm string
		stream    bool
	)

	cmd := &cobra.Command{
		Use:   "body",
		Short: "Compress and decompress buffer bodies",
		Long: `Encode files as length-prefixed compressed buffer bodies, or decode them.
Several <input> <output> pairs are processed in parallel with
compression.concurrency workers. The algorithm defaults to
compression.algorithm from the configuration. With --stream a single pair is
compressed as a plain stream without the length prefix.
Use - for standard input or output.`,
	}
	cmd.PersistentFlags().StringVarP(&algorithm, "algorithm", "a", "", "Compression algorithm (none, lz4, zstd, s2, snappy)")
	cmd.PersistentFlags().BoolVar(&stream, "stream", false, "Compress as a stream without the body length prefix")

	configured := func() (*config.Config, error) {
		cfg := *a.cfg
		if algorithm != "" {
			algo, err := compression.ParseAlgorithm(algorithm)
			if err != nil {
				return nil, err
			}
			cfg.Compression.Algorithm = algo
		}
		return &cfg, nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "encode <input> <output> [<input> <output>...]",
		Short: "Write the compressed bodies of files",
		Args:  pairArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configured()
			if err != nil {
				return err
			}
			if stream {
				return streamPair(cmd, cfg, args, compression.Compressor.CompressStream)
			}
			return encodeBodies(cmd, a, cfg, args)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "decode <input> <output> [<input> <output>...]",
		Short: "Write the decompressed contents of bodies",
		Args:  pairArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configured()
			if err != nil {
				return err
			}
			if stream {
				return streamPair(cmd, cfg, args, compression.Compressor.DecompressStream)
			}
			return decodeBodies(cmd, a, cfg, args)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "size <input>",
		Short: "Print the decoded size announced by a body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in memory.Buffer
			if err := readInput(cmd, args[0], &in); err != nil {
				return err
			}
			defer in.Reset()
			n, err := compression.DecodedLen(in.Bytes())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	})
	return cmd
}

func pairArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 || len(args)%2 != 0 {
		return errors.Newf(errors.ErrorTypeInvalidArgument,
			"expected <input> <output> pairs but found %d argument(s)", len(args))
	}
	return nil
}

// readInputs reads every input of args and returns their contents in order.
// The returned release func resets the backing buffers.
func readInputs(cmd *cobra.Command, args []string) ([][]byte, func(), error) {
	ins := make([]memory.Buffer, len(args)/2)
	release := func() {
		for i := range ins {
			ins[i].Reset()
		}
	}
	data := make([][]byte, len(ins))
	for i := range ins {
		if err := readInput(cmd, args[2*i], &ins[i]); err != nil {
			release()
			return nil, nil, err
		}
		data[i] = ins[i].Bytes()
	}
	return data, release, nil
}

func encodeBodies(cmd *cobra.Command, a *app, cfg *config.Config, args []string) error {
	pc, err := cfg.NewCompressor()
	if err != nil {
		return err
	}
	data, release, err := readInputs(cmd, args)
	if err != nil {
		return err
	}
	defer release()

	bodies, err := pc.EncodeBodies(cmd.Context(), data)
	if err != nil {
		return err
	}
	for i, body := range bodies {
		if err := writeOutput(cmd, args[2*i+1], body); err != nil {
			return err
		}
	}
	processed, count := pc.Stats()
	a.log.Debug("encoded bodies",
		zap.String("algorithm", string(cfg.Compression.Algorithm)),
		zap.Int64("bodies", count),
		zap.Int64("input_bytes", processed))
	return nil
}

func decodeBodies(cmd *cobra.Command, a *app, cfg *config.Config, args []string) error {
	pc, err := cfg.NewCompressor()
	if err != nil {
		return err
	}
	bodies, release, err := readInputs(cmd, args)
	if err != nil {
		return err
	}
	defer release()

	outs := make([]memory.Buffer, len(bodies))
	for i := range outs {
		outs[i].Init()
	}
	defer func() {
		for i := range outs {
			outs[i].Reset()
		}
	}()
	if err := pc.DecodeBodies(cmd.Context(), bodies, outs); err != nil {
		return err
	}
	for i := range outs {
		if err := writeOutput(cmd, args[2*i+1], outs[i].Bytes()); err != nil {
			return err
		}
	}
	processed, count := pc.Stats()
	a.log.Debug("decoded bodies",
		zap.String("algorithm", string(cfg.Compression.Algorithm)),
		zap.Int64("bodies", count),
		zap.Int64("output_bytes", processed))
	return nil
}

// streamPair runs fn from the single input to the single output of args.
func streamPair(cmd *cobra.Command, cfg *config.Config, args []string,
	fn func(compression.Compressor, io.Writer, io.Reader) error) error {
	if len(args) != 2 {
		return errors.Newf(errors.ErrorTypeInvalidArgument,
			"--stream takes one <input> <output> pair but found %d", len(args)/2)
	}
	c, err := compression.NewCompressor(&cfg.Compression)
	if err != nil {
		return err
	}

	src := cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0]) //nolint:gosec // G304: path comes from the command line
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeIO, "opening input")
		}
		defer f.Close()
		src = f
	}
	if args[1] == "-" {
		return fn(c, cmd.OutOrStdout(), src)
	}

	f, err := os.Create(args[1]) //nolint:gosec // G304: path comes from the command line
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "creating output")
	}
	if err := fn(c, f, src); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
