package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/json"
	"github.com/ajitpratap0/strata/pkg/memory"
	"github.com/ajitpratap0/strata/pkg/metadata"
)

func newMetadataCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Encode and decode schema metadata",
	}

	var base string
	var remove []string
	encode := &cobra.Command{
		Use:   "encode key=value...",
		Short: "Print the hex encoding of key/value pairs",
		Long: `Encode pairs in the binary metadata format. A repeated key keeps its
last value. With --base the pairs update existing encoded metadata.

Example:
  strata metadata encode ARROW:extension:name=uuid
  strata metadata encode --base 01000000... --remove old new=1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			existing, err := hex.DecodeString(strings.TrimSpace(base))
			if err != nil {
				return errors.Wrap(err, errors.ErrorTypeInvalidArgument, "base metadata is not valid hex")
			}
			encoded, err := encodeMetadata(existing, args, remove)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(encoded))
			return nil
		},
	}
	encode.Flags().StringVar(&base, "base", "", "Hex encoded metadata to start from")
	encode.Flags().StringSliceVar(&remove, "remove", nil, "Keys to remove")
	cmd.AddCommand(encode)

	var lines bool
	decode := &cobra.Command{
		Use:   "decode <hex>",
		Short: "Print encoded metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := hex.DecodeString(strings.TrimSpace(args[0]))
			if err != nil {
				return errors.Wrap(err, errors.ErrorTypeInvalidArgument, "metadata is not valid hex")
			}
			pairs, err := metadata.Pairs(raw)
			if err != nil {
				return err
			}
			out := make([]pairJSON, len(pairs))
			for i, p := range pairs {
				out[i] = pairJSON{Key: p.Key, Value: p.Value}
			}
			if !lines {
				return json.WriteIndented(cmd.OutOrStdout(), out)
			}
			enc := json.NewLineEncoder(cmd.OutOrStdout())
			for _, p := range out {
				if err := enc.Encode(p); err != nil {
					return err
				}
			}
			return nil
		},
	}
	decode.Flags().BoolVar(&lines, "lines", false, "Print one JSON object per pair")
	cmd.AddCommand(decode)
	return cmd
}

func encodeMetadata(existing []byte, set, remove []string) ([]byte, error) {
	var buf memory.Buffer
	buf.Init()
	defer buf.Reset()

	if err := metadata.BuilderInit(&buf, existing); err != nil {
		return nil, err
	}
	for _, arg := range set {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeInvalidArgument, "expected key=value but found '%s'", arg)
		}
		if err := metadata.BuilderSet(&buf, key, value); err != nil {
			return nil, err
		}
	}
	for _, key := range remove {
		if err := metadata.BuilderRemove(&buf, key); err != nil {
			return nil, err
		}
	}
	return append([]byte(nil), buf.Bytes()...), nil
}
