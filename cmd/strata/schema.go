package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/strata/pkg/bridge"
	"github.com/ajitpratap0/strata/pkg/json"
	"github.com/ajitpratap0/strata/pkg/metadata"
	"github.com/ajitpratap0/strata/pkg/schema"
	stringpool "github.com/ajitpratap0/strata/pkg/strings"
)

type bufferJSON struct {
	Type            string `json:"type"`
	DataType        string `json:"data_type"`
	ElementSizeBits int64  `json:"element_size_bits"`
}

type pairJSON struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type schemaJSON struct {
	Name        string                 `json:"name,omitempty"`
	Format      string                 `json:"format"`
	Type        string                 `json:"type"`
	StorageType string                 `json:"storage_type"`
	Nullable    bool                   `json:"nullable"`
	Params      map[string]interface{} `json:"params,omitempty"`
	Extension   string                 `json:"extension,omitempty"`
	Metadata    []pairJSON             `json:"metadata,omitempty"`
	Buffers     []bufferJSON           `json:"buffers"`
	Arrow       string                 `json:"arrow,omitempty"`
	Dictionary  *schemaJSON            `json:"dictionary,omitempty"`
	Children    []*schemaJSON          `json:"children,omitempty"`
}

func newSchemaCommand(a *app) *cobra.Command {
	var dictionary string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "schema <format> [child-format...]",
		Short: "Parse a type format and describe its layout",
		Long: `Parse an Arrow C data interface format string and print its summary.
Extra arguments are the formats of the children, named c0, c1, ...

Example:
  strata schema +s i u
  strata schema c --dictionary u --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildSchema(args[0], args[1:], dictionary)
			if err != nil {
				return err
			}
			defer s.Release()

			fmt.Fprintln(cmd.OutOrStdout(), a.summary(s))
			if !asJSON {
				return nil
			}

			described, err := describe(s)
			if err != nil {
				return err
			}
			return json.WriteIndented(cmd.OutOrStdout(), described)
		},
	}
	cmd.Flags().StringVar(&dictionary, "dictionary", "", "Format of the dictionary values")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Also print the parsed view as JSON")
	return cmd
}

// summary renders s within the configured summary length.
func (a *app) summary(s *schema.Schema) string {
	maxLen := a.cfg.Summary.MaxLength
	if maxLen <= 0 {
		maxLen = -1
	}
	text, n := s.Summary(maxLen, true)
	if n > len(text) {
		text += "..."
	}
	return text
}

func buildSchema(format string, children []string, dictionary string) (*schema.Schema, error) {
	s := &schema.Schema{}
	s.Init()
	s.SetFormat(format)
	if len(children) > 0 {
		if err := s.AllocateChildren(len(children)); err != nil {
			s.Release()
			return nil, err
		}
		for i, f := range children {
			s.Children[i].Init()
			s.Children[i].SetFormat(f)
			s.Children[i].SetName(stringpool.Sprintf("c%d", i))
		}
	}
	if dictionary != "" {
		if err := s.AllocateDictionary(); err != nil {
			s.Release()
			return nil, err
		}
		s.Dictionary.Init()
		s.Dictionary.SetFormat(dictionary)
	}
	if _, err := schema.NewView(s); err != nil {
		s.Release()
		return nil, err
	}
	return s, nil
}

func describe(s *schema.Schema) (*schemaJSON, error) {
	v, err := schema.NewView(s)
	if err != nil {
		return nil, err
	}
	out := &schemaJSON{
		Name:        s.Name,
		Format:      s.Format,
		Type:        v.Type.String(),
		StorageType: v.StorageType.String(),
		Nullable:    s.Flags&schema.FlagNullable != 0,
		Params:      paramsOf(v.Params),
		Extension:   v.ExtensionName,
		Buffers:     make([]bufferJSON, v.Layout.NumBuffers()),
	}
	for i := range out.Buffers {
		out.Buffers[i] = bufferJSON{
			Type:            v.Layout.BufferType[i].String(),
			DataType:        v.Layout.BufferDataType[i].String(),
			ElementSizeBits: v.Layout.ElementSizeBits[i],
		}
	}
	pairs, err := metadata.Pairs(s.Metadata)
	if err != nil {
		return nil, err
	}
	for _, p := range pairs {
		out.Metadata = append(out.Metadata, pairJSON{Key: p.Key, Value: p.Value})
	}
	if dt, err := bridge.DataType(s); err == nil {
		out.Arrow = dt.String()
	}

	if s.Dictionary != nil {
		if out.Dictionary, err = describe(s.Dictionary); err != nil {
			return nil, err
		}
	}
	for _, child := range s.Children {
		c, err := describe(child)
		if err != nil {
			return nil, err
		}
		out.Children = append(out.Children, c)
	}
	return out, nil
}

func paramsOf(p schema.Params) map[string]interface{} {
	switch p := p.(type) {
	case schema.FixedSizeParams:
		return map[string]interface{}{"size": p.Size}
	case schema.DecimalParams:
		return map[string]interface{}{"precision": p.Precision, "scale": p.Scale, "bit_width": p.BitWidth}
	case schema.DateTimeParams:
		m := map[string]interface{}{"unit": p.Unit.String()}
		if p.Timezone != "" {
			m["timezone"] = p.Timezone
		}
		return m
	case schema.UnionParams:
		ids := make([]int, len(p.TypeIDs))
		for i, id := range p.TypeIDs {
			ids[i] = int(id)
		}
		return map[string]interface{}{"type_ids": ids}
	}
	return nil
}
