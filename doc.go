// Package strata is a toolkit for building, validating and inspecting
// columnar arrays laid out the way the Arrow C data interface describes them.
//
// # Architecture
//
// The packages build on each other from the bottom up:
//
//   - pkg/memory: growable buffers over pluggable allocators, including one
//     backed by arrow-go so accounting can be shared with arrow-go code.
//   - pkg/bitmap: LSB-first validity and boolean bitmaps.
//   - pkg/metadata: the length-prefixed key/value encoding attached to schemas.
//   - pkg/schema: format strings, type parameters and the schema tree.
//   - pkg/array: building arrays, binding read-only views, validation and
//     comparison.
//   - pkg/stream: pull-based sequences of arrays sharing one schema.
//
// Around them sit pkg/bridge (conversion to and from arrow-go, including
// Arrow IPC streams), pkg/compression (length-prefixed buffer bodies) and
// pkg/mmap (read-only file mapping into buffers).
//
// # Quick Start
//
// Build an int32 array, then bind a view to read it back:
//
//	a, err := array.New(schema.TypeInt32)
//	if err != nil {
//		return err
//	}
//	defer a.Release()
//	a.StartAppending()
//	a.AppendInt(1)
//	a.AppendNull(1)
//	a.FinishBuildingDefault()
//
//	var v array.View
//	v.InitFromType(schema.TypeInt32)
//	v.SetArray(a)
//	fmt.Println(v.IntUnsafe(0), v.IsNull(1))
//
// # Ownership
//
// Arrays, schemas and streams own what they hold until Release is called.
// Move transfers ownership and leaves the source released. None of the
// types synchronize internally; callers serialize concurrent access.
//
// # Configuration
//
// The strata CLI reads a YAML file (see pkg/config) selecting the
// validation level, allocator, compression and logging. Environment
// variables in ${NAME} form are substituted before parsing.
package strata
