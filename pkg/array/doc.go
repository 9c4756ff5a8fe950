// Package array builds and reads columnar arrays.
//
// An Array owns its buffers and is filled through a builder API:
// StartAppending, the Append methods, FinishElement for nested types and
// FinishUnionElement for unions, then FinishBuilding. A View is a read-only
// window over an array's buffers, or over external ones, with typed unsafe
// accessors, validation at four levels and comparison.
//
//	a, _ := array.New(schema.TypeInt32)
//	defer a.Release()
//	_ = a.StartAppending()
//	_ = a.AppendInt(1)
//	_ = a.AppendNull(1)
//	_ = a.FinishBuildingDefault()
//
// Date and time arrays are stored as their integer storage type, and
// dictionary arrays as their index type with the values in Dictionary.
package array
