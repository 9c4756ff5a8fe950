// Package bridge converts schemas and arrays to and from arrow-go.
//
// Export wraps the buffers of a validated array.View as arrow.ArrayData
// without copying. Import goes the other way: the resulting array.Array
// adopts the arrow-go buffers and holds a reference to each until it is
// released. DataType, Field and Schema map type systems; decimal32 and
// decimal64 have no arrow-go equivalent and are rejected.
package bridge
