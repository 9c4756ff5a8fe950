// Package schema implements the columnar type system: the Schema tree with
// its format strings, name, flags and metadata, and View, the parsed form
// that exposes the logical type, storage type, parameters and buffer layout.
//
// Format strings follow the Arrow C data interface, for example "i" for
// int32, "d:10,2" for a 128-bit decimal, "tsu:UTC" for a microsecond
// timestamp and "+ud:0,1" for a dense union.
package schema
