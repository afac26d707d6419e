// Package simple defines the contract between persisted values and the
// JSON-compatible trees they are stored as.
//
// A tree is built only from map[string]any, []any, strings, numbers,
// booleans and nil. Values that need a custom representation implement
// Marshaler and Unmarshaler; everything else round-trips through
// encoding/json via Decode.
//
// Round-trip law: for every value x a store can hold,
//
//	y, _ := simple.Decode[T](simple.Encode(x))
//
// is observationally equal to x.
package simple
