// Package codec converts typed field values to and from the binary field
// representation consumed by the storage engine.
//
// Scalars are little-endian: INT is 4 bytes of two's complement, LONG is 8,
// FLOAT is 4 bytes of IEEE-754. STRING is the raw UTF-8 bytes with no length
// prefix, since the engine's field envelope carries the length. VECTOR is the
// concatenation of its float32 components, so its byte length is always four
// times the dimension. MULTI_STRING is kept as a list of byte strings.
//
// Encode rejects values whose runtime shape disagrees with the declared type
// (empty vectors, non-finite floats, integer overflow) with an
// errs.EncodingError. Decode is the exact inverse of Encode for well-formed
// input.
package codec
