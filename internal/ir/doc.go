// Package ir defines the value universe that component slots hold.
//
// Every slot value is an IRValue: a sealed set of JSON-like types with no
// floats. Keeping the universe closed gives three things the engine relies on:
//   - equality is structural and cheap to decide (see Equal)
//   - every value has one canonical byte form (RFC 8785, see MarshalCanonical)
//   - hashes of values are stable across runs (see ValueHash)
//
// This package imports nothing internal; every other package may import it.
package ir
