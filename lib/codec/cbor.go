// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the deterministic CBOR encoder. Initialized once; an
// error here means the options themselves are wrong, which is a
// programming error, hence the panic.
var encMode cbor.EncMode

// decMode accepts standard CBOR and ignores unknown struct fields.
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// When decoding into an any-typed target the decoder must
		// pick a concrete map type. CBOR's default is
		// map[interface{}]interface{}; map[string]any is what the
		// rest of the codebase (and encoding/json interop) expects.
		// Struct field decoding is unaffected.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v deterministically.
func Marshal(v any) ([]byte, error) { return encMode.Marshal(v) }

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error { return decMode.Unmarshal(data, v) }

// Encoder is a CBOR stream encoder. Type alias so consumers import
// only this package, not fxamacker/cbor directly.
type Encoder = cbor.Encoder

// Decoder is a CBOR stream decoder.
type Decoder = cbor.Decoder

// RawMessage is a raw encoded CBOR value, used to delay decoding of
// bus payloads until the subscriber knows the concrete type.
type RawMessage = cbor.RawMessage

// NewEncoder returns a stream encoder writing deterministic CBOR to w.
func NewEncoder(w io.Writer) *Encoder { return encMode.NewEncoder(w) }

// NewDecoder returns a stream decoder reading from r.
func NewDecoder(r io.Reader) *Decoder { return decMode.NewDecoder(r) }
