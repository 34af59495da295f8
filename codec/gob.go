package codec

import (
	"bytes"
	"encoding/gob"
)

// Gob builds a Codec[T] backed by encoding/gob. Unlike JSON it requires both
// ends to register concrete types for any interface values it carries, but
// it avoids JSON's field-name overhead on the wire.
func Gob[T any]() Codec[T] {
	return Codec[T]{
		Encode: func(v T) ([]byte, error) {
			var buf bytes.Buffer
			if err := gob.NewEncoder(&buf).Encode(v); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
		Decode: func(data []byte) (T, error) {
			var v T
			err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v)
			return v, err
		},
	}
}
