package codec

import "encoding/json"

// JSON builds a Codec[T] backed by encoding/json: human-readable,
// cross-language, the simplest choice for getting a channel working end to
// end.
func JSON[T any]() Codec[T] {
	return Codec[T]{
		Encode: func(v T) ([]byte, error) { return json.Marshal(v) },
		Decode: func(data []byte) (T, error) {
			var v T
			err := json.Unmarshal(data, &v)
			return v, err
		},
	}
}
