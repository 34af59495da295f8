package codec

// Raw is a Codec[[]byte] for payloads that are already bytes: it skips
// serialization entirely and is the fastest option when the message type
// itself is []byte.
var Raw = Codec[[]byte]{
	Encode: func(v []byte) ([]byte, error) { return v, nil },
	Decode: func(data []byte) ([]byte, error) {
		return append([]byte(nil), data...), nil
	},
}
