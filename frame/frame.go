// Package frame implements the wire-level framing codec for the channel:
// a single-byte tag, an optional 16-byte correlation id, an optional
// native-endian length-prefixed payload.
//
// Frame format:
//
//	RPC            : 0x00 | len:u64 | bytes[len]
//	REQUEST        : 0x01 | corr:[16]byte | len:u64 | bytes[len]
//	RESPONSE_SOME  : 0x02 | corr:[16]byte | len:u64 | bytes[len]
//	RESPONSE_NONE  : 0x03 | corr:[16]byte
//
// All multi-byte integers are native-endian; the handshake package exists
// to refuse mixed-endian peers before any Frame crosses the wire.
package frame

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/google/uuid"
)

// Tag identifies the shape of a Frame on the wire.
type Tag byte

const (
	RPC           Tag = 0
	REQUEST       Tag = 1
	ResponseSome  Tag = 2
	ResponseNone  Tag = 3
)

func (t Tag) String() string {
	switch t {
	case RPC:
		return "RPC"
	case REQUEST:
		return "REQUEST"
	case ResponseSome:
		return "RESPONSE_SOME"
	case ResponseNone:
		return "RESPONSE_NONE"
	default:
		return fmt.Sprintf("Tag(%d)", byte(t))
	}
}

// Frame is one on-wire unit. Correlation is the zero UUID for RPC frames.
type Frame struct {
	Tag         Tag
	Correlation uuid.UUID
	Payload     []byte
}

// ErrBadTag is returned by ReadTag when a frame starts with an unrecognized tag.
// The caller treats this as a fatal protocol error on the Rx side.
var ErrBadTag = fmt.Errorf("frame: unrecognized tag byte")

// ErrTooLarge is returned when a length prefix does not fit the local
// platform's addressable range (a value above math.MaxInt).
var ErrTooLarge = fmt.Errorf("frame: payload length exceeds platform address range")

// Writer serializes frames onto an io.Writer, reusing an internal scratch
// buffer across calls. Not safe for concurrent use; callers serialize access
// (the outbound lane's writer mutex does this for the channel runtime).
type Writer struct {
	w   io.Writer
	buf []byte
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// scratch returns the writer's scratch buffer, cleared to length 0 with
// capacity preserved, ready for a caller to append an encoded payload into.
func (fw *Writer) scratch() []byte {
	fw.buf = fw.buf[:0]
	return fw.buf
}

// setBuf records the caller's encoded payload (which may alias the
// scratch buffer returned by scratch) for the next writeTagged call.
func (fw *Writer) setBuf(b []byte) { fw.buf = b }

// EncodeRPC writes an RPC frame whose payload is produced by calling encode
// with the writer's scratch buffer.
func (fw *Writer) EncodeRPC(encode func(buf []byte) ([]byte, error)) error {
	buf, err := encode(fw.scratch())
	if err != nil {
		return err
	}
	fw.setBuf(buf)
	return fw.writeTagged(RPC, uuid.Nil, true)
}

// EncodeRequest writes a REQUEST frame with the given correlation id.
func (fw *Writer) EncodeRequest(corr uuid.UUID, encode func(buf []byte) ([]byte, error)) error {
	buf, err := encode(fw.scratch())
	if err != nil {
		return err
	}
	fw.setBuf(buf)
	return fw.writeTagged(REQUEST, corr, true)
}

// EncodeResponseSome writes a RESPONSE_SOME frame with the given correlation id.
func (fw *Writer) EncodeResponseSome(corr uuid.UUID, encode func(buf []byte) ([]byte, error)) error {
	buf, err := encode(fw.scratch())
	if err != nil {
		return err
	}
	fw.setBuf(buf)
	return fw.writeTagged(ResponseSome, corr, true)
}

// EncodeResponseNone writes a RESPONSE_NONE frame: tag and correlation id only.
func (fw *Writer) EncodeResponseNone(corr uuid.UUID) error {
	return fw.writeTagged(ResponseNone, corr, false)
}

func (fw *Writer) writeTagged(tag Tag, corr uuid.UUID, withPayload bool) error {
	if _, err := fw.w.Write([]byte{byte(tag)}); err != nil {
		return err
	}
	if tag != RPC {
		if _, err := fw.w.Write(corr[:]); err != nil {
			return err
		}
	}
	if !withPayload {
		return nil
	}
	var lenBuf [8]byte
	binary.NativeEndian.PutUint64(lenBuf[:], uint64(len(fw.buf)))
	if _, err := fw.w.Write(lenBuf[:]); err != nil {
		return err
	}
	if len(fw.buf) == 0 {
		return nil
	}
	_, err := fw.w.Write(fw.buf)
	return err
}

// Reader deserializes frames from an io.Reader. Not safe for concurrent use;
// the Rx event loop is the sole reader of the inbound pipe.
type Reader struct {
	r   io.Reader
	buf []byte
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadTag reads the single tag byte that begins every frame.
func (fr *Reader) ReadTag() (Tag, error) {
	var b [1]byte
	if _, err := io.ReadFull(fr.r, b[:]); err != nil {
		return 0, err
	}
	switch Tag(b[0]) {
	case RPC, REQUEST, ResponseSome, ResponseNone:
		return Tag(b[0]), nil
	default:
		return 0, ErrBadTag
	}
}

// ReadCorrelation reads the 16-byte correlation id following the tag for
// REQUEST, RESPONSE_SOME, and RESPONSE_NONE frames.
func (fr *Reader) ReadCorrelation() (uuid.UUID, error) {
	var b [16]byte
	if _, err := io.ReadFull(fr.r, b[:]); err != nil {
		return uuid.Nil, err
	}
	return uuid.UUID(b), nil
}

// ReadPayload reads the length-prefixed payload that follows for RPC,
// REQUEST, and RESPONSE_SOME frames. The returned slice aliases the
// Reader's internal scratch buffer and is only valid until the next call.
func (fr *Reader) ReadPayload() ([]byte, error) {
	var lenBuf [8]byte
	if _, err := io.ReadFull(fr.r, lenBuf[:]); err != nil {
		return nil, err
	}
	length := binary.NativeEndian.Uint64(lenBuf[:])
	if length > math.MaxInt {
		return nil, ErrTooLarge
	}
	n := int(length)
	if cap(fr.buf) < n {
		fr.buf = make([]byte, n)
	} else {
		fr.buf = fr.buf[:n]
	}
	if n == 0 {
		return fr.buf, nil
	}
	if _, err := io.ReadFull(fr.r, fr.buf); err != nil {
		return nil, err
	}
	return fr.buf, nil
}
