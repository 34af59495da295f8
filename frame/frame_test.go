package frame

import (
	"bytes"
	"io"
	"testing"

	"github.com/google/uuid"
)

func encodeBytes(payload []byte) func([]byte) ([]byte, error) {
	return func(buf []byte) ([]byte, error) {
		return append(buf, payload...), nil
	}
}

func TestRPCRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.EncodeRPC(encodeBytes([]byte("moo"))); err != nil {
		t.Fatalf("encode: %v", err)
	}

	r := NewReader(&buf)
	tag, err := r.ReadTag()
	if err != nil {
		t.Fatalf("read tag: %v", err)
	}
	if tag != RPC {
		t.Fatalf("got tag %v, want RPC", tag)
	}
	payload, err := r.ReadPayload()
	if err != nil {
		t.Fatalf("read payload: %v", err)
	}
	if string(payload) != "moo" {
		t.Fatalf("got payload %q, want moo", payload)
	}
}

func TestRequestResponseRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	corr := uuid.New()

	if err := w.EncodeRequest(corr, encodeBytes([]byte("hi"))); err != nil {
		t.Fatalf("encode request: %v", err)
	}
	if err := w.EncodeResponseSome(corr, encodeBytes([]byte("bye"))); err != nil {
		t.Fatalf("encode response: %v", err)
	}
	if err := w.EncodeResponseNone(corr); err != nil {
		t.Fatalf("encode response none: %v", err)
	}

	r := NewReader(&buf)

	tag, err := r.ReadTag()
	if err != nil || tag != REQUEST {
		t.Fatalf("tag = %v, %v; want REQUEST", tag, err)
	}
	gotCorr, err := r.ReadCorrelation()
	if err != nil || gotCorr != corr {
		t.Fatalf("correlation = %v, %v; want %v", gotCorr, err, corr)
	}
	payload, err := r.ReadPayload()
	if err != nil || string(payload) != "hi" {
		t.Fatalf("payload = %q, %v; want hi", payload, err)
	}

	tag, err = r.ReadTag()
	if err != nil || tag != ResponseSome {
		t.Fatalf("tag = %v, %v; want RESPONSE_SOME", tag, err)
	}
	gotCorr, err = r.ReadCorrelation()
	if err != nil || gotCorr != corr {
		t.Fatalf("correlation = %v, %v; want %v", gotCorr, err, corr)
	}
	payload, err = r.ReadPayload()
	if err != nil || string(payload) != "bye" {
		t.Fatalf("payload = %q, %v; want bye", payload, err)
	}

	tag, err = r.ReadTag()
	if err != nil || tag != ResponseNone {
		t.Fatalf("tag = %v, %v; want RESPONSE_NONE", tag, err)
	}
	gotCorr, err = r.ReadCorrelation()
	if err != nil || gotCorr != corr {
		t.Fatalf("correlation = %v, %v; want %v", gotCorr, err, corr)
	}
}

func TestReadBadTag(t *testing.T) {
	buf := bytes.NewReader([]byte{0x7f})
	r := NewReader(buf)
	if _, err := r.ReadTag(); err != ErrBadTag {
		t.Fatalf("err = %v, want ErrBadTag", err)
	}
}

func TestReadTruncatedStreamIsEOF(t *testing.T) {
	buf := bytes.NewReader(nil)
	r := NewReader(buf)
	if _, err := r.ReadTag(); err != io.EOF {
		t.Fatalf("err = %v, want io.EOF", err)
	}
}

func TestEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.EncodeRPC(encodeBytes(nil)); err != nil {
		t.Fatalf("encode: %v", err)
	}

	r := NewReader(&buf)
	if _, err := r.ReadTag(); err != nil {
		t.Fatalf("read tag: %v", err)
	}
	payload, err := r.ReadPayload()
	if err != nil {
		t.Fatalf("read payload: %v", err)
	}
	if len(payload) != 0 {
		t.Fatalf("got payload %v, want empty", payload)
	}
}
