package wire_test

import (
	"bytes"
	"testing"

	"github.com/momentics/ws-endpoint/wire"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		payload []byte
	}{
		{"empty", nil},
		{"short", []byte("hello")},
		{"medium-126", bytes.Repeat([]byte{'a'}, 200)},
		{"large-127", bytes.Repeat([]byte{'b'}, 70000)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := wire.Frame{Opcode: wire.OpcodeBinary, Fin: true, Payload: tc.payload}
			enc, err := wire.Encode(f)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			got, n, err := wire.Decode(enc)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if n != len(enc) {
				t.Errorf("consumed %d, want %d", n, len(enc))
			}
			if !bytes.Equal(got.Payload, tc.payload) {
				t.Errorf("payload mismatch: got %q want %q", got.Payload, tc.payload)
			}
			if got.Opcode != wire.OpcodeBinary || !got.Fin {
				t.Errorf("frame header mismatch: %+v", got)
			}
		})
	}
}

func TestDecodeTooShort(t *testing.T) {
	if _, _, err := wire.Decode([]byte{0x82}); err != wire.ErrFrameTooShort {
		t.Fatalf("got %v, want ErrFrameTooShort", err)
	}
}

func TestDecodeControlFragmented(t *testing.T) {
	// non-final ping frame (FIN bit clear) must be rejected.
	raw := []byte{0x09, 0x00}
	if _, _, err := wire.Decode(raw); err != wire.ErrControlFragmented {
		t.Fatalf("got %v, want ErrControlFragmented", err)
	}
}
