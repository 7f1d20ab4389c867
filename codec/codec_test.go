package codec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name  string
		value any
	}{
		{"string", "hello"},
		{"number", float64(42.5)},
		{"slice", []any{"A", "B", float64(3)}},
		{"map", map[string]any{"name": "till-1", "open": true}},
		{"empty string", ""},
		{"unicode", "نقطة البيع"},
		{"nil", nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			artifact, err := Encode(tc.value, "install-key-1")
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if !strings.HasPrefix(artifact, VersionTag) {
				t.Fatalf("artifact missing version tag: %q", artifact)
			}

			var out any
			if err := Decode(artifact, "install-key-1", &out); err != nil {
				t.Fatalf("Decode failed: %v", err)
			}

			switch want := tc.value.(type) {
			case []any:
				got, ok := out.([]any)
				if !ok || len(got) != len(want) {
					t.Fatalf("round trip mismatch: got %#v want %#v", out, want)
				}
			case map[string]any:
				got, ok := out.(map[string]any)
				if !ok || len(got) != len(want) {
					t.Fatalf("round trip mismatch: got %#v want %#v", out, want)
				}
				for k, v := range want {
					if got[k] != v {
						t.Fatalf("round trip mismatch at %q: got %#v want %#v", k, got[k], v)
					}
				}
			default:
				if out != tc.value {
					t.Fatalf("round trip mismatch: got %#v want %#v", out, tc.value)
				}
			}
		})
	}
}

func TestEncodeEmptyKeyRejected(t *testing.T) {
	if _, err := Encode("x", ""); !errors.Is(err, ErrEncoding) {
		t.Fatalf("expected ErrEncoding, got %v", err)
	}
}

func TestDecodeWrongKeyFailsIntegrityOrEncoding(t *testing.T) {
	artifact, err := Encode(map[string]string{"a": "b"}, "right-key")
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var out any
	err = Decode(artifact, "wrong-key", &out)
	if err == nil {
		t.Fatal("expected decode failure with wrong key")
	}
	if !errors.Is(err, ErrIntegrity) && !errors.Is(err, ErrEncoding) {
		t.Fatalf("expected ErrIntegrity or ErrEncoding, got %v", err)
	}
}

func TestDecodeTamperedCiphertext(t *testing.T) {
	artifact, err := Encode(strings.Repeat("inventory line ", 20), "tamper-key")
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(artifact, VersionTag))
	if err != nil {
		t.Fatalf("base64 decode failed: %v", err)
	}

	detected := 0
	for i := range raw {
		flipped := make([]byte, len(raw))
		copy(flipped, raw)
		flipped[i] ^= 0x01

		tampered := VersionTag + base64.StdEncoding.EncodeToString(flipped)
		var out any
		if err := Decode(tampered, "tamper-key", &out); err != nil {
			detected++
		}
	}

	if detected != len(raw) {
		t.Fatalf("tampering went undetected for %d of %d positions", len(raw)-detected, len(raw))
	}
}

func TestDecodeLegacyPlaintext(t *testing.T) {
	var out []string
	if err := Decode(`["A","B"]`, "any-key", &out); err != nil {
		t.Fatalf("legacy decode failed: %v", err)
	}
	if len(out) != 2 || out[0] != "A" || out[1] != "B" {
		t.Fatalf("legacy decode mismatch: %#v", out)
	}
}

func TestDecodeLegacyGarbage(t *testing.T) {
	var out any
	if err := Decode("not json at all", "k", &out); !errors.Is(err, ErrEncoding) {
		t.Fatalf("expected ErrEncoding, got %v", err)
	}
}

func TestTransformInvolution(t *testing.T) {
	data := []byte("any bytes at all \x00\x01\xff with runs aaaaaaaa")
	key := []byte("k3y")

	if got := Transform(Transform(data, key), key); !bytes.Equal(got, data) {
		t.Fatalf("transform not involutive: got %q want %q", got, data)
	}
}

func TestTransformEmptyKeyIsIdentity(t *testing.T) {
	data := []byte{1, 2, 3}
	if got := Transform(data, nil); !bytes.Equal(got, data) {
		t.Fatalf("empty-key transform altered data: %v", got)
	}
}

func TestChecksumDeterministic(t *testing.T) {
	a := Checksum([]byte("payload"))
	b := Checksum([]byte("payload"))
	if a != b {
		t.Fatalf("checksum not deterministic: %s vs %s", a, b)
	}
	if len(a) != 8 {
		t.Fatalf("checksum not 8 hex chars: %q", a)
	}
	if a == Checksum([]byte("payloae")) {
		t.Fatal("distinct inputs collided on trivial change")
	}
}

func TestCompactionRoundTrip(t *testing.T) {
	cases := [][]byte{
		[]byte("short"),
		bytes.Repeat([]byte("a"), 500),
		append(bytes.Repeat([]byte{rleMarker}, 10), []byte("tail")...),
		[]byte(strings.Repeat("abc", 100)),
	}

	for _, data := range cases {
		out, err := decompact(compact(data))
		if err != nil {
			t.Fatalf("decompact failed for %d bytes: %v", len(data), err)
		}
		if !bytes.Equal(out, data) {
			t.Fatalf("compaction round trip mismatch for %d bytes", len(data))
		}
	}
}

func TestCompactionOnlyShrinks(t *testing.T) {
	// Incompressible payload above the threshold must be stored raw.
	data := make([]byte, 200)
	for i := range data {
		data[i] = byte(i * 7)
	}
	framed := compact(data)
	if framed[0] != compactionNone {
		t.Fatal("incompressible payload was RLE framed")
	}

	// A long run above the threshold must compact.
	runs := bytes.Repeat([]byte("x"), 400)
	framed = compact(runs)
	if framed[0] != compactionRLE {
		t.Fatal("long-run payload was not RLE framed")
	}
	if len(framed) >= len(runs) {
		t.Fatalf("RLE frame did not shrink: %d >= %d", len(framed), len(runs))
	}
}

func TestCompactionBelowThresholdSkipped(t *testing.T) {
	data := bytes.Repeat([]byte("z"), compactionThreshold)
	if framed := compact(data); framed[0] != compactionNone {
		t.Fatal("payload at threshold should not be compacted")
	}
}

func TestDecompactMalformed(t *testing.T) {
	if _, err := decompact(nil); err == nil {
		t.Fatal("expected error for empty frame")
	}
	if _, err := decompact([]byte{0x07}); err == nil {
		t.Fatal("expected error for unknown header")
	}
	if _, err := decompact([]byte{compactionRLE, rleMarker}); err == nil {
		t.Fatal("expected error for truncated escape")
	}
	if _, err := decompact([]byte{compactionRLE, rleMarker, 5}); err == nil {
		t.Fatal("expected error for truncated run")
	}
}
