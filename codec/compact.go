package codec

import "errors"

const (
	// compactionThreshold is the payload size above which run-length
	// compaction is attempted.
	compactionThreshold = 100

	compactionNone byte = 0x00
	compactionRLE  byte = 0x01

	// rleMarker never occurs in JSON text, but escaping keeps the scheme
	// correct for arbitrary input.
	rleMarker   byte = 0x00
	rleMinRun        = 4
	rleMaxCount      = 255
)

// compact prepends a one-byte header describing whether run-length
// encoding was applied. RLE is attempted only above the size threshold
// and kept only when it strictly shrinks the payload.
func compact(data []byte) []byte {
	if len(data) > compactionThreshold {
		encoded := rleEncode(data)
		if len(encoded) < len(data) {
			out := make([]byte, 0, len(encoded)+1)
			out = append(out, compactionRLE)
			return append(out, encoded...)
		}
	}

	out := make([]byte, 0, len(data)+1)
	out = append(out, compactionNone)
	return append(out, data...)
}

func decompact(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty compaction frame")
	}

	switch data[0] {
	case compactionNone:
		return data[1:], nil
	case compactionRLE:
		return rleDecode(data[1:])
	default:
		return nil, errors.New("unknown compaction header")
	}
}

// rleEncode emits [marker, count, byte] for runs of rleMinRun or longer
// and [marker, 0] to escape a literal marker byte.
func rleEncode(data []byte) []byte {
	out := make([]byte, 0, len(data))

	for i := 0; i < len(data); {
		b := data[i]
		run := 1
		for i+run < len(data) && data[i+run] == b && run < rleMaxCount {
			run++
		}

		switch {
		case run >= rleMinRun:
			out = append(out, rleMarker, byte(run), b)
			i += run
		case b == rleMarker:
			out = append(out, rleMarker, 0)
			i++
		default:
			out = append(out, b)
			i++
		}
	}

	return out
}

func rleDecode(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data)*2)

	for i := 0; i < len(data); {
		if data[i] != rleMarker {
			out = append(out, data[i])
			i++
			continue
		}
		if i+1 >= len(data) {
			return nil, errors.New("truncated rle escape")
		}
		count := int(data[i+1])
		if count == 0 {
			out = append(out, rleMarker)
			i += 2
			continue
		}
		if i+2 >= len(data) {
			return nil, errors.New("truncated rle run")
		}
		for j := 0; j < count; j++ {
			out = append(out, data[i+2])
		}
		i += 3
	}

	return out, nil
}
