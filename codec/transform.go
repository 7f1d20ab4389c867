package codec

import "fmt"

// Transform applies the position-dependent XOR stream to data. Byte i is
// combined with key[i mod n] and with key[(i + i/n) mod n], the rotating
// second keystream. XOR is involutive, so Transform(Transform(x, k), k)
// returns x for every x and non-empty k.
func Transform(data, key []byte) []byte {
	if len(key) == 0 {
		out := make([]byte, len(data))
		copy(out, data)
		return out
	}

	n := len(key)
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ key[i%n] ^ key[(i+i/n)%n]
	}
	return out
}

// Checksum returns the hex form of the 32-bit rolling hash over data.
// Deterministic and cheap; detects corruption, not adversaries.
func Checksum(data []byte) string {
	var h uint32
	for _, b := range data {
		h = h*31 + uint32(b)
	}
	return fmt.Sprintf("%08x", h)
}
