package permission

import (
	"encoding/binary"
	"errors"
)

// Mask is the interface satisfied by both bitmask widths ([Mask64],
// [Mask128]). The top bit is always reserved for the wildcard.
type Mask interface {
	Has(bit int) bool
	Set(bit int)
	SetWildcard()
	Wildcard() bool
}

type Mask64 uint64

func (m *Mask64) Has(bit int) bool {
	if m.Wildcard() {
		return true
	}
	if bit < 0 || bit >= 63 {
		return false
	}
	return (*m & (1 << bit)) != 0
}

func (m *Mask64) Set(bit int) {
	if bit < 0 || bit >= 63 {
		return
	}
	*m |= (1 << bit)
}

func (m *Mask64) SetWildcard() {
	*m |= (1 << 63)
}

func (m *Mask64) Wildcard() bool {
	return (*m & (1 << 63)) != 0
}

func (m *Mask64) Raw() uint64 {
	return uint64(*m)
}

type Mask128 struct {
	A, B uint64
}

func (m *Mask128) Has(bit int) bool {
	if m.Wildcard() {
		return true
	}
	if bit < 0 || bit >= 127 {
		return false
	}
	if bit < 64 {
		return (m.A & (1 << bit)) != 0
	}
	return (m.B & (1 << (bit - 64))) != 0
}

func (m *Mask128) Set(bit int) {
	if bit < 0 || bit >= 127 {
		return
	}
	if bit < 64 {
		m.A |= (1 << bit)
		return
	}
	m.B |= (1 << (bit - 64))
}

func (m *Mask128) SetWildcard() {
	m.B |= (1 << 63)
}

func (m *Mask128) Wildcard() bool {
	return (m.B & (1 << 63)) != 0
}

// EncodeMask serializes a mask to 8 or 16 big-endian bytes.
func EncodeMask(mask Mask) ([]byte, error) {
	switch m := mask.(type) {
	case *Mask64:
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, uint64(*m))
		return b, nil
	case *Mask128:
		b := make([]byte, 16)
		binary.BigEndian.PutUint64(b[0:8], m.A)
		binary.BigEndian.PutUint64(b[8:16], m.B)
		return b, nil
	default:
		return nil, errors.New("invalid mask type")
	}
}

// DecodeMask is the inverse of [EncodeMask]; mask width is inferred from
// the payload size.
func DecodeMask(data []byte) (Mask, error) {
	switch len(data) {
	case 8:
		m := Mask64(binary.BigEndian.Uint64(data))
		return &m, nil
	case 16:
		return &Mask128{
			A: binary.BigEndian.Uint64(data[0:8]),
			B: binary.BigEndian.Uint64(data[8:16]),
		}, nil
	default:
		return nil, errors.New("invalid mask size")
	}
}

func newMask(maxBits int) (Mask, error) {
	switch maxBits {
	case 64:
		m := Mask64(0)
		return &m, nil
	case 128:
		return &Mask128{}, nil
	default:
		return nil, errors.New("invalid maxBits")
	}
}
