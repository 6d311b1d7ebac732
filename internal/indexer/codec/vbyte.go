package codec

import (
	"math"

	apperrors "github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/errors"
)

const terminator = 0x80

// VByte gap-encodes postings and writes every integer as base-128 digits,
// most significant first, one byte per digit. The last digit of a number has
// the high bit set.
type VByte struct{}

func (VByte) Name() string { return "vbyte" }

func (VByte) ID() uint8 { return VByteID }

// EncodePostings expects docIDs in strictly ascending order.
func (VByte) EncodePostings(docIDs []uint32) []byte {
	out := make([]byte, 0, len(docIDs)*2)
	var prev uint32
	for _, id := range docIDs {
		out = AppendVByte(out, id-prev)
		prev = id
	}
	return out
}

func (VByte) DecodePostings(data []byte) ([]uint32, error) {
	gaps, err := decodeVByte(data)
	if err != nil {
		return nil, err
	}
	var sum uint64
	for i, g := range gaps {
		sum += uint64(g)
		if sum > math.MaxUint32 {
			return nil, apperrors.New(apperrors.ErrDecode, "docID prefix sum overflows uint32")
		}
		gaps[i] = uint32(sum)
	}
	return gaps, nil
}

func (VByte) EncodeTF(tfs []uint32) []byte {
	out := make([]byte, 0, len(tfs))
	for _, tf := range tfs {
		out = AppendVByte(out, tf)
	}
	return out
}

func (VByte) DecodeTF(data []byte) ([]uint32, error) {
	return decodeVByte(data)
}

// AppendVByte appends the variable-byte encoding of n to dst.
func AppendVByte(dst []byte, n uint32) []byte {
	var digits [5]byte
	i := len(digits)
	for {
		i--
		digits[i] = byte(n % 128)
		if n < 128 {
			break
		}
		n /= 128
	}
	digits[len(digits)-1] |= terminator
	return append(dst, digits[i:]...)
}

// VByteLen returns the number of bytes AppendVByte writes for n.
func VByteLen(n uint32) int {
	width := 1
	for n >= 128 {
		n /= 128
		width++
	}
	return width
}

func decodeVByte(data []byte) ([]uint32, error) {
	out := make([]uint32, 0, len(data))
	var n uint64
	pending := false
	for _, b := range data {
		n = 128*n + uint64(b&^terminator)
		if n > math.MaxUint32 {
			return nil, apperrors.New(apperrors.ErrDecode, "variable-byte value overflows uint32")
		}
		if b < terminator {
			pending = true
			continue
		}
		out = append(out, uint32(n))
		n = 0
		pending = false
	}
	if pending {
		return nil, apperrors.New(apperrors.ErrDecode, "variable-byte stream ends mid-value")
	}
	return out, nil
}
