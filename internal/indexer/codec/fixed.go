package codec

import (
	"encoding/binary"

	apperrors "github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/errors"
)

const wordSize = 4

// Fixed stores every integer as an uncompressed native-endian uint32.
type Fixed struct{}

func (Fixed) Name() string { return "fixed" }

func (Fixed) ID() uint8 { return FixedID }

func (Fixed) EncodePostings(docIDs []uint32) []byte { return encodeWords(docIDs) }

func (Fixed) DecodePostings(data []byte) ([]uint32, error) { return decodeWords(data) }

func (Fixed) EncodeTF(tfs []uint32) []byte { return encodeWords(tfs) }

func (Fixed) DecodeTF(data []byte) ([]uint32, error) { return decodeWords(data) }

func encodeWords(values []uint32) []byte {
	out := make([]byte, 0, len(values)*wordSize)
	for _, v := range values {
		out = binary.NativeEndian.AppendUint32(out, v)
	}
	return out
}

func decodeWords(data []byte) ([]uint32, error) {
	if len(data)%wordSize != 0 {
		return nil, apperrors.Newf(apperrors.ErrDecode,
			"fixed-width stream of %d bytes is not a multiple of %d", len(data), wordSize)
	}
	out := make([]uint32, len(data)/wordSize)
	for i := range out {
		out[i] = binary.NativeEndian.Uint32(data[i*wordSize:])
	}
	return out, nil
}
