// Package codec encodes postings lists and their term-frequency lists to the
// byte sequences stored in a postings file. Two strategies exist: Fixed, one
// 4-byte word per integer, and VByte, gap plus variable-byte compression.
// An index records which codec built it so readers decode consistently.
package codec

import (
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/errors"
)

// Codec converts docID and term-frequency lists to and from bytes.
// Encoding an empty list yields an empty slice; the index writer rejects
// empty lists before they reach a codec.
type Codec interface {
	Name() string
	ID() uint8
	EncodePostings(docIDs []uint32) []byte
	DecodePostings(data []byte) ([]uint32, error)
	EncodeTF(tfs []uint32) []byte
	DecodeTF(data []byte) ([]uint32, error)
}

const (
	FixedID uint8 = 1
	VByteID uint8 = 2
)

var registry = map[uint8]Codec{
	FixedID: Fixed{},
	VByteID: VByte{},
}

// ByName resolves a codec from its configuration name.
func ByName(name string) (Codec, error) {
	for _, c := range registry {
		if c.Name() == name {
			return c, nil
		}
	}
	return nil, apperrors.Newf(apperrors.ErrInvalidInput, "unknown codec %q", name)
}

// ByID resolves a codec from the id stored in an index header.
func ByID(id uint8) (Codec, error) {
	c, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("codec id %d: %w", id, apperrors.ErrCorruptIndex)
	}
	return c, nil
}
