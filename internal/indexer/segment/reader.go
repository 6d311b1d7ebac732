package segment

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"maps"
	"os"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/indexer/codec"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/errors"
)

// Reader serves one finished index. The directory and document-length table
// are held in memory; postings are read on demand with ReadAt, so a Reader is
// safe for concurrent lookups.
type Reader struct {
	file        *os.File
	dir         string
	name        string
	header      Header
	codec       codec.Codec
	dict        []DirEntry
	docLengths  map[uint32]uint32
	totalLength uint64
}

// Open loads the directory of index name under dir and keeps its postings
// file open until Close.
func Open(dir, name string) (*Reader, error) {
	data, err := os.ReadFile(Path(dir, name, DictExt))
	if err != nil {
		return nil, fmt.Errorf("reading directory file: %w", err)
	}
	if len(data) < HeaderSize+FooterSize {
		return nil, corrupt(name, "directory file truncated to %d bytes", len(data))
	}
	header := decodeHeader(data[:HeaderSize])
	if header.Magic != MagicBytes {
		return nil, corrupt(name, "bad magic bytes %x", header.Magic)
	}
	if header.Version != FormatVersion {
		return nil, corrupt(name, "unsupported format version %d", header.Version)
	}
	c, err := codec.ByID(header.CodecID)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", name, err)
	}
	dirLen := int(header.TermCount) * dirEntrySize
	docLen := int(header.DocCount) * docLenEntrySize
	if len(data) != HeaderSize+dirLen+docLen+FooterSize ||
		header.DirOffset != uint64(HeaderSize) ||
		header.DocLenOffset != uint64(HeaderSize+dirLen) {
		return nil, corrupt(name, "directory size does not match %d terms and %d documents",
			header.TermCount, header.DocCount)
	}
	body := data[HeaderSize : HeaderSize+dirLen+docLen]
	footer := data[HeaderSize+dirLen+docLen:]
	if crc32.ChecksumIEEE(body) != binary.LittleEndian.Uint32(footer[0:4]) ||
		binary.LittleEndian.Uint32(footer[4:8]) != MagicBytes {
		return nil, corrupt(name, "directory checksum mismatch")
	}

	dict := make([]DirEntry, header.TermCount)
	var expectOffset int64
	for i := range dict {
		b := body[i*dirEntrySize:]
		e := DirEntry{
			TermID:  binary.LittleEndian.Uint32(b[0:4]),
			Offset:  int64(binary.LittleEndian.Uint64(b[4:12])),
			PostLen: binary.LittleEndian.Uint32(b[12:16]),
			TFLen:   binary.LittleEndian.Uint32(b[16:20]),
			DocFreq: binary.LittleEndian.Uint32(b[20:24]),
		}
		if i > 0 && e.TermID <= dict[i-1].TermID {
			return nil, corrupt(name, "directory not ascending at entry %d", i)
		}
		if e.Offset != expectOffset || e.DocFreq == 0 {
			return nil, corrupt(name, "bad directory entry for term %d", e.TermID)
		}
		expectOffset += int64(e.PostLen) + int64(e.TFLen)
		dict[i] = e
	}
	if uint64(expectOffset) != header.PostingsSize {
		return nil, corrupt(name, "directory covers %d postings bytes, header says %d", expectOffset, header.PostingsSize)
	}

	docLengths := make(map[uint32]uint32, header.DocCount)
	var total uint64
	for i := 0; i < int(header.DocCount); i++ {
		b := body[dirLen+i*docLenEntrySize:]
		length := binary.LittleEndian.Uint32(b[4:8])
		docLengths[binary.LittleEndian.Uint32(b[0:4])] = length
		total += uint64(length)
	}

	f, err := os.Open(Path(dir, name, PostingsExt))
	if err != nil {
		return nil, fmt.Errorf("opening postings file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat postings file: %w", err)
	}
	if uint64(info.Size()) != header.PostingsSize {
		f.Close()
		return nil, corrupt(name, "postings file is %d bytes, header says %d", info.Size(), header.PostingsSize)
	}
	return &Reader{
		file:        f,
		dir:         dir,
		name:        name,
		header:      header,
		codec:       c,
		dict:        dict,
		docLengths:  docLengths,
		totalLength: total,
	}, nil
}

// Postings returns the docIDs and term frequencies of termID. An unknown
// term yields nil slices and no error.
func (r *Reader) Postings(termID uint32) ([]uint32, []uint32, error) {
	entry, ok := r.lookup(termID)
	if !ok {
		return nil, nil, nil
	}
	tp, err := r.decode(entry)
	if err != nil {
		return nil, nil, err
	}
	return tp.DocIDs, tp.TFs, nil
}

// DocFreq returns the number of documents containing termID.
func (r *Reader) DocFreq(termID uint32) int {
	entry, ok := r.lookup(termID)
	if !ok {
		return 0
	}
	return int(entry.DocFreq)
}

func (r *Reader) lookup(termID uint32) (DirEntry, bool) {
	idx := sort.Search(len(r.dict), func(i int) bool {
		return r.dict[i].TermID >= termID
	})
	if idx >= len(r.dict) || r.dict[idx].TermID != termID {
		return DirEntry{}, false
	}
	return r.dict[idx], true
}

func (r *Reader) decode(entry DirEntry) (index.TermPostings, error) {
	data := make([]byte, int(entry.PostLen)+int(entry.TFLen))
	if _, err := r.file.ReadAt(data, entry.Offset); err != nil {
		return index.TermPostings{}, fmt.Errorf("reading postings for term %d: %w", entry.TermID, err)
	}
	docIDs, err := r.codec.DecodePostings(data[:entry.PostLen])
	if err != nil {
		return index.TermPostings{}, fmt.Errorf("index %s term %d: %w", r.name, entry.TermID, err)
	}
	tfs, err := r.codec.DecodeTF(data[entry.PostLen:])
	if err != nil {
		return index.TermPostings{}, fmt.Errorf("index %s term %d: %w", r.name, entry.TermID, err)
	}
	if len(docIDs) != int(entry.DocFreq) || len(tfs) != int(entry.DocFreq) {
		return index.TermPostings{}, corrupt(r.name, "term %d decoded %d postings and %d tfs, want %d",
			entry.TermID, len(docIDs), len(tfs), entry.DocFreq)
	}
	return index.TermPostings{TermID: entry.TermID, DocIDs: docIDs, TFs: tfs}, nil
}

func (r *Reader) Name() string {
	return r.name
}

func (r *Reader) Codec() codec.Codec {
	return r.codec
}

func (r *Reader) Header() Header {
	return r.header
}

func (r *Reader) Terms() int {
	return len(r.dict)
}

// DocCount is N, the number of documents with at least one indexed term.
func (r *Reader) DocCount() int {
	return len(r.docLengths)
}

func (r *Reader) DocLength(docID uint32) uint32 {
	return r.docLengths[docID]
}

func (r *Reader) AvgDocLength() float64 {
	if len(r.docLengths) == 0 {
		return 0
	}
	return float64(r.totalLength) / float64(len(r.docLengths))
}

// DocLengths returns a copy of the document-length table.
func (r *Reader) DocLengths() map[uint32]uint32 {
	return maps.Clone(r.docLengths)
}

func (r *Reader) Close() error {
	return r.file.Close()
}

// Iterator walks every term of the index in ascending termID order.
func (r *Reader) Iterator() *Iterator {
	return &Iterator{r: r, pos: -1}
}

type Iterator struct {
	r   *Reader
	pos int
	cur index.TermPostings
	err error
}

// Next decodes the next term. It returns false at the end of the index or on
// the first decode error, which Err then reports.
func (it *Iterator) Next() bool {
	if it.err != nil || it.pos >= len(it.r.dict) {
		return false
	}
	it.pos++
	if it.pos >= len(it.r.dict) {
		it.cur = index.TermPostings{}
		return false
	}
	tp, err := it.r.decode(it.r.dict[it.pos])
	if err != nil {
		it.err = err
		it.cur = index.TermPostings{}
		return false
	}
	it.cur = tp
	return true
}

func (it *Iterator) Current() index.TermPostings {
	return it.cur
}

func (it *Iterator) Err() error {
	return it.err
}

func corrupt(name, format string, args ...any) error {
	return fmt.Errorf("index %s: %w", name, apperrors.Newf(apperrors.ErrCorruptIndex, format, args...))
}
