package segment

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/indexer/codec"
	apperrors "github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/errors"
)

// MagicBytes identifies a valid .dict index directory file ("BSBI").
const (
	MagicBytes    uint32 = 0x42534249
	FormatVersion uint32 = 1
	HeaderSize    int    = 64
	FooterSize    int    = 8

	dirEntrySize    = 24
	docLenEntrySize = 8

	PostingsExt = ".postings"
	DictExt     = ".dict"
	tmpExt      = ".tmp"
)

// Header is the 64-byte header written at the start of every .dict file.
type Header struct {
	Magic        uint32
	Version      uint32
	CodecID      uint8
	TermCount    uint32
	DocCount     uint32
	CreatedAt    int64
	PostingsSize uint64
	DirOffset    uint64
	DocLenOffset uint64
}

// DirEntry locates one term's encoded postings and term frequencies inside
// the .postings file. The tf bytes follow the postings bytes directly.
type DirEntry struct {
	TermID  uint32
	Offset  int64
	PostLen uint32
	TFLen   uint32
	DocFreq uint32
}

// Writer builds one index: a .postings file written as terms are appended
// and a .dict file holding the directory and document-length table written
// on Close. Both are staged as .tmp files and renamed into place on Close.
type Writer struct {
	dir        string
	name       string
	codec      codec.Codec
	file       *os.File
	buf        *bufio.Writer
	offset     int64
	entries    []DirEntry
	docLengths map[uint32]uint32
	lastTerm   uint32
	started    bool
	done       bool
}

// Create opens a Writer for index name under dir, truncating any staged
// files left by an earlier run.
func Create(dir, name string, c codec.Codec) (*Writer, error) {
	if name == "" {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "index name must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, name+PostingsExt+tmpExt))
	if err != nil {
		return nil, fmt.Errorf("creating temp postings file: %w", err)
	}
	return &Writer{
		dir:        dir,
		name:       name,
		codec:      c,
		file:       f,
		buf:        bufio.NewWriterSize(f, 64*1024),
		docLengths: make(map[uint32]uint32),
	}, nil
}

// Append encodes one term's postings and term frequencies. termID must be
// greater than every termID appended before; docIDs must be non-empty,
// strictly ascending and matched one-to-one by tfs, each tf at least 1.
func (w *Writer) Append(termID uint32, docIDs, tfs []uint32) error {
	if w.done {
		return apperrors.Newf(apperrors.ErrInvalidInput, "index %s already closed", w.name)
	}
	if w.started && termID <= w.lastTerm {
		return apperrors.Newf(apperrors.ErrOutOfOrder, "term %d after %d in index %s", termID, w.lastTerm, w.name)
	}
	if len(docIDs) == 0 || len(tfs) == 0 {
		return apperrors.Newf(apperrors.ErrEmptyPostings, "term %d in index %s", termID, w.name)
	}
	if len(docIDs) != len(tfs) {
		return apperrors.Newf(apperrors.ErrInvalidInput,
			"term %d: %d postings but %d term frequencies", termID, len(docIDs), len(tfs))
	}
	for i := range docIDs {
		if i > 0 && docIDs[i] <= docIDs[i-1] {
			return apperrors.Newf(apperrors.ErrInvalidInput,
				"term %d: postings not strictly ascending at position %d", termID, i)
		}
		if tfs[i] == 0 {
			return apperrors.Newf(apperrors.ErrInvalidInput,
				"term %d: zero term frequency for doc %d", termID, docIDs[i])
		}
	}

	postingsData := w.codec.EncodePostings(docIDs)
	tfData := w.codec.EncodeTF(tfs)
	if _, err := w.buf.Write(postingsData); err != nil {
		return fmt.Errorf("writing postings for term %d: %w", termID, err)
	}
	if _, err := w.buf.Write(tfData); err != nil {
		return fmt.Errorf("writing term frequencies for term %d: %w", termID, err)
	}
	w.entries = append(w.entries, DirEntry{
		TermID:  termID,
		Offset:  w.offset,
		PostLen: uint32(len(postingsData)),
		TFLen:   uint32(len(tfData)),
		DocFreq: uint32(len(docIDs)),
	})
	w.offset += int64(len(postingsData) + len(tfData))
	for i, docID := range docIDs {
		w.docLengths[docID] += tfs[i]
	}
	w.lastTerm = termID
	w.started = true
	return nil
}

// Terms returns the number of terms appended so far.
func (w *Writer) Terms() int {
	return len(w.entries)
}

// BytesWritten is the size of the postings data appended so far.
func (w *Writer) BytesWritten() int64 {
	return w.offset
}

// Close flushes the postings file, writes the directory file and renames
// both into place. It is a no-op after a successful Close or an Abort.
func (w *Writer) Close() error {
	if w.done {
		return nil
	}
	if err := w.finish(); err != nil {
		w.Abort()
		return err
	}
	w.done = true
	return nil
}

// Abort discards the staged files. It is a no-op after Close, so callers can
// defer it unconditionally.
func (w *Writer) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	w.file.Close()
	err := os.Remove(w.tmpPath(PostingsExt))
	if rmErr := os.Remove(w.tmpPath(DictExt)); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
		err = rmErr
	}
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing staged index files: %w", err)
	}
	return nil
}

func (w *Writer) finish() error {
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("flushing postings file: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("syncing postings file: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("closing postings file: %w", err)
	}

	docIDs := make([]uint32, 0, len(w.docLengths))
	for docID := range w.docLengths {
		docIDs = append(docIDs, docID)
	}
	slices.Sort(docIDs)

	header := Header{
		Magic:        MagicBytes,
		Version:      FormatVersion,
		CodecID:      w.codec.ID(),
		TermCount:    uint32(len(w.entries)),
		DocCount:     uint32(len(docIDs)),
		CreatedAt:    time.Now().Unix(),
		PostingsSize: uint64(w.offset),
		DirOffset:    uint64(HeaderSize),
		DocLenOffset: uint64(HeaderSize + len(w.entries)*dirEntrySize),
	}

	body := make([]byte, 0, len(w.entries)*dirEntrySize+len(docIDs)*docLenEntrySize)
	for _, e := range w.entries {
		body = binary.LittleEndian.AppendUint32(body, e.TermID)
		body = binary.LittleEndian.AppendUint64(body, uint64(e.Offset))
		body = binary.LittleEndian.AppendUint32(body, e.PostLen)
		body = binary.LittleEndian.AppendUint32(body, e.TFLen)
		body = binary.LittleEndian.AppendUint32(body, e.DocFreq)
	}
	for _, docID := range docIDs {
		body = binary.LittleEndian.AppendUint32(body, docID)
		body = binary.LittleEndian.AppendUint32(body, w.docLengths[docID])
	}
	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc32.ChecksumIEEE(body))
	binary.LittleEndian.PutUint32(footer[4:8], MagicBytes)

	f, err := os.Create(w.tmpPath(DictExt))
	if err != nil {
		return fmt.Errorf("creating temp directory file: %w", err)
	}
	defer f.Close()
	for _, chunk := range [][]byte{encodeHeader(header), body, footer} {
		if _, err := f.Write(chunk); err != nil {
			return fmt.Errorf("writing directory file: %w", err)
		}
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing directory file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing directory file: %w", err)
	}

	// The two renames are not atomic together. If the directory file cannot
	// be moved, the new postings file is removed again so the index is
	// missing rather than paired with an older directory.
	postingsPath := Path(w.dir, w.name, PostingsExt)
	if err := os.Rename(w.tmpPath(PostingsExt), postingsPath); err != nil {
		return fmt.Errorf("renaming postings file: %w", err)
	}
	if err := os.Rename(w.tmpPath(DictExt), Path(w.dir, w.name, DictExt)); err != nil {
		if rmErr := os.Remove(postingsPath); rmErr != nil && !os.IsNotExist(rmErr) {
			return fmt.Errorf("renaming directory file: %w (removing postings file: %v)", err, rmErr)
		}
		return fmt.Errorf("renaming directory file: %w", err)
	}
	return nil
}

func (w *Writer) tmpPath(ext string) string {
	return Path(w.dir, w.name, ext) + tmpExt
}

func encodeHeader(h Header) []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint32(b[4:8], h.Version)
	b[8] = h.CodecID
	binary.LittleEndian.PutUint32(b[12:16], h.TermCount)
	binary.LittleEndian.PutUint32(b[16:20], h.DocCount)
	binary.LittleEndian.PutUint64(b[20:28], uint64(h.CreatedAt))
	binary.LittleEndian.PutUint64(b[28:36], h.PostingsSize)
	binary.LittleEndian.PutUint64(b[36:44], h.DirOffset)
	binary.LittleEndian.PutUint64(b[44:52], h.DocLenOffset)
	return b
}

func decodeHeader(b []byte) Header {
	return Header{
		Magic:        binary.LittleEndian.Uint32(b[0:4]),
		Version:      binary.LittleEndian.Uint32(b[4:8]),
		CodecID:      b[8],
		TermCount:    binary.LittleEndian.Uint32(b[12:16]),
		DocCount:     binary.LittleEndian.Uint32(b[16:20]),
		CreatedAt:    int64(binary.LittleEndian.Uint64(b[20:28])),
		PostingsSize: binary.LittleEndian.Uint64(b[28:36]),
		DirOffset:    binary.LittleEndian.Uint64(b[36:44]),
		DocLenOffset: binary.LittleEndian.Uint64(b[44:52]),
	}
}

// Path returns the on-disk path of one of an index's files.
func Path(dir, name, ext string) string {
	return filepath.Join(dir, name+ext)
}

// Remove deletes both files of a finished index.
func Remove(dir, name string) error {
	for _, ext := range []string{DictExt, PostingsExt} {
		if err := os.Remove(Path(dir, name, ext)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing index %s: %w", name, err)
		}
	}
	return nil
}
