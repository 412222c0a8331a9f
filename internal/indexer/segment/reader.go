package segment

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/irbench/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/irbench/pkg/errors"
)

// Reader serves postings from a segment file. The dictionary, ordinal table
// and metadata are held in memory; postings are read on demand with ReadAt,
// so a Reader is safe for concurrent use.
type Reader struct {
	file     *os.File
	filePath string
	header   SegmentHeader
	dict     []DictEntry
	docs     []index.DocEntry
	meta     index.Meta
	postBase int64
}

func corrupt(path, format string, args ...any) error {
	return apperrors.Newf(apperrors.ErrCorruptIndex, "%s: %s", path, fmt.Sprintf(format, args...))
}

// OpenReader validates and loads a segment file. A missing file is reported
// as ErrNotFound; any structural problem as ErrCorruptIndex.
func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.Newf(apperrors.ErrNotFound, "segment file %s", path)
		}
		return nil, fmt.Errorf("opening segment file: %w", err)
	}
	r, err := load(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func load(f *os.File, path string) (*Reader, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat segment file: %w", err)
	}
	size := info.Size()
	if size < int64(HeaderSize+FooterSize) {
		return nil, corrupt(path, "file too small (%d bytes)", size)
	}

	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		return nil, corrupt(path, "reading header: %v", err)
	}
	header := decodeHeader(headerBytes)
	if header.Magic != MagicBytes {
		return nil, corrupt(path, "bad magic bytes %x", header.Magic)
	}
	if header.Version != FormatVersion {
		return nil, corrupt(path, "unsupported format version %d", header.Version)
	}

	limit := size - int64(FooterSize)
	sections := []struct {
		name         string
		offset, size int64
	}{
		{"postings", header.PostOffset, header.PostSize},
		{"dictionary", header.DictOffset, header.DictSize},
		{"documents", header.DocsOffset, header.DocsSize},
		{"meta", header.MetaOffset, header.MetaSize},
	}
	for _, s := range sections {
		if s.offset < int64(HeaderSize) || s.size < 0 || s.offset > limit || s.size > limit-s.offset {
			return nil, corrupt(path, "%s section out of bounds", s.name)
		}
	}

	footer := make([]byte, FooterSize)
	if _, err := f.ReadAt(footer, limit); err != nil {
		return nil, corrupt(path, "reading footer: %v", err)
	}
	if binary.LittleEndian.Uint32(footer[4:8]) != MagicBytes {
		return nil, corrupt(path, "bad footer")
	}

	checksum := crc32.NewIEEE()
	raw := make([][]byte, 0, 3)
	for _, s := range sections[1:] {
		buf := make([]byte, s.size)
		if _, err := f.ReadAt(buf, s.offset); err != nil {
			return nil, corrupt(path, "reading %s: %v", s.name, err)
		}
		checksum.Write(buf)
		raw = append(raw, buf)
	}
	if got, want := checksum.Sum32(), binary.LittleEndian.Uint32(footer[0:4]); got != want {
		return nil, corrupt(path, "checksum mismatch: got %08x, want %08x", got, want)
	}

	r := &Reader{
		file:     f,
		filePath: path,
		header:   header,
		postBase: header.PostOffset,
	}
	if err := json.Unmarshal(raw[0], &r.dict); err != nil {
		return nil, corrupt(path, "parsing dictionary: %v", err)
	}
	if err := json.Unmarshal(raw[1], &r.docs); err != nil {
		return nil, corrupt(path, "parsing documents: %v", err)
	}
	if err := json.Unmarshal(raw[2], &r.meta); err != nil {
		return nil, corrupt(path, "parsing meta: %v", err)
	}
	if len(r.dict) != int(header.TermCount) {
		return nil, corrupt(path, "term count %d does not match header %d", len(r.dict), header.TermCount)
	}
	if len(r.docs) != int(header.DocCount) {
		return nil, corrupt(path, "document count %d does not match header %d", len(r.docs), header.DocCount)
	}
	for i := 1; i < len(r.dict); i++ {
		if r.dict[i-1].Term >= r.dict[i].Term {
			return nil, corrupt(path, "dictionary not sorted at %q", r.dict[i].Term)
		}
	}
	return r, nil
}

func (r *Reader) lookup(term string) (DictEntry, bool) {
	idx := sort.Search(len(r.dict), func(i int) bool {
		return r.dict[i].Term >= term
	})
	if idx >= len(r.dict) || r.dict[idx].Term != term {
		return DictEntry{}, false
	}
	return r.dict[idx], true
}

// Search returns the postings of term, or nil when the term is absent.
func (r *Reader) Search(term string) (index.PostingList, error) {
	entry, ok := r.lookup(term)
	if !ok {
		return nil, nil
	}
	if entry.PostOffset < 0 || entry.PostOffset+int64(entry.PostLen) > r.header.PostSize {
		return nil, corrupt(r.filePath, "postings for %q out of bounds", term)
	}
	postingsBytes := make([]byte, entry.PostLen)
	if _, err := r.file.ReadAt(postingsBytes, r.postBase+entry.PostOffset); err != nil {
		return nil, fmt.Errorf("reading postings: %w", err)
	}
	var postings index.PostingList
	if err := json.Unmarshal(postingsBytes, &postings); err != nil {
		return nil, corrupt(r.filePath, "parsing postings for %q: %v", term, err)
	}
	for _, p := range postings {
		if int(p.Doc) >= len(r.docs) {
			return nil, corrupt(r.filePath, "posting for %q references unknown ordinal %d", term, p.Doc)
		}
	}
	return postings, nil
}

func (r *Reader) DocFreq(term string) int {
	entry, ok := r.lookup(term)
	if !ok {
		return 0
	}
	return entry.DocFreq
}

// TermsWithPrefix walks the sorted dictionary and returns every term that
// starts with prefix, in ascending order.
func (r *Reader) TermsWithPrefix(prefix string) []string {
	start := sort.Search(len(r.dict), func(i int) bool {
		return r.dict[i].Term >= prefix
	})
	terms := make([]string, 0)
	for i := start; i < len(r.dict) && strings.HasPrefix(r.dict[i].Term, prefix); i++ {
		terms = append(terms, r.dict[i].Term)
	}
	return terms
}

func (r *Reader) Docs() []index.DocEntry {
	return r.docs
}

func (r *Reader) Meta() index.Meta {
	return r.meta
}

func (r *Reader) Terms() int {
	return len(r.dict)
}

func (r *Reader) DocCount() uint32 {
	return r.header.DocCount
}

func (r *Reader) Path() string {
	return r.filePath
}

func (r *Reader) Close() error {
	return r.file.Close()
}
