package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/irbench/internal/indexer/index"
)

// FileName is the name of the single segment file inside an index directory.
const FileName = "index.irx"

const (
	MagicBytes    uint32 = 0x49525831 // "IRX1"
	FormatVersion uint32 = 1
	HeaderSize    int    = 96
	FooterSize    int    = 8
)

// SegmentHeader is the fixed little-endian header at the start of a segment.
type SegmentHeader struct {
	Magic      uint32
	Version    uint32
	TermCount  uint32
	DocCount   uint32
	CreatedAt  int64
	PostOffset int64
	PostSize   int64
	DictOffset int64
	DictSize   int64
	DocsOffset int64
	DocsSize   int64
	MetaOffset int64
	MetaSize   int64
}

func (h SegmentHeader) encode() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.TermCount)
	binary.LittleEndian.PutUint32(buf[12:16], h.DocCount)
	binary.LittleEndian.PutUint64(buf[16:24], uint64(h.CreatedAt))
	binary.LittleEndian.PutUint64(buf[24:32], uint64(h.PostOffset))
	binary.LittleEndian.PutUint64(buf[32:40], uint64(h.PostSize))
	binary.LittleEndian.PutUint64(buf[40:48], uint64(h.DictOffset))
	binary.LittleEndian.PutUint64(buf[48:56], uint64(h.DictSize))
	binary.LittleEndian.PutUint64(buf[56:64], uint64(h.DocsOffset))
	binary.LittleEndian.PutUint64(buf[64:72], uint64(h.DocsSize))
	binary.LittleEndian.PutUint64(buf[72:80], uint64(h.MetaOffset))
	binary.LittleEndian.PutUint64(buf[80:88], uint64(h.MetaSize))
	return buf
}

func decodeHeader(buf []byte) SegmentHeader {
	return SegmentHeader{
		Magic:      binary.LittleEndian.Uint32(buf[0:4]),
		Version:    binary.LittleEndian.Uint32(buf[4:8]),
		TermCount:  binary.LittleEndian.Uint32(buf[8:12]),
		DocCount:   binary.LittleEndian.Uint32(buf[12:16]),
		CreatedAt:  int64(binary.LittleEndian.Uint64(buf[16:24])),
		PostOffset: int64(binary.LittleEndian.Uint64(buf[24:32])),
		PostSize:   int64(binary.LittleEndian.Uint64(buf[32:40])),
		DictOffset: int64(binary.LittleEndian.Uint64(buf[40:48])),
		DictSize:   int64(binary.LittleEndian.Uint64(buf[48:56])),
		DocsOffset: int64(binary.LittleEndian.Uint64(buf[56:64])),
		DocsSize:   int64(binary.LittleEndian.Uint64(buf[64:72])),
		MetaOffset: int64(binary.LittleEndian.Uint64(buf[72:80])),
		MetaSize:   int64(binary.LittleEndian.Uint64(buf[80:88])),
	}
}

// DictEntry maps a term to its postings offset, length, and document frequency
// in the segment file.
type DictEntry struct {
	Term       string `json:"t"`
	PostOffset int64  `json:"o"`
	PostLen    int    `json:"l"`
	DocFreq    int    `json:"d"`
}

// Writer serialises a closed index into a segment file.
type Writer struct {
	dataDir string
}

func NewWriter(dataDir string) *Writer {
	return &Writer{dataDir: dataDir}
}

// Write atomically creates the segment file for the given terms, ordinal
// table and metadata. It writes to a .tmp file first and renames on success.
func (w *Writer) Write(entries []index.TermEntry, docs []index.DocEntry, meta index.Meta) (_ string, err error) {
	finalPath := filepath.Join(w.dataDir, FileName)
	tmpPath := finalPath + ".tmp"

	if err := os.MkdirAll(w.dataDir, 0755); err != nil {
		return "", fmt.Errorf("creating index directory: %w", err)
	}
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp segment file: %w", err)
	}
	defer func() {
		f.Close()
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	header := SegmentHeader{
		Magic:     MagicBytes,
		Version:   FormatVersion,
		TermCount: uint32(len(entries)),
		DocCount:  uint32(len(docs)),
		CreatedAt: meta.CreatedAt.Unix(),
	}
	if _, err := f.Write(header.encode()); err != nil {
		return "", fmt.Errorf("writing header: %w", err)
	}

	offset := int64(HeaderSize)
	header.PostOffset = offset
	dict := make([]DictEntry, 0, len(entries))
	for _, entry := range entries {
		postingsData, err := json.Marshal(entry.Postings)
		if err != nil {
			return "", fmt.Errorf("marshaling postings for term %q: %w", entry.Term, err)
		}
		if _, err := f.Write(postingsData); err != nil {
			return "", fmt.Errorf("writing postings for term %q: %w", entry.Term, err)
		}
		dict = append(dict, DictEntry{
			Term:       entry.Term,
			PostOffset: offset - header.PostOffset,
			PostLen:    len(postingsData),
			DocFreq:    len(entry.Postings),
		})
		offset += int64(len(postingsData))
	}
	header.PostSize = offset - header.PostOffset

	checksum := crc32.NewIEEE()
	sections := []struct {
		name   string
		value  any
		offset *int64
		size   *int64
	}{
		{"dictionary", dict, &header.DictOffset, &header.DictSize},
		{"documents", docs, &header.DocsOffset, &header.DocsSize},
		{"meta", meta, &header.MetaOffset, &header.MetaSize},
	}
	for _, s := range sections {
		data, err := json.Marshal(s.value)
		if err != nil {
			return "", fmt.Errorf("marshaling %s: %w", s.name, err)
		}
		if _, err := f.Write(data); err != nil {
			return "", fmt.Errorf("writing %s: %w", s.name, err)
		}
		checksum.Write(data)
		*s.offset = offset
		*s.size = int64(len(data))
		offset += int64(len(data))
	}

	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], checksum.Sum32())
	binary.LittleEndian.PutUint32(footer[4:8], MagicBytes)
	if _, err := f.Write(footer); err != nil {
		return "", fmt.Errorf("writing footer: %w", err)
	}
	if _, err := f.WriteAt(header.encode(), 0); err != nil {
		return "", fmt.Errorf("updating header: %w", err)
	}
	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("syncing segment file: %w", err)
	}
	f.Close()
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("renaming segment file: %w", err)
	}
	return finalPath, nil
}
