package indexer

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/irbench/internal/indexer/analysis"
	"github.com/Adithya-Monish-Kumar-K/irbench/internal/indexer/segment"
	apperrors "github.com/Adithya-Monish-Kumar-K/irbench/pkg/errors"
)

func standard(t *testing.T) *analysis.Analyzer {
	t.Helper()
	an, err := analysis.New(analysis.Standard, analysis.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return an
}

func build(t *testing.T, dir string, docs map[int]string, order []int) *Index {
	t.Helper()
	b, err := Begin(dir, standard(t), Meta{Similarity: "bm25", K1: 1.2, B: 0.75}, false)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	for _, id := range order {
		if err := b.AddDocument(id, docs[id]); err != nil {
			t.Fatalf("AddDocument(%d): %v", id, err)
		}
	}
	ix, err := b.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	t.Cleanup(func() { ix.Close() })
	return ix
}

func TestBuildStatistics(t *testing.T) {
	docs := map[int]string{
		1: "the cat sat",
		2: "the dog sat on the mat",
		3: "birds fly south in winter",
	}
	ix := build(t, filepath.Join(t.TempDir(), "idx"), docs, []int{1, 2, 3})

	// standard analyzer lengths: 2 (cat sat), 3 (dog sat mat), 4 (birds fly south winter)
	want := float64(2+3+4) / float64(3)
	if ix.AvgDocLength() != want {
		t.Errorf("AvgDocLength = %v, want %v", ix.AvgDocLength(), want)
	}
	if ix.DocCount() != 3 {
		t.Errorf("DocCount = %d, want 3", ix.DocCount())
	}
	if ix.DocFreq("sat") != 2 {
		t.Errorf("DocFreq(sat) = %d, want 2", ix.DocFreq("sat"))
	}
	if ix.DocFreq("the") != 0 {
		t.Errorf("stopword indexed")
	}
	postings, err := ix.Postings("mat")
	if err != nil {
		t.Fatal(err)
	}
	if len(postings) != 1 || ix.Doc(postings[0].Doc).DocID != 2 {
		t.Fatalf("unexpected mat postings: %+v", postings)
	}
	if postings[0].Positions[0] != 5 {
		t.Errorf("mat position = %d, want 5", postings[0].Positions[0])
	}
	meta := ix.Meta()
	if meta.Analyzer != "standard" || meta.Similarity != "bm25" || meta.CreatedAt.IsZero() {
		t.Errorf("unexpected meta: %+v", meta)
	}
}

func TestDuplicateDocIDsAppend(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "idx")
	b, err := Begin(dir, standard(t), Meta{}, false)
	if err != nil {
		t.Fatal(err)
	}
	b.AddDocument(5, "apple pie")
	b.AddDocument(5, "apple tart")
	ix, err := b.Close()
	if err != nil {
		t.Fatal(err)
	}
	defer ix.Close()
	if ix.DocCount() != 2 {
		t.Errorf("DocCount = %d, want 2", ix.DocCount())
	}
	if ix.DocFreq("apple") != 2 {
		t.Errorf("DocFreq(apple) = %d, want 2", ix.DocFreq("apple"))
	}
}

func TestBeginRefusesNonEmptyDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "junk"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Begin(dir, standard(t), Meta{}, false)
	if !errors.Is(err, apperrors.ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}

	b, err := Begin(dir, standard(t), Meta{}, true)
	if err != nil {
		t.Fatalf("Begin with overwrite: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "junk")); !os.IsNotExist(err) {
		t.Errorf("overwrite did not clear directory")
	}
	ix, err := b.Close()
	if err != nil {
		t.Fatal(err)
	}
	ix.Close()
}

func TestEmptyIndex(t *testing.T) {
	ix := build(t, filepath.Join(t.TempDir(), "idx"), nil, nil)
	if ix.DocCount() != 0 || ix.AvgDocLength() != 0 {
		t.Errorf("expected empty index statistics")
	}
}

func TestOpenErrors(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, segment.FileName), []byte("not an index at all, just text padding to exceed the header size of the segment format......"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = Open(dir)
	if !errors.Is(err, apperrors.ErrCorruptIndex) {
		t.Errorf("expected corrupt index, got %v", err)
	}
}

func TestAddAfterClose(t *testing.T) {
	b, err := Begin(filepath.Join(t.TempDir(), "idx"), standard(t), Meta{}, false)
	if err != nil {
		t.Fatal(err)
	}
	ix, err := b.Close()
	if err != nil {
		t.Fatal(err)
	}
	defer ix.Close()
	if err := b.AddDocument(1, "late"); err == nil {
		t.Error("expected error adding to a closed builder")
	}
}
