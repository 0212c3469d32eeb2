package zipfile

import (
	"bytes"
	"errors"
	"testing"
)

func buildArchive(t *testing.T) []byte {
	t.Helper()
	w := NewWriter()
	if err := w.Add("main.pngb", []byte("PNGB-placeholder-bytes-for-testing"), Deflate); err != nil {
		t.Fatalf("Add main.pngb: %v", err)
	}
	if err := w.Add("assets/x", []byte{0, 1, 2, 3}, Deflate); err != nil {
		t.Fatalf("Add assets/x: %v", err)
	}
	return w.Finish()
}

func TestRoundTripExtractsIdenticalBytes(t *testing.T) {
	archive := buildArchive(t)

	r, err := Open(archive)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(r.Entries()) != 2 {
		t.Fatalf("entries = %d, want 2", len(r.Entries()))
	}

	got, err := r.Extract("main.pngb")
	if err != nil {
		t.Fatalf("Extract main.pngb: %v", err)
	}
	if !bytes.Equal(got, []byte("PNGB-placeholder-bytes-for-testing")) {
		t.Errorf("main.pngb content mismatch: %q", got)
	}

	got, err = r.Extract("assets/x")
	if err != nil {
		t.Fatalf("Extract assets/x: %v", err)
	}
	if !bytes.Equal(got, []byte{0, 1, 2, 3}) {
		t.Errorf("assets/x content mismatch: %v", got)
	}
}

func TestFindByName(t *testing.T) {
	r, err := Open(buildArchive(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := r.FindByName("main.pngb"); !ok {
		t.Error("expected to find main.pngb")
	}
	if _, ok := r.FindByName("nope"); ok {
		t.Error("did not expect to find nope")
	}
}

func TestExtractMissingFileReturnsNotFound(t *testing.T) {
	r, err := Open(buildArchive(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, err = r.Extract("missing")
	if !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("err = %v, want ErrFileNotFound", err)
	}
}

func TestCorruptedStoreDataFailsCRC(t *testing.T) {
	// Store, so flipping one byte can only change the decoded content,
	// never fail to decode at all — isolating the CRC mismatch path from
	// the flate-decode-error path exercised below.
	w := NewWriter()
	if err := w.Add("main.pngb", []byte("PNGB-placeholder-bytes-for-testing"), Store); err != nil {
		t.Fatalf("Add: %v", err)
	}
	entryOffset := w.entries[0].offset
	nameLen := len(w.entries[0].Name)
	archive := w.Finish()

	dataStart := int(entryOffset) + localFileHeaderSize + nameLen
	archive[dataStart] ^= 0xFF

	r, err := Open(archive)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, err = r.Extract("main.pngb")
	if !errors.Is(err, ErrInvalidCRC) {
		t.Fatalf("err = %v, want ErrInvalidCRC", err)
	}
}

func TestCorruptedDeflateDataFailsCRC(t *testing.T) {
	// Corrupting a byte inside a DEFLATE entry's compressed data can make
	// the stream fail to decode outright, not just decode to the wrong
	// bytes. Either failure mode must surface as ErrInvalidCRC, never the
	// structural ErrInvalidZip (spec.md §4.10 scenario 6).
	w := NewWriter()
	payload := bytes.Repeat([]byte("PNGB-placeholder-bytes-for-testing "), 8)
	if err := w.Add("main.pngb", payload, Deflate); err != nil {
		t.Fatalf("Add: %v", err)
	}
	entryOffset := w.entries[0].offset
	nameLen := len(w.entries[0].Name)
	compSize := w.entries[0].CompressedSize
	archive := w.Finish()

	dataStart := int(entryOffset) + localFileHeaderSize + nameLen
	dataEnd := dataStart + int(compSize)
	for i := dataStart; i < dataEnd; i++ {
		archive[i] ^= 0xFF
	}

	r, err := Open(archive)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, err = r.Extract("main.pngb")
	if !errors.Is(err, ErrInvalidCRC) {
		t.Fatalf("err = %v, want ErrInvalidCRC", err)
	}
}

func TestOpenTruncatedBufferFails(t *testing.T) {
	_, err := Open([]byte{1, 2, 3})
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("err = %v, want ErrTruncated", err)
	}
}

func TestInvalidFilenameRejected(t *testing.T) {
	w := NewWriter()
	if err := w.Add("", []byte("x"), Store); !errors.Is(err, ErrInvalidFilename) {
		t.Fatalf("err = %v, want ErrInvalidFilename", err)
	}
	if err := w.Add("has\x00null", []byte("x"), Store); !errors.Is(err, ErrInvalidFilename) {
		t.Fatalf("err = %v, want ErrInvalidFilename", err)
	}
}

func TestStoreMethodRoundTrip(t *testing.T) {
	w := NewWriter()
	if err := w.Add("raw.bin", []byte{9, 9, 9}, Store); err != nil {
		t.Fatalf("Add: %v", err)
	}
	archive := w.Finish()

	r, err := Open(archive)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := r.Extract("raw.bin")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !bytes.Equal(got, []byte{9, 9, 9}) {
		t.Errorf("content = %v, want [9 9 9]", got)
	}
}
