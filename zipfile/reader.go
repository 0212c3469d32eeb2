package zipfile

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"hash/crc32"
	"io"
)

// Reader is a zero-copy view over an in-memory ZIP archive: Open parses
// only the End-Of-Central-Directory record and the central directory
// itself; entry bytes are decompressed lazily by Extract.
type Reader struct {
	buf     []byte
	entries []Entry
	byName  map[string]int
}

// Open locates the EOCD record (scanning back up to 64 KB from the end
// of buf, per spec.md §4.10) and indexes every central directory entry.
func Open(buf []byte) (*Reader, error) {
	eocdPos, err := findEOCD(buf)
	if err != nil {
		return nil, err
	}

	cdOffset := binary.LittleEndian.Uint32(buf[eocdPos+16:])
	cdCount := binary.LittleEndian.Uint16(buf[eocdPos+10:])

	if int(cdOffset) > len(buf) {
		return nil, ErrInvalidZip
	}

	r := &Reader{buf: buf, byName: make(map[string]int)}
	pos := int(cdOffset)
	for i := 0; i < int(cdCount); i++ {
		if pos+centralDirHeaderSize > len(buf) {
			return nil, ErrTruncated
		}
		if binary.LittleEndian.Uint32(buf[pos:]) != centralDirSig {
			return nil, ErrInvalidZip
		}
		method := binary.LittleEndian.Uint16(buf[pos+10:])
		crc := binary.LittleEndian.Uint32(buf[pos+16:])
		compSize := binary.LittleEndian.Uint32(buf[pos+20:])
		uncompSize := binary.LittleEndian.Uint32(buf[pos+24:])
		nameLen := int(binary.LittleEndian.Uint16(buf[pos+28:]))
		extraLen := int(binary.LittleEndian.Uint16(buf[pos+30:]))
		commentLen := int(binary.LittleEndian.Uint16(buf[pos+32:]))
		localOffset := binary.LittleEndian.Uint32(buf[pos+42:])

		nameStart := pos + centralDirHeaderSize
		if nameStart+nameLen > len(buf) {
			return nil, ErrTruncated
		}
		name := string(buf[nameStart : nameStart+nameLen])
		if !validFilename(name) {
			return nil, ErrInvalidFilename
		}

		r.byName[name] = len(r.entries)
		r.entries = append(r.entries, Entry{
			Name:             name,
			Method:           Method(method),
			CRC32:            crc,
			CompressedSize:   compSize,
			UncompressedSize: uncompSize,
			offset:           localOffset,
		})

		pos = nameStart + nameLen + extraLen + commentLen
	}
	return r, nil
}

// Entries returns every archive member, in central-directory order.
func (r *Reader) Entries() []Entry {
	return r.entries
}

// FindByName returns the entry for name, or ok=false if absent.
func (r *Reader) FindByName(name string) (Entry, bool) {
	idx, ok := r.byName[name]
	if !ok {
		return Entry{}, false
	}
	return r.entries[idx], true
}

// Extract decompresses name's content and verifies it against the
// CRC-32 recorded in the central directory.
func (r *Reader) Extract(name string) ([]byte, error) {
	idx, ok := r.byName[name]
	if !ok {
		return nil, ErrFileNotFound
	}
	e := r.entries[idx]

	pos := int(e.offset)
	if pos+localFileHeaderSize > len(r.buf) {
		return nil, ErrTruncated
	}
	if binary.LittleEndian.Uint32(r.buf[pos:]) != localFileHeaderSig {
		return nil, ErrInvalidZip
	}
	nameLen := int(binary.LittleEndian.Uint16(r.buf[pos+26:]))
	extraLen := int(binary.LittleEndian.Uint16(r.buf[pos+28:]))

	dataStart := pos + localFileHeaderSize + nameLen + extraLen
	dataEnd := dataStart + int(e.CompressedSize)
	if dataEnd > len(r.buf) {
		return nil, ErrTruncated
	}
	compressed := r.buf[dataStart:dataEnd]

	var raw []byte
	switch e.Method {
	case Store:
		raw = compressed
	case Deflate:
		fr := flate.NewReader(bytes.NewReader(compressed))
		defer fr.Close()
		decoded, err := io.ReadAll(fr)
		if err != nil {
			// A corrupted DEFLATE stream is indistinguishable, from the
			// caller's point of view, from one that decoded but produced
			// the wrong bytes: both mean "this entry's compressed data
			// doesn't reproduce what the CRC promises" (spec.md §4.10
			// scenario 6).
			return nil, ErrInvalidCRC
		}
		raw = decoded
	default:
		return nil, ErrInvalidZip
	}

	if crc32.ChecksumIEEE(raw) != e.CRC32 {
		return nil, ErrInvalidCRC
	}
	return raw, nil
}

// findEOCD scans backward from the end of buf, up to 64 KB plus the
// fixed record size, looking for the EOCD signature (spec.md §4.10: a
// ZIP's comment field means the record isn't necessarily the last 22
// bytes of the file).
func findEOCD(buf []byte) (int, error) {
	if len(buf) < eocdSize {
		return 0, ErrTruncated
	}
	scanFloor := len(buf) - eocdSize - maxEOCDScanBack
	if scanFloor < 0 {
		scanFloor = 0
	}
	for pos := len(buf) - eocdSize; pos >= scanFloor; pos-- {
		if binary.LittleEndian.Uint32(buf[pos:]) == eocdSig {
			return pos, nil
		}
	}
	return 0, ErrInvalidZip
}
