// Package zipfile implements the STORE/DEFLATE ZIP subset a compiled
// module can be bundled in (spec.md §4.10): a local file header per
// entry, a central directory, and an End-Of-Central-Directory record.
// The teacher has no ZIP code of its own to imitate, so this package is
// grounded directly on spec.md's byte layout and the standard library's
// compress/flate and hash/crc32 packages (see DESIGN.md).
package zipfile

import "errors"

// Failure modes (spec.md §4.10).
var (
	ErrInvalidZip      = errors.New("zipfile: invalid_zip")
	ErrFileNotFound    = errors.New("zipfile: file_not_found")
	ErrInvalidCRC      = errors.New("zipfile: invalid_crc")
	ErrTruncated       = errors.New("zipfile: truncated")
	ErrInvalidFilename = errors.New("zipfile: invalid_filename")
)

// Compression method codes, as they appear on the wire.
type Method uint16

const (
	Store   Method = 0
	Deflate Method = 8
)

const (
	localFileHeaderSig = 0x04034b50
	centralDirSig      = 0x02014b50
	eocdSig            = 0x06054b50

	localFileHeaderSize  = 30
	centralDirHeaderSize = 46
	eocdSize             = 22

	maxEOCDScanBack = 64 * 1024
)

// Entry describes one archive member, as recorded in the central
// directory.
type Entry struct {
	Name             string
	Method           Method
	CRC32            uint32
	CompressedSize   uint32
	UncompressedSize uint32
	offset           uint32 // local header offset, relative to archive start
}

func validFilename(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		if name[i] == 0 {
			return false
		}
	}
	return true
}
