package zipfile

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"hash/crc32"
)

// Writer accumulates entries and produces a complete archive on Finish.
// It holds everything in memory; spec.md's ZIP container is meant to
// bundle one PNGB module plus a handful of small assets, not stream
// large files.
type Writer struct {
	buf     bytes.Buffer
	entries []Entry
}

// NewWriter returns an empty archive writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Add compresses data with method and appends name's local file header
// plus content to the archive. The central directory record is written
// later, by Finish.
func (w *Writer) Add(name string, data []byte, method Method) error {
	if !validFilename(name) {
		return ErrInvalidFilename
	}

	var compressed []byte
	switch method {
	case Store:
		compressed = data
	case Deflate:
		var buf bytes.Buffer
		fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			return err
		}
		if _, err := fw.Write(data); err != nil {
			return err
		}
		if err := fw.Close(); err != nil {
			return err
		}
		compressed = buf.Bytes()
	default:
		return ErrInvalidZip
	}

	offset := uint32(w.buf.Len())
	crc := crc32.ChecksumIEEE(data)

	header := make([]byte, localFileHeaderSize)
	binary.LittleEndian.PutUint32(header[0:], localFileHeaderSig)
	binary.LittleEndian.PutUint16(header[4:], 20) // version needed to extract
	binary.LittleEndian.PutUint16(header[6:], 0)  // general purpose flag
	binary.LittleEndian.PutUint16(header[8:], uint16(method))
	binary.LittleEndian.PutUint16(header[10:], 0) // mod time
	binary.LittleEndian.PutUint16(header[12:], 0) // mod date
	binary.LittleEndian.PutUint32(header[14:], crc)
	binary.LittleEndian.PutUint32(header[18:], uint32(len(compressed)))
	binary.LittleEndian.PutUint32(header[22:], uint32(len(data)))
	binary.LittleEndian.PutUint16(header[26:], uint16(len(name)))
	binary.LittleEndian.PutUint16(header[28:], 0) // extra field length

	w.buf.Write(header)
	w.buf.WriteString(name)
	w.buf.Write(compressed)

	w.entries = append(w.entries, Entry{
		Name:             name,
		Method:           method,
		CRC32:            crc,
		CompressedSize:   uint32(len(compressed)),
		UncompressedSize: uint32(len(data)),
		offset:           offset,
	})
	return nil
}

// Finish appends the central directory and EOCD record and returns the
// complete archive bytes. The Writer is left usable for inspection but
// should not be reused to build a second archive.
func (w *Writer) Finish() []byte {
	cdStart := uint32(w.buf.Len())

	for _, e := range w.entries {
		header := make([]byte, centralDirHeaderSize)
		binary.LittleEndian.PutUint32(header[0:], centralDirSig)
		binary.LittleEndian.PutUint16(header[4:], 20) // version made by
		binary.LittleEndian.PutUint16(header[6:], 20) // version needed
		binary.LittleEndian.PutUint16(header[8:], 0)  // general purpose flag
		binary.LittleEndian.PutUint16(header[10:], uint16(e.Method))
		binary.LittleEndian.PutUint16(header[12:], 0) // mod time
		binary.LittleEndian.PutUint16(header[14:], 0) // mod date
		binary.LittleEndian.PutUint32(header[16:], e.CRC32)
		binary.LittleEndian.PutUint32(header[20:], e.CompressedSize)
		binary.LittleEndian.PutUint32(header[24:], e.UncompressedSize)
		binary.LittleEndian.PutUint16(header[28:], uint16(len(e.Name)))
		binary.LittleEndian.PutUint16(header[30:], 0) // extra field length
		binary.LittleEndian.PutUint16(header[32:], 0) // comment length
		binary.LittleEndian.PutUint16(header[34:], 0) // disk number start
		binary.LittleEndian.PutUint16(header[36:], 0) // internal attributes
		binary.LittleEndian.PutUint32(header[38:], 0) // external attributes
		binary.LittleEndian.PutUint32(header[42:], e.offset)

		w.buf.Write(header)
		w.buf.WriteString(e.Name)
	}

	cdSize := uint32(w.buf.Len()) - cdStart

	eocd := make([]byte, eocdSize)
	binary.LittleEndian.PutUint32(eocd[0:], eocdSig)
	binary.LittleEndian.PutUint16(eocd[4:], 0) // disk number
	binary.LittleEndian.PutUint16(eocd[6:], 0) // disk with central dir start
	binary.LittleEndian.PutUint16(eocd[8:], uint16(len(w.entries)))
	binary.LittleEndian.PutUint16(eocd[10:], uint16(len(w.entries)))
	binary.LittleEndian.PutUint32(eocd[12:], cdSize)
	binary.LittleEndian.PutUint32(eocd[16:], cdStart)
	binary.LittleEndian.PutUint16(eocd[20:], 0) // comment length
	w.buf.Write(eocd)

	return w.buf.Bytes()
}
