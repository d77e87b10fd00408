package scavenger

import (
	"encoding/hex"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/canidlogic/scavenger/internal/codec"
	"github.com/canidlogic/scavenger/internal/xerr"
)

// Decoder services random-access reads against an existing Scavenger
// archive. It holds the file open read-only for its entire lifetime;
// callers must call Close when done.
//
// A Decoder is not thread-safe; concurrent calls from multiple goroutines
// on one instance must be externally serialized. Multiple Decoders may
// open the same file concurrently provided nothing is writing to it.
type Decoder struct {
	f *os.File

	size        uint64
	primary     [4]byte
	secondary   [6]byte
	count       uint64
	indexOffset uint64
}

// Open opens an existing Scavenger archive and validates its global
// structure.
func Open(path string) (*Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerr.Wrap(xerr.ErrIO, "open archive", err)
	}

	d, err := openDecoder(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return d, nil
}

func openDecoder(f *os.File) (*Decoder, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, xerr.Wrap(xerr.ErrIO, "stat archive", err)
	}
	if info.Size() < 0 {
		return nil, xerr.New(xerr.ErrMalformed, "negative file size")
	}
	size := uint64(info.Size())

	if size < 22 {
		return nil, xerr.New(xerr.ErrFileTooSmall, fmt.Sprintf("file is %d bytes, minimum is 22", size))
	}
	if size > codec.MaxU48 {
		return nil, xerr.New(xerr.ErrMalformed, fmt.Sprintf("file size %d exceeds the 2^48-1 ceiling", size))
	}
	if size%4 != 2 {
		return nil, xerr.New(xerr.ErrFileNotAligned, fmt.Sprintf("file length %d is not congruent to 2 (mod 4)", size))
	}

	var headerBuf [codec.HeaderSize]byte
	if _, err := f.ReadAt(headerBuf[:], 0); err != nil {
		return nil, xerr.Wrap(xerr.ErrIO, "read header", err)
	}
	header := codec.UnpackHeader(headerBuf)

	if header.TotalSize != size {
		return nil, xerr.New(xerr.ErrSizeMismatch,
			fmt.Sprintf("header total size %d does not match observed file size %d", header.TotalSize, size))
	}

	var countBuf [codec.CountSize]byte
	if _, err := f.ReadAt(countBuf[:], int64(size)-codec.CountSize); err != nil {
		return nil, xerr.Wrap(xerr.ErrIO, "read count trailer", err)
	}
	count := codec.UnpackCount(countBuf)

	maxCount := (size - 22) / 12
	if count > maxCount {
		return nil, xerr.New(xerr.ErrMalformed,
			fmt.Sprintf("object count %d exceeds the maximum %d for a %d-byte file", count, maxCount, size))
	}

	indexBytes, err := codec.SafeMultiply(count, codec.RecordSize)
	if err != nil {
		return nil, xerr.Wrap(xerr.ErrMalformed, "compute index region size", err)
	}
	indexOffset := size - codec.CountSize - indexBytes
	if indexOffset < codec.HeaderSize {
		return nil, xerr.New(xerr.ErrMalformed, fmt.Sprintf("computed index offset %d precedes the header", indexOffset))
	}

	return &Decoder{
		f:           f,
		size:        size,
		primary:     header.Primary,
		secondary:   header.Secondary,
		count:       count,
		indexOffset: indexOffset,
	}, nil
}

// Primary returns the primary signature as 8 lowercase hex digits.
func (d *Decoder) Primary() string {
	return hex.EncodeToString(d.primary[:])
}

// Secondary returns the secondary signature as 12 lowercase hex digits.
func (d *Decoder) Secondary() string {
	return hex.EncodeToString(d.secondary[:])
}

// SecondaryASCII returns the secondary signature as a 6-byte ASCII string,
// and false if any byte falls outside the printable range [0x20, 0x7E].
func (d *Decoder) SecondaryASCII() (string, bool) {
	return asciiIfPrintable(d.secondary[:])
}

// Matches reports whether the archive's signatures equal primary and
// secondary, after normalizing both sides. primary must be 8 hex digits;
// secondary must be 12 hex digits or 6 printable-ASCII bytes.
func (d *Decoder) Matches(primary, secondary string) (bool, error) {
	p, err := parsePrimary(primary)
	if err != nil {
		return false, err
	}
	s, err := parseSecondary(secondary)
	if err != nil {
		return false, err
	}
	return p == d.primary && s == d.secondary, nil
}

// Count returns the number of objects in the archive.
func (d *Decoder) Count() uint64 {
	return d.count
}

// record reads and validates object i's index record. Validation is lazy,
// performed on every access rather than once at Open.
func (d *Decoder) record(i uint64) (codec.Record, error) {
	if i >= d.count {
		return codec.Record{}, xerr.New(xerr.ErrOutOfRange,
			fmt.Sprintf("object index %d is out of range [0,%d)", i, d.count))
	}

	var buf [codec.RecordSize]byte
	addr := d.indexOffset + i*codec.RecordSize
	if _, err := d.f.ReadAt(buf[:], int64(addr)); err != nil {
		return codec.Record{}, xerr.Wrap(xerr.ErrIO, "read index record", err)
	}
	rec := codec.UnpackRecord(buf)

	if rec.Size < 1 {
		return codec.Record{}, xerr.New(xerr.ErrMalformed, fmt.Sprintf("object %d has a zero-size index record", i))
	}
	if rec.Offset >= d.size {
		return codec.Record{}, xerr.New(xerr.ErrMalformed,
			fmt.Sprintf("object %d offset %d is at or beyond file size %d", i, rec.Offset, d.size))
	}
	if rec.Size > d.size-rec.Offset {
		return codec.Record{}, xerr.New(xerr.ErrMalformed,
			fmt.Sprintf("object %d size %d exceeds available bytes at offset %d", i, rec.Size, rec.Offset))
	}

	return rec, nil
}

// Measure returns the byte size of object i.
func (d *Decoder) Measure(i uint64) (uint64, error) {
	rec, err := d.record(i)
	if err != nil {
		return 0, err
	}
	return rec.Size, nil
}

// Read returns length bytes of object i starting at offs.
func (d *Decoder) Read(i uint64, offs, length uint64) ([]byte, error) {
	rec, err := d.record(i)
	if err != nil {
		return nil, err
	}
	if offs >= rec.Size {
		return nil, xerr.New(xerr.ErrOutOfRange, fmt.Sprintf("offset %d is beyond object %d size %d", offs, i, rec.Size))
	}
	if length == 0 || length > rec.Size-offs {
		return nil, xerr.New(xerr.ErrOutOfRange, fmt.Sprintf("length %d at offset %d exceeds object %d size %d", length, offs, i, rec.Size))
	}

	buf := make([]byte, length)
	if _, err := d.f.ReadAt(buf, int64(rec.Offset+offs)); err != nil {
		return nil, xerr.Wrap(xerr.ErrIO, "read object bytes", err)
	}
	return buf, nil
}

// ReadFull returns the entirety of object i.
func (d *Decoder) ReadFull(i uint64) ([]byte, error) {
	rec, err := d.record(i)
	if err != nil {
		return nil, err
	}
	return d.Read(i, 0, rec.Size)
}

// ReadString is Read, validated as UTF-8.
func (d *Decoder) ReadString(i uint64, offs, length uint64) (string, error) {
	b, err := d.Read(i, offs, length)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", xerr.New(xerr.ErrEncoding, fmt.Sprintf("object %d bytes are not valid UTF-8", i))
	}
	return string(b), nil
}

// ReadFullString is ReadFull, validated as UTF-8.
func (d *Decoder) ReadFullString(i uint64) (string, error) {
	rec, err := d.record(i)
	if err != nil {
		return "", err
	}
	return d.ReadString(i, 0, rec.Size)
}

// Close closes the underlying file handle.
func (d *Decoder) Close() error {
	return d.f.Close()
}
