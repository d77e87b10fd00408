package scavenger

import (
	"io"

	"github.com/canidlogic/scavenger/internal/xerr"
)

// ObjectHandle is a seekable read cursor scoped to one object's byte range
// within the archive — a handle-style decoder variant, pure convenience
// atop the Decoder's validated index-record lookup and its open file, that
// introduces no new on-disk semantics.
type ObjectHandle struct {
	d      *Decoder
	offset uint64 // absolute file offset of the object's first byte
	size   uint64 // object size in bytes
	pos    int64  // read cursor, relative to the object's start
}

// Handle returns a seekable cursor over object i's payload.
func (d *Decoder) Handle(i uint64) (*ObjectHandle, error) {
	rec, err := d.record(i)
	if err != nil {
		return nil, err
	}
	return &ObjectHandle{d: d, offset: rec.Offset, size: rec.Size}, nil
}

// Size returns the object's total byte length.
func (h *ObjectHandle) Size() uint64 {
	return h.size
}

// Read implements io.Reader, reading from the current cursor position.
func (h *ObjectHandle) Read(p []byte) (int, error) {
	if h.pos >= int64(h.size) {
		return 0, io.EOF
	}

	remaining := int64(h.size) - h.pos
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}

	n, err := h.d.f.ReadAt(p, int64(h.offset)+h.pos)
	h.pos += int64(n)
	if err != nil {
		return n, xerr.Wrap(xerr.ErrIO, "read object bytes", err)
	}
	return n, nil
}

// ReadAt implements io.ReaderAt against the object's own coordinate space
// (off 0 is the object's first byte), independent of the cursor used by
// Read/Seek.
func (h *ObjectHandle) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(h.size) {
		return 0, xerr.New(xerr.ErrOutOfRange, "offset out of object bounds")
	}

	remaining := int64(h.size) - off
	if remaining == 0 {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}

	if int64(len(p)) > remaining {
		n, err := h.d.f.ReadAt(p[:remaining], int64(h.offset)+off)
		if err != nil {
			return n, xerr.Wrap(xerr.ErrIO, "read object bytes", err)
		}
		return n, io.EOF
	}

	n, err := h.d.f.ReadAt(p, int64(h.offset)+off)
	if err != nil {
		return n, xerr.Wrap(xerr.ErrIO, "read object bytes", err)
	}
	return n, nil
}

// Seek implements io.Seeker, scoped to [0, Size()].
func (h *ObjectHandle) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = h.pos + offset
	case io.SeekEnd:
		newPos = int64(h.size) + offset
	default:
		return 0, xerr.New(xerr.ErrOutOfRange, "invalid whence")
	}

	if newPos < 0 || newPos > int64(h.size) {
		return 0, xerr.New(xerr.ErrOutOfRange, "seek target outside object bounds")
	}

	h.pos = newPos
	return newPos, nil
}

var (
	_ io.Reader   = (*ObjectHandle)(nil)
	_ io.ReaderAt = (*ObjectHandle)(nil)
	_ io.Seeker   = (*ObjectHandle)(nil)
)
