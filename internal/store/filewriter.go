// Package store provides the encoder's on-disk plumbing: a thin *os.File
// wrapper with an append-only write cursor. The decoder does not use it.
package store

import (
	"fmt"
	"io"
	"os"
)

// FileWriter wraps an os.File for writing a Scavenger archive. It tracks an
// append-only end-of-file cursor (the destination is built purely by
// appending — the encoder never reuses or reorders space), plus
// write-at-address operations and flush control.
//
// Thread-safety: not thread-safe. Caller must synchronize access.
type FileWriter struct {
	file *os.File
	path string

	nextOffset uint64
}

// NewFileWriter creates a writer for a new Scavenger archive, failing if the
// destination already exists. initialOffset is typically 16 (the header
// size), since the header itself is written directly rather than through
// Allocate.
func NewFileWriter(path string, initialOffset uint64) (*FileWriter, error) {
	osFile, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o666)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	return &FileWriter{
		file:       osFile,
		path:       path,
		nextOffset: initialOffset,
	}, nil
}

// Allocate reserves size bytes at the current end of file and returns the
// address where they were reserved. The space is not zeroed — the caller
// must write data to the allocated block.
func (w *FileWriter) Allocate(size uint64) (uint64, error) {
	if w.file == nil {
		return 0, fmt.Errorf("writer is closed")
	}
	if size == 0 {
		return 0, fmt.Errorf("cannot allocate zero bytes")
	}

	addr := w.nextOffset
	w.nextOffset = addr + size
	return addr, nil
}

// WriteAt writes data at a specific address in the file. Implements
// io.WriterAt.
func (w *FileWriter) WriteAt(data []byte, offset int64) (int, error) {
	if w.file == nil {
		return 0, fmt.Errorf("writer is closed")
	}
	if len(data) == 0 {
		return 0, nil
	}

	n, err := w.file.WriteAt(data, offset)
	if err != nil {
		return n, fmt.Errorf("write at address %d failed: %w", offset, err)
	}
	if n != len(data) {
		return n, fmt.Errorf("incomplete write at address %d: wrote %d of %d bytes", offset, n, len(data))
	}

	return n, nil
}

// WriteAtAddress writes data at a specific address (convenience method with
// a uint64 address rather than WriteAt's int64 file offset).
func (w *FileWriter) WriteAtAddress(data []byte, addr uint64) error {
	_, err := w.WriteAt(data, int64(addr))
	return err
}

// ReadAt reads data at a specific address. Implements io.ReaderAt.
func (w *FileWriter) ReadAt(buf []byte, addr int64) (int, error) {
	if w.file == nil {
		return 0, fmt.Errorf("writer is closed")
	}
	return w.file.ReadAt(buf, addr)
}

// EndOfFile returns the current end-of-file address — where the next
// allocation would occur.
func (w *FileWriter) EndOfFile() uint64 {
	return w.nextOffset
}

// Flush commits all writes to disk.
func (w *FileWriter) Flush() error {
	if w.file == nil {
		return fmt.Errorf("writer is closed")
	}
	return w.file.Sync()
}

// Close closes the underlying file. It does not flush first — call Flush()
// before Close() if durability is required. Close is idempotent.
func (w *FileWriter) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// Abort closes and deletes the destination file. This is the fail-safe path
// an Encoder takes when dropped before Complete: a partial Scavenger
// archive must never be left looking like a valid one.
func (w *FileWriter) Abort() error {
	path := w.path
	closeErr := w.Close()

	removeErr := os.Remove(path)
	if removeErr != nil && !os.IsNotExist(removeErr) {
		if closeErr != nil {
			return fmt.Errorf("abort: close failed (%v) and remove failed: %w", closeErr, removeErr)
		}
		return fmt.Errorf("abort: remove failed: %w", removeErr)
	}

	return closeErr
}

// Ensure FileWriter implements io.ReaderAt and io.WriterAt.
var (
	_ io.ReaderAt = (*FileWriter)(nil)
	_ io.WriterAt = (*FileWriter)(nil)
)
