package scavenger

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/canidlogic/scavenger/internal/codec"
	"github.com/canidlogic/scavenger/internal/store"
	"github.com/canidlogic/scavenger/internal/xerr"
)

type encoderState int

const (
	stateOpen encoderState = iota
	stateCompleted
	stateErrored
)

// scratchStreamChunkSize is the block size used to copy the scratch index
// into the destination file at Complete time.
const scratchStreamChunkSize = 16 * 1024

// Encoder streams objects into a new Scavenger archive. The zero value is
// not usable; construct one with New.
//
// An Encoder is not thread-safe and must not be used from more than one
// goroutine. Callers must defer Close() — it is a no-op once Complete
// succeeds, but unlinks the partial destination file (the fail-safe "drop"
// behavior) if the encoder is abandoned in Open or Errored state.
type Encoder struct {
	fw   *store.FileWriter
	path string

	primary   [4]byte
	secondary [6]byte

	state   encoderState
	lastErr error

	scratch *os.File

	count       uint64 // objects finalized so far
	bytes       uint64 // payload bytes committed, excluding the in-flight object
	local       uint64 // bytes written to the currently open object
	hasOpen     bool   // true between BeginObject and the next finalize
	objectStart uint64 // file offset where the currently open object began
}

// New creates a new Scavenger archive at path. primary must be 8 hex
// digits; secondary must be 12 hex digits or 6 printable-ASCII bytes.
func New(path, primary, secondary string) (*Encoder, error) {
	p, err := parsePrimary(primary)
	if err != nil {
		return nil, err
	}
	s, err := parseSecondary(secondary)
	if err != nil {
		return nil, err
	}

	fw, err := store.NewFileWriter(path, codec.HeaderSize)
	if err != nil {
		return nil, xerr.Wrap(xerr.ErrIO, "create destination file", err)
	}

	header, _ := codec.PackHeader(codec.Header{Primary: p, Secondary: s, TotalSize: 0})
	if _, err := fw.WriteAt(header[:], 0); err != nil {
		fw.Abort()
		return nil, xerr.Wrap(xerr.ErrIO, "write placeholder header", err)
	}

	scratch, err := os.CreateTemp("", "scavenger-index-*")
	if err != nil {
		fw.Abort()
		return nil, xerr.Wrap(xerr.ErrIO, "create scratch index file", err)
	}

	return &Encoder{
		fw:        fw,
		path:      path,
		primary:   p,
		secondary: s,
		state:     stateOpen,
		scratch:   scratch,
	}, nil
}

// ErrorState reports whether the encoder has latched into Errored.
func (e *Encoder) ErrorState() bool {
	return e.state == stateErrored
}

// LastErrorMessage returns the message of the error that latched the
// encoder into Errored, or "" if it has not errored.
func (e *Encoder) LastErrorMessage() string {
	if e.lastErr == nil {
		return ""
	}
	return e.lastErr.Error()
}

func (e *Encoder) requireOpen() error {
	switch e.state {
	case stateCompleted:
		return fmt.Errorf("scavenger: encoder already completed")
	case stateErrored:
		return fmt.Errorf("scavenger: encoder is errored: %v", e.lastErr)
	}
	return nil
}

func (e *Encoder) fail(err error) error {
	e.state = stateErrored
	e.lastErr = err
	pkgLog.Printf("%s: Open -> Errored: %v", e.path, err)
	return err
}

func (e *Encoder) projectedOverLimit(count, committed uint64) (bool, error) {
	projected, err := codec.ProjectedSize(count, committed)
	if err != nil {
		return true, nil
	}
	return codec.ExceedsLimit(projected), nil
}

// finalizeCurrent rolls the currently open object's bytes into e.bytes and
// appends its index record to the scratch file. Called both by BeginObject
// (to close out the previous object) and by Complete.
func (e *Encoder) finalizeCurrent() error {
	if e.local == 0 {
		return xerr.New(xerr.ErrEmptyObject, "object has no payload bytes")
	}

	rec, err := codec.PackRecord(codec.Record{Offset: e.objectStart, Size: e.local})
	if err != nil {
		return xerr.Wrap(xerr.ErrFileTooLarge, "pack index record", err)
	}
	if _, err := e.scratch.Write(rec[:]); err != nil {
		return xerr.Wrap(xerr.ErrIO, "write scratch index record", err)
	}

	e.bytes += e.local
	e.count++
	e.local = 0
	e.hasOpen = false
	return nil
}

// BeginObject starts a new object. If an object is already open, it is
// finalized first (same rules as the finalize step of Complete).
func (e *Encoder) BeginObject() error {
	if err := e.requireOpen(); err != nil {
		return err
	}

	if e.hasOpen {
		if err := e.finalizeCurrent(); err != nil {
			return e.fail(err)
		}
	}

	over, _ := e.projectedOverLimit(e.count+1, e.bytes)
	if over {
		return e.fail(xerr.New(xerr.ErrFileTooLarge, "projected archive size exceeds 2^48-1"))
	}

	e.objectStart = e.fw.EndOfFile()
	e.hasOpen = true
	return nil
}

// Write appends chunk to the currently open object. A zero-length chunk is
// a no-op.
func (e *Encoder) Write(chunk []byte) error {
	if err := e.requireOpen(); err != nil {
		return err
	}
	if !e.hasOpen {
		return e.fail(xerr.New(xerr.ErrNoObjectOpen, "Write called before BeginObject"))
	}
	if len(chunk) == 0 {
		return nil
	}

	over, _ := e.projectedOverLimit(e.count+1, e.bytes+e.local+uint64(len(chunk)))
	if over {
		return e.fail(xerr.New(xerr.ErrFileTooLarge, "projected archive size exceeds 2^48-1"))
	}

	addr, err := e.fw.Allocate(uint64(len(chunk)))
	if err != nil {
		return e.fail(xerr.Wrap(xerr.ErrIO, "allocate payload space", err))
	}
	if err := e.fw.WriteAtAddress(chunk, addr); err != nil {
		return e.fail(xerr.Wrap(xerr.ErrIO, "write payload bytes", err))
	}

	e.local += uint64(len(chunk))
	return nil
}

// ObjectWriter returns an io.Writer that forwards every Write call to this
// encoder's currently open object — a thin alias over Write for callers
// that prefer handing the encoder to something that wants an io.Writer
// (e.g. io.Copy from an upstream reader).
func (e *Encoder) ObjectWriter() io.Writer {
	return objectWriter{e}
}

type objectWriter struct{ e *Encoder }

func (w objectWriter) Write(p []byte) (int, error) {
	if err := w.e.Write(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Complete finalizes the currently open object (if any), writes padding,
// streams the scratch index into the destination, writes the count
// trailer, patches the header's total-size field, flushes, and closes.
func (e *Encoder) Complete() error {
	if err := e.requireOpen(); err != nil {
		return err
	}

	if e.hasOpen {
		if err := e.finalizeCurrent(); err != nil {
			return e.fail(err)
		}
	}

	padding := (4 - (e.bytes % 4)) % 4
	if padding > 0 {
		buf := bytes.Repeat([]byte{0x20}, int(padding))
		addr, err := e.fw.Allocate(padding)
		if err != nil {
			return e.fail(xerr.Wrap(xerr.ErrIO, "allocate padding", err))
		}
		if err := e.fw.WriteAtAddress(buf, addr); err != nil {
			return e.fail(xerr.Wrap(xerr.ErrIO, "write padding", err))
		}
	}

	if err := e.streamScratchIndex(); err != nil {
		return e.fail(err)
	}

	countBuf, err := codec.PackCount(e.count)
	if err != nil {
		return e.fail(xerr.Wrap(xerr.ErrFileTooLarge, "pack count trailer", err))
	}
	caddr, err := e.fw.Allocate(uint64(len(countBuf)))
	if err != nil {
		return e.fail(xerr.Wrap(xerr.ErrIO, "allocate count trailer", err))
	}
	if err := e.fw.WriteAtAddress(countBuf[:], caddr); err != nil {
		return e.fail(xerr.Wrap(xerr.ErrIO, "write count trailer", err))
	}

	totalSize := e.fw.EndOfFile()
	if codec.ExceedsLimit(totalSize) {
		return e.fail(xerr.New(xerr.ErrFileTooLarge, "final archive size exceeds 2^48-1"))
	}

	header, err := codec.PackHeader(codec.Header{Primary: e.primary, Secondary: e.secondary, TotalSize: totalSize})
	if err != nil {
		return e.fail(xerr.Wrap(xerr.ErrFileTooLarge, "pack final header", err))
	}
	if _, err := e.fw.WriteAt(header[:], 0); err != nil {
		return e.fail(xerr.Wrap(xerr.ErrIO, "patch header total size", err))
	}

	if err := e.fw.Flush(); err != nil {
		return e.fail(xerr.Wrap(xerr.ErrIO, "flush destination file", err))
	}
	if err := e.fw.Close(); err != nil {
		return e.fail(xerr.Wrap(xerr.ErrIO, "close destination file", err))
	}

	scratchPath := e.scratch.Name()
	e.scratch.Close()
	os.Remove(scratchPath)
	e.scratch = nil

	e.state = stateCompleted
	pkgLog.Printf("%s: Open -> Completed (%d objects, %d bytes)", e.path, e.count, totalSize)
	return nil
}

func (e *Encoder) streamScratchIndex() error {
	if _, err := e.scratch.Seek(0, io.SeekStart); err != nil {
		return xerr.Wrap(xerr.ErrIO, "rewind scratch index", err)
	}

	buf := make([]byte, scratchStreamChunkSize)

	for {
		n, readErr := e.scratch.Read(buf)
		if n > 0 {
			addr, err := e.fw.Allocate(uint64(n))
			if err != nil {
				return xerr.Wrap(xerr.ErrIO, "allocate index block", err)
			}
			if err := e.fw.WriteAtAddress(buf[:n], addr); err != nil {
				return xerr.Wrap(xerr.ErrIO, "write index block", err)
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return xerr.Wrap(xerr.ErrIO, "read scratch index", readErr)
		}
	}
}

// Close is the fail-safe drop path: once Complete has succeeded it is a
// no-op; otherwise it closes and unlinks the destination file and the
// scratch index. Safe to call multiple times and safe to defer
// unconditionally right after New.
func (e *Encoder) Close() error {
	if e.state == stateCompleted {
		return nil
	}

	var errs []error

	if e.scratch != nil {
		path := e.scratch.Name()
		if err := e.scratch.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
		e.scratch = nil
	}

	if e.fw != nil {
		if err := e.fw.Abort(); err != nil {
			errs = append(errs, err)
		}
		e.fw = nil
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
