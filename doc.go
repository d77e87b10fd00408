// Package scavenger implements the Scavenger binary archive container: a
// single file holding an ordered list of byte-string objects, addressable by
// zero-based index, with two opaque signatures identifying the schema of
// its contents.
//
// An Encoder streams objects into a fresh archive:
//
//	enc, err := scavenger.New(path, "01020304", "6578616d706c")
//	if err != nil { ... }
//	defer enc.Close() // no-op once Complete succeeds; unlinks a partial file otherwise
//	if err := enc.BeginObject(); err != nil { ... }
//	if err := enc.Write([]byte("Hi")); err != nil { ... }
//	if err := enc.Complete(); err != nil { ... }
//
// A Decoder opens an existing archive for random-access reads:
//
//	dec, err := scavenger.Open(path)
//	if err != nil { ... }
//	defer dec.Close()
//	data, err := dec.ReadFull(0)
package scavenger
