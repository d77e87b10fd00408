// Command scav-get extracts one object from a Scavenger archive,
// byte-for-byte, into an output file.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	flag "github.com/spf13/pflag"

	"github.com/canidlogic/scavenger"
)

const chunkSize = 16 * 1024

func main() {
	flag.Parse()

	args := flag.Args()
	if len(args) != 3 {
		fmt.Println("Usage: scav-get <file> <index> <out>")
		os.Exit(2)
	}

	index, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		log.Fatalf("scav-get: invalid index %q: %v", args[1], err)
	}

	dec, err := scavenger.Open(args[0])
	if err != nil {
		log.Fatalf("scav-get: %v", err)
	}
	defer dec.Close()

	handle, err := dec.Handle(index)
	if err != nil {
		log.Fatalf("scav-get: %v", err)
	}

	out, err := os.Create(args[2])
	if err != nil {
		log.Fatalf("scav-get: create output file: %v", err)
	}
	defer func() {
		if err := out.Close(); err != nil {
			log.Printf("scav-get: close output file: %v", err)
		}
	}()

	buf := make([]byte, chunkSize)
	// Hide *os.File's ReadFrom so CopyBuffer uses buf rather than its own.
	if _, err := io.CopyBuffer(struct{ io.Writer }{out}, handle, buf); err != nil {
		log.Fatalf("scav-get: copy object %d: %v", index, err)
	}
}
