// Command scav-build creates a Scavenger archive from a newline-delimited
// list of input file paths, encoding one object per listed file in order.
package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/canidlogic/scavenger"
)

const chunkSize = 16 * 1024

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func main() {
	flag.Parse()

	args := flag.Args()
	if len(args) != 4 {
		fmt.Println("Usage: scav-build <file> <primary> <secondary> <list>")
		os.Exit(2)
	}
	outPath, primary, secondary, listPath := args[0], args[1], args[2], args[3]

	paths, err := readPathList(listPath)
	if err != nil {
		log.Fatalf("scav-build: read list file: %v", err)
	}

	enc, err := scavenger.New(outPath, primary, secondary)
	if err != nil {
		log.Fatalf("scav-build: %v", err)
	}
	defer enc.Close()

	for _, path := range paths {
		if err := encodeOne(enc, path); err != nil {
			enc.Close() // log.Fatalf skips deferred calls
			log.Fatalf("scav-build: %s: %v", path, err)
		}
	}

	if err := enc.Complete(); err != nil {
		enc.Close()
		log.Fatalf("scav-build: %v", err)
	}
}

// readPathList parses a UTF-8 text file of one path per line: a leading
// BOM on the first line is stripped, blank lines are ignored, and trailing
// whitespace is trimmed from every line.
func readPathList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var paths []string
	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		line := scanner.Bytes()
		if first {
			line = bytes.TrimPrefix(line, utf8BOM)
			first = false
		}
		trimmed := strings.TrimRight(string(line), " \t\r\n")
		if trimmed == "" {
			continue
		}
		paths = append(paths, trimmed)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return paths, nil
}

func encodeOne(enc *scavenger.Encoder, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return fmt.Errorf("input file is empty")
	}

	if err := enc.BeginObject(); err != nil {
		return err
	}

	buf := make([]byte, chunkSize)
	for {
		n, readErr := in.Read(buf)
		if n > 0 {
			if err := enc.Write(buf[:n]); err != nil {
				return err
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}
