// Command scav-stat prints the primary/secondary signatures and object
// count of a Scavenger archive.
package main

import (
	"fmt"
	"log"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/canidlogic/scavenger"
)

func main() {
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		fmt.Println("Usage: scav-stat <file>")
		os.Exit(2)
	}

	dec, err := scavenger.Open(args[0])
	if err != nil {
		log.Fatalf("scav-stat: %v", err)
	}
	defer dec.Close()

	fmt.Printf("primary:   %s\n", dec.Primary())
	fmt.Printf("secondary: %s\n", dec.Secondary())
	if ascii, ok := dec.SecondaryASCII(); ok {
		fmt.Printf("           %q\n", ascii)
	}
	fmt.Printf("count:     %d\n", dec.Count())
}
