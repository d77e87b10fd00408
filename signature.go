package scavenger

import (
	"encoding/hex"
	"fmt"

	"github.com/canidlogic/scavenger/internal/xerr"
)

func parsePrimary(s string) ([4]byte, error) {
	var out [4]byte
	if len(s) != 8 {
		return out, xerr.New(xerr.ErrInvalidSignature,
			fmt.Sprintf("primary signature must be 8 hex digits, got %d characters", len(s)))
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return out, xerr.Wrap(xerr.ErrInvalidSignature, "primary signature must be hex", err)
	}
	copy(out[:], raw)
	return out, nil
}

func parseSecondary(s string) ([6]byte, error) {
	var out [6]byte

	switch len(s) {
	case 12:
		raw, err := hex.DecodeString(s)
		if err != nil {
			return out, xerr.Wrap(xerr.ErrInvalidSignature, "secondary signature must be hex", err)
		}
		copy(out[:], raw)
		return out, nil
	case 6:
		for i := 0; i < 6; i++ {
			c := s[i]
			if c < 0x20 || c > 0x7E {
				return out, xerr.New(xerr.ErrInvalidSignature,
					"secondary ASCII form must be printable ASCII (0x20-0x7E)")
			}
			out[i] = c
		}
		return out, nil
	default:
		return out, xerr.New(xerr.ErrInvalidSignature,
			fmt.Sprintf("secondary signature must be 12 hex digits or 6 ASCII bytes, got %d characters", len(s)))
	}
}

// asciiIfPrintable returns b as a string if every byte is printable ASCII.
func asciiIfPrintable(b []byte) (string, bool) {
	for _, c := range b {
		if c < 0x20 || c > 0x7E {
			return "", false
		}
	}
	return string(b), true
}
