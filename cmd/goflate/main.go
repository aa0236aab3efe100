// Command goflate is a minimal CLI front-end over the deflate, zlib, and
// gzip packages: goflate <d|z|g> <c|x> reads stdin and writes stdout.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/jonjohnsonjr/goflate/deflate"
	"github.com/jonjohnsonjr/goflate/gzip"
	"github.com/jonjohnsonjr/goflate/zlib"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: goflate <d|z|g> <c|x>")
	}

	format, mode := args[0], args[1]

	switch mode {
	case "c":
		return compress(format, os.Stdin, os.Stdout)
	case "x":
		return extract(format, os.Stdin, os.Stdout)
	default:
		return fmt.Errorf("unknown mode %q, want c or x", mode)
	}
}

func compress(format string, r io.Reader, w io.Writer) error {
	switch format {
	case "d":
		enc := deflate.NewEncoder(w)
		if _, err := io.Copy(enc, r); err != nil {
			return err
		}
		return enc.Finish()
	case "z":
		enc, err := zlib.NewEncoder(w)
		if err != nil {
			return err
		}
		if _, err := io.Copy(enc, r); err != nil {
			return err
		}
		return enc.Finish()
	case "g":
		enc, err := gzip.NewEncoder(w)
		if err != nil {
			return err
		}
		if _, err := io.Copy(enc, r); err != nil {
			return err
		}
		return enc.Finish()
	default:
		return fmt.Errorf("unknown format %q, want d, z, or g", format)
	}
}

func extract(format string, r io.Reader, w io.Writer) error {
	switch format {
	case "d":
		dec := deflate.NewDecoder(r)
		_, err := io.Copy(w, dec)
		return err
	case "z":
		dec, err := zlib.NewDecoder(r)
		if err != nil {
			return err
		}
		_, err = io.Copy(w, dec)
		return err
	case "g":
		dec, err := gzip.NewMultiDecoder(r)
		if err != nil {
			return err
		}
		_, err = io.Copy(w, dec)
		return err
	default:
		return fmt.Errorf("unknown format %q, want d, z, or g", format)
	}
}
