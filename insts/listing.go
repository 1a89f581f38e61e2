package insts

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// WriteListing decodes every little-endian word read from r and writes one
// listing line per word to w:
//
//	<offset> : <hex> - <binary bytes, high first>    ; <instruction>
//
// Words that do not decode are shown as raw hexadecimal. A trailing partial
// word is ignored.
func WriteListing(w io.Writer, r io.Reader, decoder *Decoder) error {
	return WriteListingAt(w, r, 0, decoder)
}

// WriteListingAt is WriteListing with offsets starting at base.
func WriteListingAt(w io.Writer, r io.Reader, base uint32, decoder *Decoder) error {
	if decoder == nil {
		decoder = NewDecoder(nil)
	}

	var buf [4]byte
	offset := base

	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return fmt.Errorf("failed to read listing input: %w", err)
		}

		word := binary.LittleEndian.Uint32(buf[:])
		text := fmt.Sprintf("0x%08X", word)
		if d, ok := decoder.Decode(word); ok {
			text = d.String()
		}

		_, err := fmt.Fprintf(w, "%08X : %08X - %08b %08b %08b %08b    ; %s\n",
			offset, word, buf[3], buf[2], buf[1], buf[0], text)
		if err != nil {
			return fmt.Errorf("failed to write listing: %w", err)
		}

		offset += 4
	}
}
