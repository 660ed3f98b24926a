// Package search implements the streaming, case-insensitive substring scan
// used to test whether a file contains the search string.
package search

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/railwayapp/ctfhunter/internal/filesystems"
)

// DefaultChunkSize is the number of bytes read from a file per pass.
const DefaultChunkSize = 64 * 1024

// Scanner searches readers for a pre-lowered needle without loading them
// into memory. The zero value uses DefaultChunkSize.
type Scanner struct {
	chunkSize int
}

// NewScanner creates a Scanner that reads chunkSize bytes per pass. Values
// below 1 fall back to DefaultChunkSize.
func NewScanner(chunkSize int) *Scanner {
	if chunkSize < 1 {
		chunkSize = DefaultChunkSize
	}
	return &Scanner{chunkSize: chunkSize}
}

// ChunkSize returns the number of bytes read per pass.
func (s *Scanner) ChunkSize() int {
	if s == nil || s.chunkSize < 1 {
		return DefaultChunkSize
	}
	return s.chunkSize
}

// ContainsFile reports whether the file at path contains needle. needle must
// already be lower-cased with Lower. Files that cannot be opened or read
// yield false.
func (s *Scanner) ContainsFile(fsys filesystems.FileSystem, path string, needle []byte) bool {
	found, err := s.ScanFile(fsys, path, needle)
	return err == nil && found
}

// ScanFile is ContainsFile with the open or read failure returned, for
// callers that want to log why a file yielded no match.
func (s *Scanner) ScanFile(fsys filesystems.FileSystem, path string, needle []byte) (bool, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	found, err := s.Contains(f, needle)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	return found, nil
}

// Contains reports whether r yields needle anywhere in its content, comparing
// case-insensitively. needle must already be lower-cased with Lower. An empty
// needle always matches.
//
// The window holds the last len(needle)-1 folded bytes of the previous chunk
// followed by the freshly folded chunk, so an occurrence split across two
// reads is always fully contained in one window.
func (s *Scanner) Contains(r io.Reader, needle []byte) (bool, error) {
	if len(needle) == 0 {
		return true, nil
	}

	chunk := s.ChunkSize()
	overlap := len(needle) - 1

	raw := make([]byte, chunk)
	window := make([]byte, overlap+chunk)

	// carried counts the real (already folded) bytes at the head of window.
	carried := 0
	for {
		n, err := io.ReadFull(r, raw)
		if n > 0 {
			foldInto(window[carried:], raw[:n])
			total := carried + n
			if bytes.Index(window[:total], needle) >= 0 {
				return true, nil
			}

			keep := min(overlap, total)
			copy(window, window[total-keep:total])
			carried = keep
		}

		switch {
		case err == nil:
			// Full chunk, the file likely continues.
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return false, nil
		default:
			return false, err
		}
	}
}
