package export

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"
)

// portable returns a copy of e that every encoder can represent losslessly.
// Raw byte fields that are not valid UTF-8 move to their base64 twin; the
// free-text Error and Targets are repaired with U+FFFD.
func (e Event) portable() Event {
	e.Path, e.PathBase64 = splitUTF8(e.Path, e.PathBase64)
	e.StartDir, e.StartDirBase64 = splitUTF8(e.StartDir, e.StartDirBase64)

	if e.Contents != nil && !utf8.ValidString(*e.Contents) {
		e.ContentsBase64 = base64.StdEncoding.EncodeToString([]byte(*e.Contents))
		e.Contents = nil
	}
	if e.Search != nil && !utf8.ValidString(*e.Search) {
		e.SearchBase64 = base64.StdEncoding.EncodeToString([]byte(*e.Search))
		e.Search = nil
	}

	e.Error = strings.ToValidUTF8(e.Error, "\uFFFD")
	for i, target := range e.Targets {
		if !utf8.ValidString(target) {
			// Copy before repairing so the caller's slice is untouched
			targets := append([]string(nil), e.Targets...)
			for j := i; j < len(targets); j++ {
				targets[j] = strings.ToValidUTF8(targets[j], "\uFFFD")
			}
			e.Targets = targets
			break
		}
	}
	return e
}

func splitUTF8(text, encoded string) (string, string) {
	if utf8.ValidString(text) {
		return text, encoded
	}
	return "", base64.StdEncoding.EncodeToString([]byte(text))
}

func joinUTF8(field, text, encoded string) (string, error) {
	if encoded == "" {
		return text, nil
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("invalid %s_base64: %w", field, err)
	}
	return string(raw), nil
}

// RawPath returns the exact path bytes, decoding path_base64 when set.
func (e Event) RawPath() (string, error) {
	return joinUTF8("path", e.Path, e.PathBase64)
}

// RawStartDir returns the exact start directory, decoding start_dir_base64
// when set.
func (e Event) RawStartDir() (string, error) {
	return joinUTF8("start_dir", e.StartDir, e.StartDirBase64)
}

// RawContents returns the exact flag file contents and whether the event
// carries any.
func (e Event) RawContents() (string, bool, error) {
	if e.ContentsBase64 != "" {
		contents, err := joinUTF8("contents", "", e.ContentsBase64)
		return contents, err == nil, err
	}
	if e.Contents == nil {
		return "", false, nil
	}
	return *e.Contents, true, nil
}

// RawSearch returns the exact search string and whether the event carries it.
func (e Event) RawSearch() (string, bool, error) {
	if e.SearchBase64 != "" {
		search, err := joinUTF8("search", "", e.SearchBase64)
		return search, err == nil, err
	}
	if e.Search == nil {
		return "", false, nil
	}
	return *e.Search, true, nil
}
