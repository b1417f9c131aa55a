package csv

import (
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// decodeInput wraps r so that the csv reader always sees UTF-8.
func decodeInput(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "utf-8", "utf8":
		return r, nil
	case "latin1", "latin-1", "iso-8859-1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	case "windows-1252", "cp1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	}
	return nil, errors.Newf("unsupported input encoding %q", encoding)
}

// ValidEncoding reports whether encoding is accepted by the reader.
func ValidEncoding(encoding string) bool {
	_, err := decodeInput(strings.NewReader(""), encoding)
	return err == nil
}
