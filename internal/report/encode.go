package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

// Encode writes doc in a machine-readable format.
func Encode(w io.Writer, format Format, doc Document) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatMsgpack:
		enc := msgpack.NewEncoder(w)
		enc.UseCompactInts(true)
		return enc.Encode(&doc)
	default:
		return fmt.Errorf("format %q is not a document format", format)
	}
}

// Decode reads a msgpack document written by Encode.
func Decode(r io.Reader) (Document, error) {
	var doc Document
	err := msgpack.NewDecoder(r).Decode(&doc)
	return doc, err
}

// WriteFile encodes doc into path through a temporary file in the same
// directory, so readers never observe a partial report.
func WriteFile(path string, format Format, doc Document) (err error) {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, ".refaudit-report-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()
	if err = Encode(f, format, doc); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	return os.Rename(f.Name(), path)
}
