package events

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// WriteLines writes one JSON object per event, newline separated.
func WriteLines(w io.Writer, evs []*Event) error {
	enc := json.NewEncoder(w)
	for _, e := range evs {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("encoding %s event: %w", e.Type, err)
		}
	}
	return nil
}

// ExportLog writes a transition trace to path. A ".jsonl" path gets one
// event per line; anything else gets an indented JSON array. "-" writes
// lines to stdout.
func ExportLog(evs []*Event, path string) error {
	if path == "-" {
		return WriteLines(os.Stdout, evs)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".events-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if strings.EqualFold(filepath.Ext(path), ".jsonl") {
		err = WriteLines(tmp, evs)
	} else {
		var data []byte
		data, err = json.MarshalIndent(evs, "", "  ")
		if err == nil {
			_, err = tmp.Write(append(data, '\n'))
		}
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
