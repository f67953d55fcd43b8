package store

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/pkg/errors"
)

// Load reads a CSV stream into a fresh Table. The first record is the
// header; every following record must match its width.
func Load(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "reading csv header")
	}
	t := NewTable(header)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading csv row")
		}
		if err := t.Append(record); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Save writes the table back out in the same CSV form it was read from,
// snapshotting each row under its own lock.
func (t *Table) Save(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	for _, row := range t.Rows() {
		if err := cw.Write(row.Snapshot()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
