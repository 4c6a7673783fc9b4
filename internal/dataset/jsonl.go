package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines (1MB per line).
const MaxJSONLLineCapacity = 1024 * 1024

// ReadJSONLFile reads a table stored as one JSON object per line.
// Columns are the sorted union of keys across all rows; absent keys are missing.
func ReadJSONLFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	t := &Table{}
	seen := make(map[string]bool)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var raw map[string]any
		if err := json.Unmarshal(line, &raw); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}

		rec := make(Record, len(raw))
		for k, v := range raw {
			rec[k] = stringify(v)
			if !seen[k] {
				seen[k] = true
				t.Columns = append(t.Columns, k)
			}
		}
		t.Records = append(t.Records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	sort.Strings(t.Columns)
	for _, rec := range t.Records {
		for _, c := range t.Columns {
			if _, ok := rec[c]; !ok {
				rec[c] = ""
			}
		}
	}

	return t, nil
}

// WriteJSONLFile writes the table as JSONL atomically.
func WriteJSONLFile(path string, t *Table) error {
	return writeAtomic(path, ".tmp-*.jsonl", func(w io.Writer) error {
		enc := json.NewEncoder(w)
		for i, rec := range t.Records {
			row := make(map[string]string, len(t.Columns))
			for _, c := range t.Columns {
				row[c] = rec[c]
			}
			if err := enc.Encode(row); err != nil {
				return fmt.Errorf("encoding record %d: %w", i, err)
			}
		}
		return nil
	})
}

// writeAtomic writes through a temp file in the destination directory and
// renames it into place.
func writeAtomic(path, pattern string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	w := bufio.NewWriter(tmpFile)
	if err := write(w); err != nil {
		tmpFile.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("flushing temp file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	success = true
	return nil
}
