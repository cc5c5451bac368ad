package histogram

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// FormatVersion is the version written by Encode.
const FormatVersion = 1

const headerPrefix = "# mocasinns histogram v"

// Encode writes h as a versioned CSV stream of (bin, value) rows in
// canonical order.
func (h *Histogram[K, V]) Encode(w io.Writer, kc Codec[K], vc Codec[V]) error {
	if _, err := fmt.Fprintf(w, "%s%d\n", headerPrefix, FormatVersion); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"bin", "value"}); err != nil {
		return err
	}
	for _, r := range h.Records(kc, vc) {
		if err := cw.Write([]string{r.Bin, r.Value}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Decode replaces the content of h with a stream written by Encode.
func (h *Histogram[K, V]) Decode(r io.Reader, kc Codec[K], vc Codec[V]) error {
	br := bufio.NewReader(r)
	header, err := br.ReadString('\n')
	if err != nil && header == "" {
		return fmt.Errorf("%w: missing header: %v", ErrMalformed, err)
	}
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, headerPrefix) {
		return fmt.Errorf("%w: unexpected header %q", ErrMalformed, header)
	}
	version, err := strconv.Atoi(strings.TrimPrefix(header, headerPrefix))
	if err != nil {
		return fmt.Errorf("%w: header %q", ErrMalformed, header)
	}
	if version != FormatVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = 2
	rows, err := cr.ReadAll()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(rows) == 0 || rows[0][0] != "bin" || rows[0][1] != "value" {
		return fmt.Errorf("%w: missing column header", ErrMalformed)
	}
	recs := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		recs = append(recs, Record{Bin: row[0], Value: row[1]})
	}
	return h.LoadRecords(recs, kc, vc)
}

// SaveFile writes h to path, replacing any existing file.
func (h *Histogram[K, V]) SaveFile(path string, kc Codec[K], vc Codec[V]) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return h.Encode(f, kc, vc)
}

// LoadFile replaces the content of h with the file at path.
func (h *Histogram[K, V]) LoadFile(path string, kc Codec[K], vc Codec[V]) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return h.Decode(f, kc, vc)
}
