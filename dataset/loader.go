package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
)

// Extension is the only file extension Load accepts.
const Extension = ".csv"

// Load reads the CSV file at path into a Table.
//
// The path must name an existing regular file ending in ".csv"; otherwise a
// FileNotFoundError or FormatError is returned before any parsing happens.
func Load(path string) (*Table, error) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, errors.NewFileNotFoundError(path)
	}
	if !strings.HasSuffix(path, Extension) {
		return nil, errors.NewFormatError(path, "unexpected file extension")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewResourceError("open", path, err)
	}
	defer f.Close()

	t, err := ReadCSV(f, path)
	if err != nil {
		return nil, err
	}

	log.GetLoggerWithName("dataset").Debug("Dataset loaded",
		log.PathKey, path,
		log.SamplesKey, t.NRows(),
		log.FeaturesKey, t.NCols(),
		log.MissingKey, t.MissingCount(),
	)
	return t, nil
}

// ReadCSV parses CSV content with a header row. name is used in error messages only.
func ReadCSV(r io.Reader, name string) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.NewFormatError(name, "no columns to parse from file")
	}
	if err != nil {
		return nil, errors.NewFormatError(name, err.Error())
	}
	header = normalizeHeader(header)
	if dups := lo.FindDuplicates(header); len(dups) > 0 {
		return nil, errors.NewFormatError(name, "duplicate column names: "+strings.Join(dups, ", "))
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.NewFormatError(name, err.Error())
	}
	return NewTable(header, records)
}

// normalizeHeader strips a UTF-8 BOM and names blank header cells "Unnamed: i".
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		h = strings.TrimSpace(h)
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		out[i] = h
	}
	return out
}

// WriteCSV writes t with its header to w.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return errors.Wrap(err, "write header")
	}
	if err := cw.WriteAll(t.Records()); err != nil {
		return errors.Wrap(err, "write records")
	}
	return nil
}
