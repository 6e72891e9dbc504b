package parser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/insightforge/backend/internal/models"
)

// DefaultMaxFileSize is the largest accepted upload: 5 MiB.
const DefaultMaxFileSize int64 = 5 * 1024 * 1024

var (
	// ErrInvalidFileType is returned for files that are neither named *.csv nor declared as CSV.
	ErrInvalidFileType = errors.New("please upload a CSV file")
	// ErrFileTooLarge is returned for files above the size limit.
	ErrFileTooLarge = errors.New("file exceeds the maximum upload size")
)

// csvMediaTypes are the content types browsers and clients send for CSV files.
var csvMediaTypes = map[string]struct{}{
	"text/csv":                    {},
	"application/csv":             {},
	"text/x-csv":                  {},
	"text/comma-separated-values": {},
}

// ParseError reports a CSV that could not be parsed. No rows are returned with it.
type ParseError struct {
	Line    int    // 1-based source line, 0 if unknown
	Message string // message from the underlying parser
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Error parsing CSV: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func newParseError(err error) *ParseError {
	pe := &ParseError{Message: err.Error(), Err: err}
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		pe.Line = csvErr.Line
	}
	return pe
}

// IsCSV reports whether a file name or declared content type identifies CSV.
func IsCSV(name, contentType string) bool {
	if strings.HasSuffix(strings.ToLower(strings.TrimSpace(name)), ".csv") {
		return true
	}
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	_, ok := csvMediaTypes[strings.ToLower(mediaType)]
	return ok
}

// ValidateUpload checks a file's name, content type and declared size.
// A non-positive maxSize selects DefaultMaxFileSize.
func ValidateUpload(name, contentType string, size, maxSize int64) error {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	if !IsCSV(name, contentType) {
		return ErrInvalidFileType
	}
	if size > maxSize {
		return ErrFileTooLarge
	}
	return nil
}

// Ingest validates an uploaded file and parses its content into a table.
// The size limit is enforced on the bytes actually read, not only on file.Size.
func Ingest(file *models.FileInfo, r io.Reader, maxSize int64) (*models.ParsedTable, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	if err := ValidateUpload(file.Name, file.ContentType, file.Size, maxSize); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, ErrFileTooLarge
	}

	return ParseCSV(bytes.NewReader(data))
}

// ParseCSV parses delimited text into a table. The first non-empty line is the
// header row; blank lines are skipped. Any malformed row aborts the parse.
func ParseCSV(r io.Reader) (*models.ParsedTable, error) {
	br := bufio.NewReader(r)
	skipBOM(br)

	reader := csv.NewReader(br)
	// The header row fixes the field count for every following record.
	reader.FieldsPerRecord = 0

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &ParseError{Message: "no header row found"}
	}
	if err != nil {
		return nil, newParseError(err)
	}

	headers := normalizeHeaders(header)
	rows := make([]models.Record, 0)
	intern := NewInterner(0)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, newParseError(err)
		}

		row := make(models.Record, len(headers))
		for i, cell := range record {
			v := InferValue(cell)
			if v.Kind == models.ValueText {
				v.Str = intern.Intern(v.Str)
			}
			row[headers[i]] = v
		}
		rows = append(rows, row)
	}

	return &models.ParsedTable{
		Headers:       headers,
		Rows:          rows,
		TotalRowCount: len(rows),
	}, nil
}

// skipBOM drops a leading UTF-8 byte order mark.
func skipBOM(br *bufio.Reader) {
	if b, err := br.Peek(3); err == nil && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		br.Discard(3)
	}
}

// normalizeHeaders trims header cells, names blank ones Column_N and renames
// duplicates Name_1, Name_2, ... so every header is unique.
func normalizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for i, h := range raw {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Column_%d", i+1)
		}

		name := h
		for n := 1; ; n++ {
			if _, taken := seen[name]; !taken {
				break
			}
			name = fmt.Sprintf("%s_%d", h, n)
		}

		seen[name] = struct{}{}
		headers[i] = name
	}

	return headers
}
