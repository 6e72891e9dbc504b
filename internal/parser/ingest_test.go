package parser

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"unsafe"

	"github.com/insightforge/backend/internal/models"
)

func mustParse(t *testing.T, content string) *models.ParsedTable {
	t.Helper()
	table, err := ParseCSV(strings.NewReader(content))
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	return table
}

func TestParseCSV(t *testing.T) {
	table := mustParse(t, "Region,Sales,Notes\nEast,100,\nWest,200.5,big deal\n")

	if !reflect.DeepEqual(table.Headers, []string{"Region", "Sales", "Notes"}) {
		t.Fatalf("Unexpected headers: %v", table.Headers)
	}
	if table.TotalRowCount != 2 || len(table.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got total=%d len=%d", table.TotalRowCount, len(table.Rows))
	}

	first := table.Rows[0]
	if first["Region"] != models.Text("East") {
		t.Errorf("Expected Region=East, got %v", first["Region"])
	}
	if first["Sales"] != models.Number(100) {
		t.Errorf("Expected Sales=100, got %v", first["Sales"])
	}
	if !first["Notes"].IsNull() {
		t.Errorf("Expected empty cell to be null, got %v", first["Notes"])
	}
	if table.Rows[1]["Sales"] != models.Number(200.5) {
		t.Errorf("Expected Sales=200.5, got %v", table.Rows[1]["Sales"])
	}
	if table.Rows[1]["Notes"] != models.Text("big deal") {
		t.Errorf("Expected Notes text, got %v", table.Rows[1]["Notes"])
	}
}

func TestParseCSV_HeaderHandling(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"trims header cells", " Region , Sales \n", []string{"Region", "Sales"}},
		{"strips BOM", "\xEF\xBB\xBFRegion,Sales\n", []string{"Region", "Sales"}},
		{"renames duplicates", "a,a,a_1,a\n", []string{"a", "a_1", "a_1_1", "a_2"}},
		{"names blank headers", ",b,\n", []string{"Column_1", "b", "Column_3"}},
		{"skips leading blank lines", "\n\nx,y\n", []string{"x", "y"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := mustParse(t, tt.content)
			if !reflect.DeepEqual(table.Headers, tt.want) {
				t.Errorf("Expected headers %v, got %v", tt.want, table.Headers)
			}
		})
	}
}

func TestParseCSV_Rows(t *testing.T) {
	t.Run("header only yields zero rows", func(t *testing.T) {
		table := mustParse(t, "a,b\n")
		if table.TotalRowCount != 0 {
			t.Errorf("Expected 0 rows, got %d", table.TotalRowCount)
		}
		if table.Rows == nil {
			t.Error("Expected non-nil empty rows")
		}
	})

	t.Run("skips blank lines", func(t *testing.T) {
		table := mustParse(t, "a\n1\n\n2\n\n")
		if table.TotalRowCount != 2 {
			t.Errorf("Expected 2 rows, got %d", table.TotalRowCount)
		}
	})

	t.Run("quoted fields", func(t *testing.T) {
		table := mustParse(t, "name,quote\n\"Smith, J\",\"said \"\"hi\"\"\nthen left\"\n")
		row := table.Rows[0]
		if row["name"] != models.Text("Smith, J") {
			t.Errorf("Unexpected name: %v", row["name"])
		}
		if row["quote"] != models.Text("said \"hi\"\nthen left") {
			t.Errorf("Unexpected quote: %q", row["quote"].Str)
		}
	})

	t.Run("keeps text verbatim", func(t *testing.T) {
		table := mustParse(t, "a,b\n hello , 42 \n")
		if table.Rows[0]["a"] != models.Text(" hello ") {
			t.Errorf("Expected verbatim text, got %q", table.Rows[0]["a"].Str)
		}
		if table.Rows[0]["b"] != models.Number(42) {
			t.Errorf("Expected padded number to parse, got %v", table.Rows[0]["b"])
		}
	})

	t.Run("last line without newline", func(t *testing.T) {
		table := mustParse(t, "a\n1\n2")
		if table.TotalRowCount != 2 {
			t.Errorf("Expected 2 rows, got %d", table.TotalRowCount)
		}
	})
}

func TestParseCSV_InternsText(t *testing.T) {
	table := mustParse(t, "region\nEast\nEast\n")

	a := table.Rows[0]["region"].Str
	b := table.Rows[1]["region"].Str
	if unsafe.StringData(a) != unsafe.StringData(b) {
		t.Error("Expected repeated text cells to share storage")
	}
}

func TestParseCSV_Errors(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantLine int
		wantMsg  string
	}{
		{"empty file", "", 0, "no header row found"},
		{"only blank lines", "\n\n\n", 0, "no header row found"},
		{"too many fields", "a,b\n1,2,3\n", 2, "wrong number of fields"},
		{"too few fields", "a,b\n1,2\n3\n", 3, "wrong number of fields"},
		{"bare quote", "a,b\n1,x\"y\n", 2, "bare \" in non-quoted-field"},
		{"unterminated quote", "a\n\"open\n", 0, "extraneous or missing \" in quoted-field"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := ParseCSV(strings.NewReader(tt.content))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if table != nil {
				t.Error("Expected no partial table on error")
			}

			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("Expected *ParseError, got %T", err)
			}
			if tt.wantLine != 0 && pe.Line != tt.wantLine {
				t.Errorf("Expected line %d, got %d", tt.wantLine, pe.Line)
			}
			if !strings.Contains(pe.Message, tt.wantMsg) {
				t.Errorf("Expected message containing %q, got %q", tt.wantMsg, pe.Message)
			}
			if !strings.HasPrefix(err.Error(), "Error parsing CSV: ") {
				t.Errorf("Unexpected error text %q", err.Error())
			}
		})
	}
}

func TestIsCSV(t *testing.T) {
	tests := []struct {
		name        string
		fileName    string
		contentType string
		want        bool
	}{
		{"extension", "data.csv", "", true},
		{"upper case extension", "DATA.CSV", "application/octet-stream", true},
		{"text/csv", "export", "text/csv", true},
		{"with charset", "export", "text/csv; charset=utf-8", true},
		{"application/csv", "export", "application/csv", true},
		{"text/x-csv", "export", "text/x-csv", true},
		{"comma separated values", "export", "text/comma-separated-values", true},
		{"plain text", "notes.txt", "text/plain", false},
		{"spreadsheet", "book.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", false},
		{"csv inside name", "data.csv.txt", "", false},
		{"malformed media type", "export", ";;", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCSV(tt.fileName, tt.contentType); got != tt.want {
				t.Errorf("IsCSV(%q, %q) = %v, want %v", tt.fileName, tt.contentType, got, tt.want)
			}
		})
	}
}

func TestIngest(t *testing.T) {
	content := "Region,Sales\nEast,100\n"

	t.Run("valid file", func(t *testing.T) {
		file := &models.FileInfo{Name: "sales.csv", Size: int64(len(content))}
		table, err := Ingest(file, strings.NewReader(content), 0)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if table.TotalRowCount != 1 {
			t.Errorf("Expected 1 row, got %d", table.TotalRowCount)
		}
	})

	t.Run("invalid type", func(t *testing.T) {
		file := &models.FileInfo{Name: "sales.txt", ContentType: "text/plain", Size: int64(len(content))}
		_, err := Ingest(file, strings.NewReader(content), 0)
		if !errors.Is(err, ErrInvalidFileType) {
			t.Errorf("Expected ErrInvalidFileType, got %v", err)
		}
	})

	t.Run("declared size too large", func(t *testing.T) {
		file := &models.FileInfo{Name: "sales.csv", Size: DefaultMaxFileSize + 1}
		_, err := Ingest(file, strings.NewReader(content), 0)
		if !errors.Is(err, ErrFileTooLarge) {
			t.Errorf("Expected ErrFileTooLarge, got %v", err)
		}
	})

	t.Run("content larger than declared", func(t *testing.T) {
		file := &models.FileInfo{Name: "sales.csv", Size: 1}
		_, err := Ingest(file, strings.NewReader(content), 10)
		if !errors.Is(err, ErrFileTooLarge) {
			t.Errorf("Expected ErrFileTooLarge, got %v", err)
		}
	})

	t.Run("exactly at limit", func(t *testing.T) {
		file := &models.FileInfo{Name: "sales.csv", Size: int64(len(content))}
		_, err := Ingest(file, strings.NewReader(content), int64(len(content)))
		if err != nil {
			t.Errorf("Expected file at the limit to pass, got %v", err)
		}
	})
}

func TestValidateUpload_DefaultLimit(t *testing.T) {
	if err := ValidateUpload("a.csv", "", 5*1024*1024, 0); err != nil {
		t.Errorf("Expected 5 MiB to be accepted, got %v", err)
	}
	if err := ValidateUpload("a.csv", "", 5*1024*1024+1, 0); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("Expected ErrFileTooLarge, got %v", err)
	}
}

func TestParsedTable_Preview(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("n\n")
	for i := 0; i < 7; i++ {
		sb.WriteString("1\n")
	}
	table := mustParse(t, sb.String())

	preview := table.Preview()
	if len(preview.Rows) != models.PreviewRowLimit {
		t.Errorf("Expected %d preview rows, got %d", models.PreviewRowLimit, len(preview.Rows))
	}
	if preview.TotalRowCount != 7 {
		t.Errorf("Expected total 7, got %d", preview.TotalRowCount)
	}
}
