package parser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/insightforge/backend/internal/models"
)

func newTestDuckStore(t *testing.T) *DuckStore {
	t.Helper()
	ds, err := NewDuckStore(t.TempDir(), "test", DefaultDuckOptions())
	if err != nil {
		t.Fatalf("NewDuckStore failed: %v", err)
	}
	t.Cleanup(func() { ds.Close() })
	return ds
}

func TestDuckStore_InsertAndGetRows(t *testing.T) {
	ds := newTestDuckStore(t)

	var sb strings.Builder
	sb.WriteString("id,name,score\n")
	for i := 0; i < 25; i++ {
		fmt.Fprintf(&sb, "%d,item%d,%d.5\n", i, i, i)
	}
	table := mustParse(t, sb.String())

	if err := ds.InsertTable(context.Background(), table); err != nil {
		t.Fatalf("InsertTable failed: %v", err)
	}
	if ds.Len() != 25 {
		t.Fatalf("Expected 25 rows, got %d", ds.Len())
	}

	tests := []struct {
		name       string
		start, end int
		wantLen    int
		wantFirst  float64
	}{
		{"first page", 0, 10, 10, 0},
		{"middle", 10, 20, 10, 10},
		{"clamped end", 20, 100, 5, 20},
		{"negative start", -5, 2, 2, 0},
		{"past end", 30, 40, 0, 0},
		{"empty range", 5, 5, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := ds.GetRows(context.Background(), table.Headers, tt.start, tt.end)
			if err != nil {
				t.Fatalf("GetRows failed: %v", err)
			}
			if len(rows) != tt.wantLen {
				t.Fatalf("Expected %d rows, got %d", tt.wantLen, len(rows))
			}
			if tt.wantLen > 0 && rows[0]["id"] != models.Number(tt.wantFirst) {
				t.Errorf("Expected first id %v, got %v", tt.wantFirst, rows[0]["id"])
			}
		})
	}
}

func TestDuckStore_ValueKinds(t *testing.T) {
	ds := newTestDuckStore(t)

	table := mustParse(t, "a,b,c\n1.25,,hello\n,text, 7 \n")
	if err := ds.InsertTable(context.Background(), table); err != nil {
		t.Fatalf("InsertTable failed: %v", err)
	}

	rows, err := ds.GetRows(context.Background(), table.Headers, 0, 2)
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}

	for i := range rows {
		for _, h := range table.Headers {
			if rows[i][h] != table.Rows[i][h] {
				t.Errorf("Row %d column %s: expected %+v, got %+v", i, h, table.Rows[i][h], rows[i][h])
			}
		}
	}
}

func TestDuckStore_AppendsAcrossInserts(t *testing.T) {
	ds := newTestDuckStore(t)
	first := mustParse(t, "n\n1\n2\n")
	second := mustParse(t, "n\n3\n")

	if err := ds.InsertTable(context.Background(), first); err != nil {
		t.Fatal(err)
	}
	if err := ds.InsertTable(context.Background(), second); err != nil {
		t.Fatal(err)
	}

	rows, err := ds.GetRows(context.Background(), first.Headers, 0, ds.Len())
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || rows[2]["n"] != models.Number(3) {
		t.Errorf("Unexpected rows %v", rows)
	}
}

func TestDuckStore_CancelledContext(t *testing.T) {
	ds := newTestDuckStore(t)
	table := mustParse(t, "n\n1\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := ds.InsertTable(ctx, table); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestDuckStore_CloseRemovesFile(t *testing.T) {
	dir := t.TempDir()
	ds, err := NewDuckStore(dir, "closeme", DuckOptions{})
	if err != nil {
		t.Fatalf("NewDuckStore failed: %v", err)
	}

	path := filepath.Join(dir, "session_closeme.duckdb")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Expected database file to exist: %v", err)
	}

	ds.Close()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Expected database file to be removed, stat err = %v", err)
	}
}

func TestDecodeValue(t *testing.T) {
	if v := decodeValue(int(models.ValueNumber), 2, "ignored"); v != models.Number(2) {
		t.Errorf("Unexpected number %+v", v)
	}
	if v := decodeValue(int(models.ValueText), 0, "x"); v != models.Text("x") {
		t.Errorf("Unexpected text %+v", v)
	}
	if v := decodeValue(int(models.ValueNull), 9, "y"); !v.IsNull() {
		t.Errorf("Unexpected null %+v", v)
	}
}
