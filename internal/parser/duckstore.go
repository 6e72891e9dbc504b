package parser

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/insightforge/backend/internal/models"
	"github.com/labstack/gommon/log"
	"github.com/marcboeker/go-duckdb"
)

// DuckOptions tunes the embedded DuckDB instance.
type DuckOptions struct {
	Threads     int
	MemoryLimit string // e.g. "256MB"
}

// DefaultDuckOptions returns conservative settings for a per-session database.
func DefaultDuckOptions() DuckOptions {
	return DuckOptions{
		Threads:     2,
		MemoryLimit: "256MB",
	}
}

// DuckStore keeps the full rows of one parsed table in a temporary DuckDB file
// so a session can page through them without holding them in memory.
// Cells are stored long-format: one row per (row, column) pair.
type DuckStore struct {
	db       *sql.DB
	dbPath   string
	rowCount int

	// Semaphore to limit concurrent queries
	querySem chan struct{}
}

// NewDuckStore creates a new DuckDB-backed store in the given temp directory.
func NewDuckStore(tempDir string, sessionID string, opts DuckOptions) (*DuckStore, error) {
	dbPath := filepath.Join(tempDir, fmt.Sprintf("session_%s.duckdb", sessionID))
	return NewDuckStoreAtPath(dbPath, opts)
}

// NewDuckStoreAtPath creates a new DuckDB-backed store at a specific path.
func NewDuckStoreAtPath(dbPath string, opts DuckOptions) (*DuckStore, error) {
	log.Debugf("[DuckStore] Creating database at: %s", dbPath)

	if opts.Threads <= 0 {
		opts.Threads = DefaultDuckOptions().Threads
	}
	if opts.MemoryLimit == "" {
		opts.MemoryLimit = DefaultDuckOptions().MemoryLimit
	}

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			fmt.Sprintf("PRAGMA memory_limit='%s'", opts.MemoryLimit),
			fmt.Sprintf("PRAGMA threads=%d", opts.Threads),
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				log.Warnf("[DuckStore] Pragma error (%s): %v", pragma, err)
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)

	_, err = db.Exec(`
		CREATE TABLE cells (
			row_idx  INTEGER NOT NULL,
			col_idx  SMALLINT NOT NULL,
			val_type TINYINT NOT NULL,
			val_num  DOUBLE,
			val_str  VARCHAR
		)
	`)
	if err != nil {
		db.Close()
		os.Remove(dbPath)
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &DuckStore{
		db:       db,
		dbPath:   dbPath,
		querySem: make(chan struct{}, 3), // Max 3 concurrent queries
	}, nil
}

// InsertTable appends every cell of the table using the native Appender API.
func (ds *DuckStore) InsertTable(ctx context.Context, table *models.ParsedTable) error {
	if len(table.Headers) > 32767 {
		return fmt.Errorf("too many columns: %d", len(table.Headers))
	}

	startTime := time.Now()

	conn, err := ds.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	err = conn.Raw(func(driverConn interface{}) error {
		dConn, ok := driverConn.(*duckdb.Conn)
		if !ok {
			return fmt.Errorf("failed to cast to duckdb.Conn")
		}

		appender, err := duckdb.NewAppenderFromConn(dConn, "", "cells")
		if err != nil {
			return fmt.Errorf("failed to create appender: %w", err)
		}
		defer appender.Close()

		for i, row := range table.Rows {
			if i%1000 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			for j, h := range table.Headers {
				v, ok := row[h]
				if !ok {
					v = models.Null()
				}
				err := appender.AppendRow(
					int32(ds.rowCount+i),
					int16(j),
					int8(v.Kind),
					v.Num,
					v.Str,
				)
				if err != nil {
					return fmt.Errorf("failed to append row %d: %w", i, err)
				}
			}
		}

		return appender.Flush()
	})
	if err != nil {
		return fmt.Errorf("appender error: %w", err)
	}

	ds.rowCount += len(table.Rows)
	log.Debugf("[DuckStore] Inserted %d rows x %d columns in %v",
		len(table.Rows), len(table.Headers), time.Since(startTime))
	return nil
}

// Len returns the number of stored rows.
func (ds *DuckStore) Len() int {
	return ds.rowCount
}

// GetRows returns rows [start, end) as records keyed by headers.
// headers must be the header list the table was inserted with.
func (ds *DuckStore) GetRows(ctx context.Context, headers []string, start, end int) ([]models.Record, error) {
	// Acquire semaphore to limit concurrent queries
	select {
	case ds.querySem <- struct{}{}:
		defer func() { <-ds.querySem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if start < 0 {
		start = 0
	}
	if end > ds.rowCount {
		end = ds.rowCount
	}
	count := end - start
	if count <= 0 {
		return []models.Record{}, nil
	}

	records := make([]models.Record, count)
	for i := range records {
		records[i] = make(models.Record, len(headers))
	}

	rows, err := ds.db.QueryContext(ctx, `
		SELECT row_idx, col_idx, val_type, val_num, val_str
		FROM cells WHERE row_idx >= ? AND row_idx < ? ORDER BY row_idx, col_idx
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var rowIdx, colIdx, valType int
		var valNum sql.NullFloat64
		var valStr sql.NullString
		if err := rows.Scan(&rowIdx, &colIdx, &valType, &valNum, &valStr); err != nil {
			return nil, err
		}
		if colIdx < 0 || colIdx >= len(headers) {
			continue
		}
		records[rowIdx-start][headers[colIdx]] = decodeValue(valType, valNum.Float64, valStr.String)
	}

	return records, rows.Err()
}

// Close closes the database and removes its file.
func (ds *DuckStore) Close() error {
	if ds.db != nil {
		ds.db.Close()
	}
	if ds.dbPath != "" {
		os.Remove(ds.dbPath)
		os.Remove(ds.dbPath + ".wal")
	}
	return nil
}

func decodeValue(valType int, valNum float64, valStr string) models.Value {
	switch models.ValueKind(valType) {
	case models.ValueNumber:
		return models.Number(valNum)
	case models.ValueText:
		return models.Text(valStr)
	default:
		return models.Null()
	}
}
