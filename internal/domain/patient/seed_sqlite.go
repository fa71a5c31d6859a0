package patient

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLiteSeed loads seed records from a patient_seed table in a SQLite file.
type SQLiteSeed struct {
	db *sql.DB
}

// OpenSQLiteSeed opens the database at path. The caller closes it.
func OpenSQLiteSeed(path string) (*SQLiteSeed, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite seed path required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &SQLiteSeed{db: db}, nil
}

func (s *SQLiteSeed) Close() error {
	return s.db.Close()
}

func (s *SQLiteSeed) Load(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, seedQuery)
	if err != nil {
		return nil, fmt.Errorf("query patient_seed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*Record
	for rows.Next() {
		var row seedRow
		if err := rows.Scan(row.targets()...); err != nil {
			return nil, fmt.Errorf("scan patient_seed: %w", err)
		}
		records = append(records, row.record())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patient_seed: %w", err)
	}
	return records, nil
}

// Replace creates patient_seed if needed and replaces its contents with
// records in one transaction.
func (s *SQLiteSeed) Replace(ctx context.Context, records []*Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, seedTableDDL); err != nil {
		return fmt.Errorf("create patient_seed: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM patient_seed"); err != nil {
		return fmt.Errorf("clear patient_seed: %w", err)
	}

	columns := append([]string{"seq"}, seedColumnNames...)
	insert := "INSERT INTO patient_seed (" + strings.Join(columns, ", ") +
		") VALUES (" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx, seedValues(i, r)...); err != nil {
			return fmt.Errorf("insert %s: %w", r.MBI, err)
		}
	}
	return tx.Commit()
}
