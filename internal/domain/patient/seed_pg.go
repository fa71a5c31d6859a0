package patient

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// PGSeed loads seed records from the patient_seed table in Postgres.
type PGSeed struct {
	q querier
}

func NewPGSeed(pool *pgxpool.Pool) *PGSeed {
	return &PGSeed{q: pool}
}

func (s *PGSeed) Load(ctx context.Context) ([]*Record, error) {
	rows, err := s.q.Query(ctx, seedQuery)
	if err != nil {
		return nil, fmt.Errorf("query patient_seed: %w", err)
	}
	defer rows.Close()

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

type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ReplacePGSeed creates patient_seed if needed and replaces its contents
// with records in one transaction.
func ReplacePGSeed(ctx context.Context, db beginner, records []*Record) error {
	return pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, seedTableDDL); err != nil {
			return fmt.Errorf("create patient_seed: %w", err)
		}
		if _, err := tx.Exec(ctx, "TRUNCATE patient_seed"); err != nil {
			return fmt.Errorf("truncate patient_seed: %w", err)
		}
		columns := append([]string{"seq"}, seedColumnNames...)
		n, err := tx.CopyFrom(ctx, pgx.Identifier{"patient_seed"}, columns,
			pgx.CopyFromSlice(len(records), func(i int) ([]interface{}, error) {
				return seedValues(i, records[i]), nil
			}))
		if err != nil {
			return fmt.Errorf("copy patient_seed: %w", err)
		}
		if int(n) != len(records) {
			return fmt.Errorf("copy patient_seed: wrote %d of %d rows", n, len(records))
		}
		return nil
	})
}
