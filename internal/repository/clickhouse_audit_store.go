package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"StudentDrop/internal/domain/models"
	"StudentDrop/internal/domain/repository"
	pkgch "StudentDrop/pkg/clickhouse"
	"StudentDrop/pkg/logger"
)

const auditTable = "prediction_events"

// ClickHouseAuditStore implements AuditStore backed by ClickHouse.
type ClickHouseAuditStore struct {
	ch       *pkgch.Client
	db       *sql.DB
	database string
	table    string
	l        *logger.Logger
}

func NewClickHouseAuditStore(ch *pkgch.Client, l *logger.Logger) *ClickHouseAuditStore {
	return &ClickHouseAuditStore{
		ch:       ch,
		db:       ch.DB(),
		database: ch.Database(),
		table:    ch.Database() + "." + auditTable,
		l:        l,
	}
}

func schemaStatements(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            event_id     String,
            event_type   LowCardinality(String),
            student_id   Int64,
            risk_percent Float64,
            category     LowCardinality(String),
            accuracy     Float64,
            source       LowCardinality(String),
            occurred_at  DateTime64(3, 'UTC')
        ) ENGINE = ReplacingMergeTree
        PARTITION BY toYYYYMM(occurred_at)
        ORDER BY (event_type, occurred_at, event_id)`, table),
	}
}

// Init creates the database and table if they do not exist.
func (s *ClickHouseAuditStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, schemaStatements(s.database, s.table))
}

// StoreBatch inserts events with multi-row VALUES, chunked.
func (s *ClickHouseAuditStore) StoreBatch(ctx context.Context, events []*models.Event) error {
	const chunkSize = 2000
	for start := 0; start < len(events); start += chunkSize {
		end := start + chunkSize
		if end > len(events) {
			end = len(events)
		}

		q, args := buildInsert(s.table, events[start:end])
		if q == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse store_batch error",
				logger.String("table", s.table),
				logger.Int("rows", len(args)/8),
				logger.Error(err))
			return fmt.Errorf("insert audit events: %w", err)
		}
	}
	return nil
}

func buildInsert(table string, events []*models.Event) (string, []interface{}) {
	values := make([]string, 0, len(events))
	args := make([]interface{}, 0, len(events)*8)
	for _, e := range events {
		if e == nil || e.ID == "" {
			continue
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			e.ID,
			string(e.Type),
			e.StudentID,
			e.RiskPercent,
			string(e.Category),
			e.Accuracy,
			e.Source,
			e.OccurredAt.UTC(),
		)
	}
	if len(values) == 0 {
		return "", nil
	}
	q := fmt.Sprintf("INSERT INTO %s (event_id, event_type, student_id, risk_percent, category, accuracy, source, occurred_at) VALUES %s",
		table, strings.Join(values, ","))
	return q, args
}

// CountByCategory counts prediction events per risk category in [from, to].
func (s *ClickHouseAuditStore) CountByCategory(ctx context.Context, from, to time.Time) (map[models.RiskCategory]uint64, error) {
	q := fmt.Sprintf(`
        SELECT category, count() AS n
        FROM %s FINAL
        WHERE event_type = ? AND occurred_at >= ? AND occurred_at <= ?
        GROUP BY category
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, string(models.EventPrediction), from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("count by category: %w", err)
	}
	defer rows.Close()

	out := make(map[models.RiskCategory]uint64, 3)
	for rows.Next() {
		var (
			cat string
			n   uint64
		)
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		out[models.RiskCategory(cat)] = n
	}
	return out, rows.Err()
}

func (s *ClickHouseAuditStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var _ repository.AuditStore = (*ClickHouseAuditStore)(nil)
