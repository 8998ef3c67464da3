package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/attunelabs/attune/internal/storage"
)

// UpsertGroupInsights transactionally replaces the given insight types for one
// group. Re-running with identical records is a no-op observable change.
func (s *Store) UpsertGroupInsights(ctx context.Context, groupID string, records []storage.InsightRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return fmt.Errorf("group id is required")
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insight upsert: %w", err)
	}

	for _, record := range records {
		if record.Type == "" {
			_ = tx.Rollback()
			return fmt.Errorf("insight type is required")
		}
		generatedAt := record.GeneratedAt
		if generatedAt.IsZero() {
			generatedAt = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO group_insights (group_id, insight_type, payload_json, confidence, generated_at, expires_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (group_id, insight_type) DO UPDATE SET
	payload_json = excluded.payload_json,
	confidence = excluded.confidence,
	generated_at = excluded.generated_at,
	expires_at = excluded.expires_at
`,
			groupID,
			string(record.Type),
			record.PayloadJSON,
			record.Confidence,
			toMillis(generatedAt),
			toNullMillis(record.ExpiresAt),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert insight %s: %w", record.Type, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insight upsert: %w", err)
	}
	return nil
}

// ListGroupInsights returns every persisted insight payload for a group.
func (s *Store) ListGroupInsights(ctx context.Context, groupID string) ([]storage.InsightRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT group_id, insight_type, payload_json, confidence, generated_at, expires_at
FROM group_insights
WHERE group_id = ?
ORDER BY insight_type ASC
`, strings.TrimSpace(groupID))
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}
	defer rows.Close()

	var records []storage.InsightRecord
	for rows.Next() {
		var (
			record      storage.InsightRecord
			insightType string
			generatedAt int64
			expiresAt   sql.NullInt64
		)
		if err := rows.Scan(
			&record.GroupID,
			&insightType,
			&record.PayloadJSON,
			&record.Confidence,
			&generatedAt,
			&expiresAt,
		); err != nil {
			return nil, fmt.Errorf("scan insight: %w", err)
		}
		record.Type = storage.InsightType(insightType)
		record.GeneratedAt = fromMillis(generatedAt)
		record.ExpiresAt = fromNullMillis(expiresAt)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate insights: %w", err)
	}
	return records, nil
}
