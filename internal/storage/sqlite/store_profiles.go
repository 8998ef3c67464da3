package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/attunelabs/attune/internal/storage"
)

// PutMemberProfile stores one member's sealed profile payload.
func (s *Store) PutMemberProfile(ctx context.Context, record storage.MemberProfileRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	record.GroupID = strings.TrimSpace(record.GroupID)
	record.MemberID = strings.TrimSpace(record.MemberID)
	if record.GroupID == "" {
		return fmt.Errorf("group id is required")
	}
	if record.MemberID == "" {
		return fmt.Errorf("member id is required")
	}
	if len(record.Ciphertext) == 0 {
		return fmt.Errorf("ciphertext is required")
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO member_profiles (group_id, member_id, ciphertext, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (group_id, member_id) DO UPDATE SET
	ciphertext = excluded.ciphertext,
	updated_at = excluded.updated_at
`,
		record.GroupID,
		record.MemberID,
		record.Ciphertext,
		toMillis(record.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put member profile: %w", err)
	}
	return nil
}

// ListGroupProfiles returns every sealed member profile in a group, ordered by
// member ID for deterministic downstream processing.
func (s *Store) ListGroupProfiles(ctx context.Context, groupID string) ([]storage.MemberProfileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT group_id, member_id, ciphertext, updated_at
FROM member_profiles
WHERE group_id = ?
ORDER BY member_id ASC
`, strings.TrimSpace(groupID))
	if err != nil {
		return nil, fmt.Errorf("list group profiles: %w", err)
	}
	defer rows.Close()

	var records []storage.MemberProfileRecord
	for rows.Next() {
		var (
			record    storage.MemberProfileRecord
			updatedAt int64
		)
		if err := rows.Scan(&record.GroupID, &record.MemberID, &record.Ciphertext, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan member profile: %w", err)
		}
		record.UpdatedAt = fromMillis(updatedAt)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate member profiles: %w", err)
	}
	return records, nil
}
