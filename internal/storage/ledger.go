package storage

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/zeebo/blake3"

	"github.com/mattjoyce/imagerelay/internal/domain"
)

// Entry is one ledger row.
type Entry struct {
	ID         int64     `json:"id"`
	EventID    string    `json:"event_id,omitempty"`
	MessageID  string    `json:"message_id"`
	UserID     string    `json:"user_id,omitempty"`
	Filename   string    `json:"filename"`
	Path       string    `json:"path"`
	URL        string    `json:"url"`
	Revision   string    `json:"revision,omitempty"`
	Digest     string    `json:"digest"`
	Bytes      int       `json:"bytes"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Redelivery bool      `json:"redelivery"`
	CreatedAt  time.Time `json:"created_at"`
}

// Ledger appends delivered assets to the asset_ledger table.
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// NewLedger wraps an open database. The caller owns db.
func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// Digest returns the hex BLAKE3-256 digest of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Record appends one delivery.
func (l *Ledger) Record(ctx context.Context, d domain.Delivery) error {
	redelivery := 0
	if d.Event.DeliveryContext.IsRedelivery {
		redelivery = 1
	}
	_, err := l.db.ExecContext(ctx, `
INSERT INTO asset_ledger(event_id, message_id, user_id, filename, path, url, revision, digest, bytes, width, height, redelivery, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		d.Event.WebhookEventID,
		d.Event.MessageID(),
		d.Event.Source.UserID,
		d.Asset.Filename,
		d.Ref.Path,
		d.Ref.URL,
		d.Ref.Revision,
		Digest(d.Asset.Data),
		len(d.Asset.Data),
		d.Asset.Width,
		d.Asset.Height,
		redelivery,
		l.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record asset %q: %w", d.Asset.Filename, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx, `
SELECT id, event_id, message_id, user_id, filename, path, url, revision, digest, bytes, width, height, redelivery, created_at
FROM asset_ledger
ORDER BY id DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var (
			e                         Entry
			eventID, userID, revision sql.NullString
			redelivery                int
			createdAt                 string
		)
		if err := rows.Scan(&e.ID, &eventID, &e.MessageID, &userID, &e.Filename, &e.Path, &e.URL,
			&revision, &e.Digest, &e.Bytes, &e.Width, &e.Height, &redelivery, &createdAt); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		e.EventID = eventID.String
		e.UserID = userID.String
		e.Revision = revision.String
		e.Redelivery = redelivery != 0
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			e.CreatedAt = t
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger: %w", err)
	}
	return out, nil
}
