package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type snapshotRepo struct {
	db *sql.DB
}

func (r *snapshotRepo) Save(ctx context.Context, snap *Snapshot) error {
	data, err := json.Marshal(snap.Standings)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO mastery_snapshots (timestamp, session_id, learner, data) VALUES (?, ?, ?, ?)`,
		snap.Timestamp, snap.SessionID, snap.Learner, string(data))
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		snap.ID = int(id)
	}
	return nil
}

func (r *snapshotRepo) Latest(ctx context.Context, learner string) (*Snapshot, error) {
	var (
		snap Snapshot
		data string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, timestamp, session_id, learner, data FROM mastery_snapshots
		 WHERE learner = ? ORDER BY id DESC LIMIT 1`, learner,
	).Scan(&snap.ID, &snap.Timestamp, &snap.SessionID, &snap.Learner, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}

	if err := json.Unmarshal([]byte(data), &snap.Standings); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

func (r *snapshotRepo) Prune(ctx context.Context, learner string, keep int) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM mastery_snapshots WHERE learner = ? AND id NOT IN (
			SELECT id FROM mastery_snapshots WHERE learner = ? ORDER BY id DESC LIMIT ?
		)`, learner, learner, keep)
	if err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}
