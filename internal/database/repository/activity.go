package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// Activity is one journaled deposit or send.
type Activity struct {
	ID            string
	Kind          string
	Asset         string
	TargetAddress *string
	Amount        string
	Status        string
	Failure       *string
	TxID          *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ActivityFilters defines list filters.
type ActivityFilters struct {
	Kind   string
	Status string
	Limit  int // zero = 20
}

// ActivityRepo handles the activity journal.
type ActivityRepo struct {
	db *sql.DB
}

func NewActivityRepo(db *sql.DB) *ActivityRepo { return &ActivityRepo{db: db} }

// Upsert inserts a new entry or moves an existing one to a's status.
func (r *ActivityRepo) Upsert(ctx context.Context, a Activity) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO activity(id, kind, asset, target_address, amount, status, failure, tx_id, created_at, updated_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	ON CONFLICT(id) DO UPDATE SET
	 amount=excluded.amount,
	 status=excluded.status,
	 failure=excluded.failure,
	 tx_id=excluded.tx_id,
	 updated_at=CURRENT_TIMESTAMP;
	`, a.ID, a.Kind, strings.ToLower(a.Asset), a.TargetAddress, a.Amount, a.Status, a.Failure, a.TxID)
	return err
}

func (r *ActivityRepo) Get(ctx context.Context, id string) (*Activity, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, kind, asset, target_address, amount, status, failure, tx_id, created_at, updated_at FROM activity WHERE id = ?`, id)
	a, err := scanActivity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// List returns the most recently updated entries first.
func (r *ActivityRepo) List(ctx context.Context, f ActivityFilters) ([]Activity, error) {
	var where []string
	var args []interface{}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, f.Kind)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}

	query := "SELECT id, kind, asset, target_address, amount, status, failure, tx_id, created_at, updated_at FROM activity"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at DESC, created_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Reset deletes every entry.
func (r *ActivityRepo) Reset(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM activity`)
	return err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanActivity(s scanner) (Activity, error) {
	var a Activity
	err := s.Scan(&a.ID, &a.Kind, &a.Asset, &a.TargetAddress, &a.Amount, &a.Status, &a.Failure, &a.TxID, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}
