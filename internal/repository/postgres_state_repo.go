package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStateRepo はPostgreSQLを使用したセッション状態リポジトリ。
// session_stateテーブルの各行が1つの名前付きスロットに対応する。
type PostgresStateRepo struct {
	db *sql.DB
}

// NewPostgresStateRepo はPostgresStateRepoを生成する。
func NewPostgresStateRepo(db *sql.DB) *PostgresStateRepo {
	return &PostgresStateRepo{db: db}
}

// Get は指定スロットの値を取得する。スロットが存在しない場合はok=falseを返す。
func (r *PostgresStateRepo) Get(ctx context.Context, slot string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM session_state WHERE slot = $1`,
		slot,
	).Scan(&value)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get state slot: %w", err)
	}

	return value, true, nil
}

// Set は指定スロットの値を上書きする。スロットが無ければ作成する。
func (r *PostgresStateRepo) Set(ctx context.Context, slot, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO session_state (slot, value, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (slot) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		slot, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set state slot: %w", err)
	}
	return nil
}

// Delete は指定スロットを削除する。存在しない場合もエラーにしない。
func (r *PostgresStateRepo) Delete(ctx context.Context, slot string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM session_state WHERE slot = $1`,
		slot,
	)
	if err != nil {
		return fmt.Errorf("failed to delete state slot: %w", err)
	}
	return nil
}

// compile-time interface check
var _ StateRepository = (*PostgresStateRepo)(nil)
