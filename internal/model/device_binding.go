package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DeviceBindingRepo maps session ids to the WhatsApp device JID they
// paired with, so a session keeps its device across restarts.
type DeviceBindingRepo struct {
	db     *sql.DB
	driver string
}

func NewDeviceBindingRepo(db *sql.DB, driver string) *DeviceBindingRepo {
	return &DeviceBindingRepo{db: db, driver: driver}
}

func (r *DeviceBindingRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS wa_session_devices (
			session_id VARCHAR(191) PRIMARY KEY,
			jid VARCHAR(191) NOT NULL,
			updated_at BIGINT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create wa_session_devices: %w", err)
	}
	return nil
}

// GetJID returns the bound device JID, or "" when the session has none.
func (r *DeviceBindingRepo) GetJID(ctx context.Context, sessionID string) (string, error) {
	var jid string
	err := r.db.QueryRowContext(ctx,
		r.rebind(`SELECT jid FROM wa_session_devices WHERE session_id = ?`), sessionID).Scan(&jid)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get device binding: %w", err)
	}
	return jid, nil
}

func (r *DeviceBindingRepo) Bind(ctx context.Context, sessionID, jid string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bind: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		r.rebind(`DELETE FROM wa_session_devices WHERE session_id = ?`), sessionID); err != nil {
		return fmt.Errorf("clear device binding: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		r.rebind(`INSERT INTO wa_session_devices (session_id, jid, updated_at) VALUES (?, ?, ?)`),
		sessionID, jid, time.Now().Unix()); err != nil {
		return fmt.Errorf("insert device binding: %w", err)
	}

	return tx.Commit()
}

func (r *DeviceBindingRepo) Unbind(ctx context.Context, sessionID string) error {
	if _, err := r.db.ExecContext(ctx,
		r.rebind(`DELETE FROM wa_session_devices WHERE session_id = ?`), sessionID); err != nil {
		return fmt.Errorf("delete device binding: %w", err)
	}
	return nil
}

// rebind turns ? placeholders into $n for postgres.
func (r *DeviceBindingRepo) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}
