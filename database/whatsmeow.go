package database

import (
	"context"
	"database/sql"
	"fmt"

	"go.mau.fi/whatsmeow/store/sqlstore"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// OpenDeviceStore opens the whatsmeow device container and runs its
// migrations. Only postgres and sqlite are supported by whatsmeow.
func OpenDeviceStore(ctx context.Context, url string, log waLog.Logger) (*sqlstore.Container, *sql.DB, error) {
	db, driver, err := Open(ctx, url)
	if err != nil {
		return nil, nil, err
	}

	dialect := driver
	switch driver {
	case "postgres":
	case "sqlite":
		dialect = "sqlite3"
	default:
		db.Close()
		return nil, nil, fmt.Errorf("whatsmeow device store does not support %s", driver)
	}

	container := sqlstore.NewWithDB(db, dialect, log)
	if err := container.Upgrade(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("upgrade whatsmeow store: %w", err)
	}

	return container, db, nil
}
