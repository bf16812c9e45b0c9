package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const devicesTableName = "devices"

// deviceTable is a table whose rows belong to a device through deviceColumn.
type deviceTable struct {
	name         string
	deviceColumn string
}

// ExportDevice copies every row belonging to deviceID into a new SQLite database file under basePath and returns
// its path. The export holds the devices table and every table referencing it with a foreign key, so it can be
// handed to the owner of the device as a copy of all their data.
func (db *Database) ExportDevice(ctx context.Context, deviceID string, basePath string) (_ string, err error) {
	exportPath := filepath.Join(basePath, fmt.Sprintf("device-export-%s.sqlite3", rand.Text()))

	conn, err := db.ReadOnly.Conn(ctx)
	if err != nil {
		return "", fmt.Errorf("get db connection: %w", err)
	}
	defer func() {
		// The connection returns to the read-only pool.
		_, restoreErr := conn.ExecContext(ctx, "PRAGMA query_only = TRUE")
		err = errors.Join(err, restoreErr, conn.Close())
	}()

	if _, err = conn.ExecContext(ctx, "PRAGMA query_only = FALSE"); err != nil {
		return "", fmt.Errorf("disable query only mode: %w", err)
	}
	if _, err = conn.ExecContext(ctx, "ATTACH DATABASE ? AS export", fmt.Sprintf("file:%s?mode=rwc", exportPath)); err != nil {
		return "", fmt.Errorf("attach export database: %w", err)
	}
	defer func() {
		_, detachErr := conn.ExecContext(ctx, "DETACH DATABASE export")
		err = errors.Join(err, detachErr)
	}()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer db.Rollback(ctx, tx)

	tables, err := deviceTables(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("find device tables: %w", err)
	}
	for _, table := range tables {
		if err = copyDeviceRows(ctx, tx, table, deviceID); err != nil {
			return "", fmt.Errorf("copy table %s: %w", table.name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("commit export: %w", err)
	}
	return exportPath, nil
}

// deviceTables lists the devices table followed by the tables with a foreign key to it.
func deviceTables(ctx context.Context, tx *sql.Tx) (_ []deviceTable, err error) {
	var count int
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM main.sqlite_schema WHERE type = 'table' AND name = ?`,
		devicesTableName).Scan(&count); err != nil {
		return nil, fmt.Errorf("check devices table: %w", err)
	}
	if count == 0 {
		return nil, errors.New("devices table does not exist")
	}

	rows, err := tx.QueryContext(ctx, `
SELECT m.name, fk."from"
FROM main.sqlite_schema AS m
         JOIN PRAGMA_FOREIGN_KEY_LIST(m.name) AS fk
WHERE m.type = 'table'
  AND fk."table" = ?
  AND fk."to" = 'id'
ORDER BY m.name`, devicesTableName)
	if err != nil {
		return nil, fmt.Errorf("query foreign keys: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	tables := []deviceTable{{name: devicesTableName, deviceColumn: "id"}}
	for rows.Next() {
		var table deviceTable
		if err = rows.Scan(&table.name, &table.deviceColumn); err != nil {
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}
		tables = append(tables, table)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate foreign keys: %w", err)
	}
	return tables, nil
}

// copyDeviceRows recreates the table in the export database and copies the rows of deviceID.
func copyDeviceRows(ctx context.Context, tx *sql.Tx, table deviceTable, deviceID string) error {
	var createSQL string
	if err := tx.QueryRowContext(ctx, `SELECT sql FROM main.sqlite_schema WHERE type = 'table' AND name = ?`,
		table.name).Scan(&createSQL); err != nil {
		return fmt.Errorf("get schema: %w", err)
	}
	prefix := "CREATE TABLE " + table.name
	if !strings.HasPrefix(createSQL, prefix) {
		return fmt.Errorf("unexpected table definition: %s", createSQL)
	}
	if _, err := tx.ExecContext(ctx, "CREATE TABLE export."+table.name+strings.TrimPrefix(createSQL, prefix)); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	//nolint:gosec // names come from sqlite_schema.
	query := fmt.Sprintf(`INSERT INTO export.%s SELECT * FROM main.%s WHERE "%s" = ?`,
		table.name, table.name, table.deviceColumn)
	if _, err := tx.ExecContext(ctx, query, deviceID); err != nil {
		return fmt.Errorf("copy rows: %w", err)
	}
	return nil
}
