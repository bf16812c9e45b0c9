package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type schemaType string

const (
	schemaTypeTable   schemaType = "table"
	schemaTypeTrigger schemaType = "trigger"
	schemaTypeIndex   schemaType = "index"
)

// schemaObject is a named entry of sqlite_schema as it exists in the live database and in the target schema. An
// empty liveSQL means the object is new, an empty targetSQL means it was removed.
type schemaObject struct {
	name      string
	liveSQL   string
	targetSQL string
}

func (o schemaObject) isNew() bool     { return o.liveSQL == "" }
func (o schemaObject) isRemoved() bool { return o.targetSQL == "" }

// isChanged compares the definitions. Renaming a table quotes its name in sqlite_schema, so quotes are ignored.
func (o schemaObject) isChanged() bool {
	return strings.ReplaceAll(o.liveSQL, `"`, "") != strings.ReplaceAll(o.targetSQL, `"`, "")
}

// migrateTo makes the live schema match schemaDefinition.
//
// The target schema is created in a scratch database that is attached as schemaTarget. The two sqlite_schema
// tables are diffed per object type. Removed objects are dropped, new ones created and changed tables are rebuilt
// with the generalized ALTER TABLE procedure of https://www.sqlite.org/lang_altertable.html#otheralter, keeping
// the columns both definitions share. Indexes and triggers are diffed after the tables because rebuilding a table
// drops them.
func (db *Database) migrateTo(ctx context.Context, schemaDefinition string) (err error) {
	start := time.Now()

	detach, err := db.attachSchemaTarget(ctx, schemaDefinition)
	if err != nil {
		return fmt.Errorf("attach schema target: %w", err)
	}
	defer detach()

	if _, err = db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("disable foreign key validation: %w", err)
	}
	defer func() {
		if _, fkErr := db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = ON"); fkErr != nil {
			err = errors.Join(err, fmt.Errorf("re-enable foreign key validation: %w", fkErr))
		}
	}()

	var tx *sql.Tx
	if tx, err = db.ReadWrite.BeginTx(ctx, nil); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer db.Rollback(ctx, tx)

	if err = db.migrateTables(ctx, tx); err != nil {
		return fmt.Errorf("migrate tables: %w", err)
	}
	for _, typ := range []schemaType{schemaTypeTrigger, schemaTypeIndex} {
		if err = db.migrateObjects(ctx, tx, typ); err != nil {
			return fmt.Errorf("migrate %ss: %w", typ, err)
		}
	}

	if err = db.checkForeignKeys(ctx, tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	db.logger.LogAttrs(ctx, slog.LevelInfo, "migrated database", slog.Duration("duration", time.Since(start)))
	return nil
}

// attachSchemaTarget attaches an in-memory database holding the target schema. The returned function detaches it.
func (db *Database) attachSchemaTarget(ctx context.Context, schemaDefinition string) (func(), error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", rand.Text())
	target, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open schema target database: %w", err)
	}
	// The shared cache keeps the database alive while the live connection has it attached.
	defer func() {
		if closeErr := target.Close(); closeErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to close schema target database",
				slog.Any("error", closeErr))
		}
	}()
	if _, err = target.ExecContext(ctx, schemaDefinition); err != nil {
		return nil, fmt.Errorf("create target schema: %w", err)
	}
	if _, err = db.ReadWrite.ExecContext(ctx, "ATTACH DATABASE ? AS schemaTarget", dsn); err != nil {
		return nil, fmt.Errorf("attach: %w", err)
	}
	return func() {
		if _, detachErr := db.ReadWrite.ExecContext(ctx, "DETACH DATABASE schemaTarget"); detachErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to detach schema target database",
				slog.Any("error", detachErr))
		}
	}, nil
}

// diffSchema lists the objects of typ that differ between the live and the target schema.
func (db *Database) diffSchema(ctx context.Context, tx *sql.Tx, typ schemaType) (_ []schemaObject, err error) {
	rows, err := tx.QueryContext(ctx, `
SELECT COALESCE(live.name, target.name),
       COALESCE(live.sql, ''),
       COALESCE(target.sql, '')
FROM sqlite_schema AS live
         FULL OUTER JOIN schemaTarget.sqlite_schema AS target
                         ON live.name = target.name AND live.type = target.type
WHERE COALESCE(live.type, target.type) = :type
  AND COALESCE(live.name, target.name) NOT LIKE 'sqlite_%'
  AND COALESCE(live.name, target.name) NOT LIKE '_litestream_%'
ORDER BY 1`, sql.Named("type", string(typ)))
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	var diff []schemaObject
	for rows.Next() {
		var o schemaObject
		if err = rows.Scan(&o.name, &o.liveSQL, &o.targetSQL); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if o.isChanged() {
			diff = append(diff, o)
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return diff, nil
}

func (db *Database) migrateTables(ctx context.Context, tx *sql.Tx) error {
	diff, err := db.diffSchema(ctx, tx, schemaTypeTable)
	if err != nil {
		return fmt.Errorf("diff tables: %w", err)
	}
	for _, table := range diff {
		logger := db.logger.With(slog.String("table", table.name))
		switch {
		case table.isRemoved():
			logger.LogAttrs(ctx, slog.LevelInfo, "dropping table")
			if _, err = tx.ExecContext(ctx, "DROP TABLE "+table.name); err != nil {
				return fmt.Errorf("drop table %s: %w", table.name, err)
			}
		case table.isNew():
			logger.LogAttrs(ctx, slog.LevelInfo, "creating table", slog.String("query", table.targetSQL))
			if _, err = tx.ExecContext(ctx, table.targetSQL); err != nil {
				return fmt.Errorf("create table %s: %w", table.name, err)
			}
		default:
			logger.LogAttrs(ctx, slog.LevelInfo, "rebuilding table",
				slog.String("liveSQL", table.liveSQL), slog.String("targetSQL", table.targetSQL))
			if err = db.rebuildTable(ctx, tx, table); err != nil {
				return fmt.Errorf("rebuild table %s: %w", table.name, err)
			}
		}
	}
	return nil
}

// rebuildTable creates the target definition under a temporary name, copies the shared columns, drops the live
// table and renames the new one into place.
func (db *Database) rebuildTable(ctx context.Context, tx *sql.Tx, table schemaObject) error {
	tempName := table.name + "_migration_temp"
	statements := []string{strings.Replace(table.targetSQL, table.name, tempName, 1)}

	columns, err := db.sharedColumns(ctx, tx, table.name)
	if err != nil {
		return fmt.Errorf("shared columns: %w", err)
	}
	if len(columns) > 0 {
		list := strings.Join(columns, ", ")
		statements = append(statements, fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", //nolint:gosec // names come from sqlite_schema.
			tempName, list, list, table.name))
	}
	statements = append(statements,
		"DROP TABLE "+table.name,
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", tempName, table.name))

	for _, statement := range statements {
		db.logger.LogAttrs(ctx, slog.LevelDebug, "executing", slog.String("query", statement))
		if _, err = tx.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("exec %q: %w", statement, err)
		}
	}
	return nil
}

// sharedColumns lists the quoted column names present in both the live and the target table.
func (db *Database) sharedColumns(ctx context.Context, tx *sql.Tx, table string) (_ []string, err error) {
	rows, err := tx.QueryContext(ctx, `
SELECT '"' || target.name || '"'
FROM PRAGMA_TABLE_INFO(:table) AS live
         JOIN PRAGMA_TABLE_INFO(:table, 'schemaTarget') AS target ON target.name = live.name`,
		sql.Named("table", table))
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()
	var columns []string
	for rows.Next() {
		var column string
		if err = rows.Scan(&column); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		columns = append(columns, column)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return columns, nil
}

// migrateObjects synchronizes indexes or triggers. Changed objects are dropped and recreated.
func (db *Database) migrateObjects(ctx context.Context, tx *sql.Tx, typ schemaType) error {
	diff, err := db.diffSchema(ctx, tx, typ)
	if err != nil {
		return fmt.Errorf("diff: %w", err)
	}
	logger := db.logger.With(slog.String("schemaType", string(typ)))
	for _, o := range diff {
		if !o.isNew() {
			logger.LogAttrs(ctx, slog.LevelInfo, "dropping", slog.String("name", o.name))
			if _, err = tx.ExecContext(ctx, fmt.Sprintf("DROP %s %s", strings.ToUpper(string(typ)), o.name)); err != nil {
				return fmt.Errorf("drop %s: %w", o.name, err)
			}
		}
		if !o.isRemoved() {
			logger.LogAttrs(ctx, slog.LevelInfo, "creating", slog.String("query", o.targetSQL))
			if _, err = tx.ExecContext(ctx, o.targetSQL); err != nil {
				return fmt.Errorf("create %s: %w", o.name, err)
			}
		}
	}
	return nil
}

// checkForeignKeys fails when the migrated data violates a foreign key constraint.
func (db *Database) checkForeignKeys(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return fmt.Errorf("foreign key check: %w", err)
	}
	var (
		violation bool
		table     string
		rowID     sql.NullInt64
		parent    string
		fkID      int
	)
	if violation = rows.Next(); violation {
		if err = rows.Scan(&table, &rowID, &parent, &fkID); err != nil {
			return errors.Join(fmt.Errorf("scan foreign key violation: %w", err), rows.Close())
		}
	}
	if err = errors.Join(rows.Err(), rows.Close()); err != nil {
		return fmt.Errorf("foreign key check rows: %w", err)
	}
	if violation {
		return fmt.Errorf("foreign key violation in table %s referencing %s", table, parent)
	}
	return nil
}
