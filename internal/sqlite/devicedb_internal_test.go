package sqlite

import (
	"database/sql"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jersjar7/Fit14-sub001/internal/testhelpers"
)

func TestDatabase_ExportDevice(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		deviceID   string
		schema     string
		data       []string
		wantCounts map[string]int
		wantErr    bool
	}{
		{
			name:     "application schema",
			deviceID: "device-a",
			schema:   schemaDefinition,
			data: []string{
				"INSERT INTO devices (id) VALUES ('device-a'), ('device-b')",
				`INSERT INTO goal_drafts (device_id, data, updated_at) VALUES
					('device-a', '{}', ''), ('device-b', '{}', '')`,
				`INSERT INTO workout_plans (id, device_id, status, data, created_at, updated_at) VALUES
					('p1', 'device-a', 'active', '{}', '', ''),
					('p2', 'device-a', 'suggested', '{}', '', ''),
					('p3', 'device-b', 'suggested', '{}', '', '')`,
				`INSERT INTO completed_challenges (id, device_id, original_plan_id, completion_date, data) VALUES
					('c1', 'device-b', 'p0', '', '{}')`,
			},
			wantCounts: map[string]int{
				"devices":              1,
				"goal_drafts":          1,
				"workout_plans":        2,
				"completed_challenges": 0,
			},
			wantErr: false,
		},
		{
			name:     "unknown device",
			deviceID: "device-z",
			schema:   schemaDefinition,
			data:     []string{"INSERT INTO devices (id) VALUES ('device-a')"},
			wantCounts: map[string]int{
				"devices":              0,
				"goal_drafts":          0,
				"workout_plans":        0,
				"completed_challenges": 0,
			},
			wantErr: false,
		},
		{
			name:     "unrelated tables are not exported",
			deviceID: "device-a",
			schema: `CREATE TABLE devices (id TEXT PRIMARY KEY);
				CREATE TABLE notes (id INTEGER PRIMARY KEY, device_id TEXT REFERENCES devices (id), body TEXT);
				CREATE TABLE settings (name TEXT PRIMARY KEY, value TEXT);`,
			data: []string{
				"INSERT INTO devices (id) VALUES ('device-a')",
				"INSERT INTO notes (device_id, body) VALUES ('device-a', 'one'), ('device-a', 'two')",
				"INSERT INTO settings (name, value) VALUES ('theme', 'dark')",
			},
			wantCounts: map[string]int{"devices": 1, "notes": 2},
			wantErr:    false,
		},
		{
			name:     "no devices table",
			deviceID: "device-a",
			schema:   "CREATE TABLE notes (id INTEGER PRIMARY KEY, device_id TEXT)",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := t.Context()
			db, err := connect(ctx, ":memory:", testhelpers.NewLogger(testhelpers.NewWriter(t)))
			if err != nil {
				t.Fatalf("Failed to connect to database: %v", err)
			}
			t.Cleanup(func() { _ = db.Close() })

			if err = db.migrateTo(ctx, tt.schema); err != nil {
				t.Fatalf("Failed to migrate: %v", err)
			}
			for _, query := range tt.data {
				if _, err = db.ReadWrite.ExecContext(ctx, query); err != nil {
					t.Fatalf("Failed to insert test data: %v", err)
				}
			}

			path, err := db.ExportDevice(ctx, tt.deviceID, t.TempDir())
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExportDevice() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if _, err = os.Stat(path); err != nil {
				t.Fatalf("exported database missing: %v", err)
			}

			exported, err := sql.Open("sqlite3", path)
			if err != nil {
				t.Fatalf("Failed to open exported database: %v", err)
			}
			t.Cleanup(func() { _ = exported.Close() })

			rows, err := exported.QueryContext(ctx, "SELECT name FROM sqlite_schema WHERE type = 'table'")
			if err != nil {
				t.Fatalf("Failed to query tables: %v", err)
			}
			var tables []string
			for rows.Next() {
				var name string
				if err = rows.Scan(&name); err != nil {
					t.Fatalf("Failed to scan table name: %v", err)
				}
				tables = append(tables, name)
			}
			if err = rows.Close(); err != nil {
				t.Fatalf("Failed to close rows: %v", err)
			}

			got := make(map[string]int, len(tables))
			for _, table := range tables {
				var count int
				if err = exported.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
					t.Fatalf("Failed to count %s: %v", table, err)
				}
				got[table] = count
			}
			if diff := cmp.Diff(tt.wantCounts, got); diff != "" {
				t.Errorf("exported row counts mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDatabase_ExportDeviceLeavesReadPoolReadOnly(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	db, err := NewDatabase(ctx, ":memory:", testhelpers.NewLogger(testhelpers.NewWriter(t)))
	if err != nil {
		t.Fatalf("NewDatabase: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	db.ReadOnly.SetMaxOpenConns(1)

	if _, err = db.ExportDevice(ctx, "device", t.TempDir()); err != nil {
		t.Fatalf("ExportDevice: %v", err)
	}
	if _, err = db.ReadOnly.ExecContext(ctx, "INSERT INTO devices (id) VALUES ('device')"); err == nil {
		t.Error("expected the read-only pool to reject writes after an export")
	}
}
