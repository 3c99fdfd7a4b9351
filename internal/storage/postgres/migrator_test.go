package postgres

import (
	"strings"
	"testing"
	"testing/fstest"
)

func migrationFile(body string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(body)}
}

func TestLoadMigrationsFromFS_SortsPairsByVersion(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/migrations/0010_add_index.up.sql":      migrationFile("CREATE INDEX idx ON orders (customer_id);"),
		"sql/migrations/0010_add_index.down.sql":    migrationFile("DROP INDEX idx;"),
		"sql/migrations/0002_create_items.up.sql":   migrationFile("CREATE TABLE order_items (id INT);"),
		"sql/migrations/0002_create_items.down.sql": migrationFile("DROP TABLE order_items;"),
	}

	migrations, err := loadMigrationsFromFS(fsys)
	if err != nil {
		t.Fatalf("loadMigrationsFromFS failed: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 2 || migrations[0].Name != "create_items" || migrations[1].Version != 10 {
		t.Fatalf("unexpected order: %+v", migrations)
	}
	if migrations[1].DownSQL != "DROP INDEX idx;" {
		t.Fatalf("unexpected down body %q", migrations[1].DownSQL)
	}
}

func TestLoadMigrationsFromFS_Rejects(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		fsys    fstest.MapFS
		wantErr string
	}{
		{
			name:    "no files",
			fsys:    fstest.MapFS{},
			wantErr: "no migration files",
		},
		{
			name: "missing down",
			fsys: fstest.MapFS{
				"sql/migrations/0001_init.up.sql": migrationFile("CREATE TABLE a (id INT);"),
			},
			wantErr: "both up and down",
		},
		{
			name: "bad file name",
			fsys: fstest.MapFS{
				"sql/migrations/init.sql": migrationFile("SELECT 1;"),
			},
			wantErr: "invalid migration file name",
		},
		{
			name: "empty body",
			fsys: fstest.MapFS{
				"sql/migrations/0001_init.up.sql":   migrationFile("  \n"),
				"sql/migrations/0001_init.down.sql": migrationFile("DROP TABLE a;"),
			},
			wantErr: "empty",
		},
		{
			name: "name mismatch",
			fsys: fstest.MapFS{
				"sql/migrations/0001_init.up.sql":    migrationFile("CREATE TABLE a (id INT);"),
				"sql/migrations/0001_other.down.sql": migrationFile("DROP TABLE a;"),
			},
			wantErr: "name mismatch",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := loadMigrationsFromFS(tc.fsys)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestLoadMigrationsFromFS_Embedded(t *testing.T) {
	t.Parallel()

	migrations, err := loadMigrationsFromFS(migrationsFS)
	if err != nil {
		t.Fatalf("embedded migrations must load: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 embedded migrations, got %d", len(migrations))
	}
	if migrations[0].Name != "create_orders" || migrations[1].Name != "create_order_items" {
		t.Fatalf("unexpected embedded migrations order: %s, %s", migrations[0].Name, migrations[1].Name)
	}
	if !strings.Contains(migrations[1].UpSQL, "ON DELETE CASCADE") {
		t.Fatal("order_items must cascade on order delete")
	}
}
