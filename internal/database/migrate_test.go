package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/dejobratic/centralcompras/migrations"
)

func TestEmbeddedMigrations(t *testing.T) {
	t.Run("every up migration has a matching down migration", func(t *testing.T) {
		ups, err := fs.Glob(migrations.FS, "*.up.sql")
		if err != nil {
			t.Fatalf("glob failed: %v", err)
		}
		if len(ups) == 0 {
			t.Fatal("expected embedded up migrations")
		}

		for _, up := range ups {
			down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
			if _, err := fs.Stat(migrations.FS, down); err != nil {
				t.Errorf("missing %s for %s", down, up)
			}
		}
	})

	t.Run("schema declares the unique supplier and state constraint", func(t *testing.T) {
		body, err := fs.ReadFile(migrations.FS, "000002_commercial.up.sql")
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if !strings.Contains(string(body), "UNIQUE (supplier_id, state)") {
			t.Error("expected unique (supplier_id, state) constraint")
		}
	})
}
