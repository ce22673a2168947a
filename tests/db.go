package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/credeval/core"
	"github.com/trezcool/credeval/storage/database"
)

// PrepareDB opens the TEST database, applies the migrations and empties every table.
// The test is skipped when no database answers; set ENV=TEST and TEST_DATABASE_* to run it.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if os.Getenv("ENV") != "TEST" {
		t.Skip("ENV=TEST not set, skipping database test")
	}
	conf := core.NewConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		t.Skipf("database unavailable: %v", err)
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		t.Skipf("database unavailable: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db.DB); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	ResetDB(t, db)
	return db
}

func ResetDB(t *testing.T, db core.DBExecutor) {
	t.Helper()
	if _, err := db.ExecContext(context.Background(), "TRUNCATE student, transcript, course, grading_scale, grading_scale_mapping"); err != nil {
		t.Fatalf("ResetDB() failed: %v", err)
	}
}
