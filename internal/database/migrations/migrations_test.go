package migrations

import (
	"database/sql"
	"testing"
	"testing/fstest"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = ?`, name).Scan(&count)
	require.NoError(t, err)
	return count > 0
}

func TestLoadMigrations_Embedded(t *testing.T) {
	migrations, err := LoadMigrations(Files)
	require.NoError(t, err)

	require.Len(t, migrations, 3)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "create_posts", migrations[0].Name)
	assert.Contains(t, migrations[0].Up, "CREATE TABLE IF NOT EXISTS posts")
	assert.NotEmpty(t, migrations[0].Down)
	assert.Equal(t, 2, migrations[1].Version)
	assert.Equal(t, "add_sentiment", migrations[1].Name)
	assert.Equal(t, 3, migrations[2].Version)
}

func TestLoadMigrations_OrderingAndValidation(t *testing.T) {
	fsys := fstest.MapFS{
		"010_late.up.sql":    {Data: []byte("CREATE TABLE late (id INTEGER);")},
		"002_early.up.sql":   {Data: []byte("CREATE TABLE early (id INTEGER);")},
		"002_early.down.sql": {Data: []byte("DROP TABLE early;")},
		"README.md":          {Data: []byte("ignored")},
		"notes.sql":          {Data: []byte("-- no version, skipped")},
	}

	migrations, err := LoadMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, 2, migrations[0].Version)
	assert.Equal(t, "DROP TABLE early;", migrations[0].Down)
	assert.Equal(t, 10, migrations[1].Version)
	assert.Empty(t, migrations[1].Down)

	_, err = LoadMigrations(fstest.MapFS{
		"003_orphan.down.sql": {Data: []byte("DROP TABLE orphan;")},
	})
	assert.Error(t, err)
}

func TestRunMigrations(t *testing.T) {
	db := openMemoryDB(t)
	migrations, err := LoadMigrations(Files)
	require.NoError(t, err)

	require.NoError(t, RunMigrations(db, migrations))
	assert.True(t, tableExists(t, db, "posts"))
	assert.True(t, tableExists(t, db, "idx_posts_created_at"))

	// Running again is a no-op.
	require.NoError(t, RunMigrations(db, migrations))

	var applied int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM migrations`).Scan(&applied))
	assert.Equal(t, 3, applied)
}

func TestRunMigrations_FailureRollsBack(t *testing.T) {
	db := openMemoryDB(t)
	migrations := []Migration{
		{Version: 1, Up: "CREATE TABLE ok (id INTEGER);"},
		{Version: 2, Up: "CREATE TABLE broken (;"},
	}

	err := RunMigrations(db, migrations)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration 2")
	assert.True(t, tableExists(t, db, "ok"))

	var applied int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM migrations`).Scan(&applied))
	assert.Equal(t, 1, applied)
}

func TestRollbackMigrations(t *testing.T) {
	db := openMemoryDB(t)
	migrations, err := LoadMigrations(Files)
	require.NoError(t, err)
	require.NoError(t, RunMigrations(db, migrations))

	require.NoError(t, RollbackMigrations(db, migrations, 1))
	assert.False(t, tableExists(t, db, "idx_posts_created_at"))
	assert.True(t, tableExists(t, db, "posts"))

	require.NoError(t, RollbackMigrations(db, migrations, 1))
	var sentimentCols int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('posts') WHERE name = 'sentiment'`).Scan(&sentimentCols))
	assert.Equal(t, 0, sentimentCols)

	require.NoError(t, RollbackMigrations(db, migrations, 5))
	assert.False(t, tableExists(t, db, "posts"))

	var applied int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM migrations`).Scan(&applied))
	assert.Equal(t, 0, applied)
}

func TestRunMigrations_ExistingColumnIsRecorded(t *testing.T) {
	db := openMemoryDB(t)
	_, err := db.Exec(`CREATE TABLE posts (objectID TEXT, sentiment TEXT)`)
	require.NoError(t, err)

	migrations := []Migration{
		{Version: 1, Up: "ALTER TABLE posts ADD COLUMN sentiment TEXT;"},
		{Version: 2, Up: "ALTER TABLE posts ADD COLUMN language TEXT;"},
	}
	require.NoError(t, RunMigrations(db, migrations))

	var cols int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('posts')`).Scan(&cols))
	assert.Equal(t, 3, cols)

	var applied int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM migrations`).Scan(&applied))
	assert.Equal(t, 2, applied)
}
