package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestDB returns a migrated in-memory history database private to t.
// Reader and writer share one database through cache=shared, keyed by the
// escaped test name.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)",
		url.PathEscape(t.Name()),
	)

	conn := func(maxOpen int) *sql.DB {
		c, err := sql.Open("sqlite", dsn)
		require.NoError(t, err)
		c.SetMaxOpenConns(maxOpen)
		require.NoError(t, c.PingContext(context.Background()))
		return c
	}

	// The writer opens first so the shared in-memory database outlives the reader.
	db := &DB{Writer: conn(1), path: dsn}
	db.Reader = conn(2)
	t.Cleanup(func() { _ = db.Close() })

	version, err := Migrate(db.Writer)
	require.NoError(t, err)
	require.Positive(t, version)
	return db
}
