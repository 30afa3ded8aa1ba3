package sqliteutil

import (
	"database/sql"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// OpenDB opens a local sqlite file or a remote libsql database
// depending on the URL scheme, then applies the given schema.
// Schema statements are expected to be idempotent (CREATE TABLE IF
// NOT EXISTS ...), re-applying on every open is the migration story.
func OpenDB(schema, url string) (*sql.DB, error) {
	driver := "sqlite"
	if strings.HasPrefix(url, "libsql://") ||
		strings.HasPrefix(url, "wss://") ||
		strings.HasPrefix(url, "ws://") {
		driver = "libsql"
	}

	db, err := sql.Open(driver, url)
	if err != nil {
		return nil, err
	}
	_, err = db.Exec(schema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		db.Close()
		return nil, err
	}
	return db, nil
}
