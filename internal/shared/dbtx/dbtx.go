// Package dbtx lets gorm repositories join a transaction opened on the
// underlying *sql.DB, so gorm statements and raw outbox inserts commit or
// roll back together.
package dbtx

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
)

// Bind returns a session of db whose statements run on tx. A nil tx returns
// db unchanged.
func Bind(db *gorm.DB, tx *sql.Tx) *gorm.DB {
	if tx == nil {
		return db
	}
	// A context forces gorm to clone the statement, so the parent handle keeps
	// its own connection pool.
	s := db.Session(&gorm.Session{
		Context:                context.Background(),
		NewDB:                  true,
		SkipDefaultTransaction: true,
	})
	s.Statement.ConnPool = tx
	return s
}
