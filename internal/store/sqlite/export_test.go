package sqlite

import "database/sql"

// ExecForTest runs raw SQL against the store's database.
func ExecForTest(s *Store, query string, args ...any) (sql.Result, error) {
	return s.db.Exec(query, args...)
}
