package quantquery

// initSchema creates tables on first open. Statements are idempotent so an
// existing database is left untouched.
func (c *Core) initSchema() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS analysis_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			query TEXT NOT NULL,
			summary TEXT NOT NULL,
			tool_summaries TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	if err != nil {
		return err
	}
	_, err = c.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_analysis_history_created_at
		ON analysis_history(created_at DESC)
	`)
	return err
}
