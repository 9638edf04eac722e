package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// System transitions - changes to the top-level run state
		`CREATE TABLE IF NOT EXISTS system_transitions (
			id TEXT PRIMARY KEY,
			from_state TEXT NOT NULL,
			to_state TEXT NOT NULL,
			command TEXT NOT NULL,
			source TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		// Posture transitions - changes to the alert state machine
		`CREATE TABLE IF NOT EXISTS posture_transitions (
			id TEXT PRIMARY KEY,
			from_state TEXT NOT NULL,
			to_state TEXT NOT NULL,
			reason TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		// Alerts - confirmed sit-up alerts
		`CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			alert_number INTEGER NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		// Rejected commands - commands that did not fit the state they hit
		`CREATE TABLE IF NOT EXISTS rejected_commands (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			source TEXT NOT NULL,
			state TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		// Indexes for time-ordered queries
		`CREATE INDEX IF NOT EXISTS idx_system_transitions_created_at ON system_transitions(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_posture_transitions_created_at ON posture_transitions(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_rejected_commands_created_at ON rejected_commands(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
