package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// One row per recorded template; several templates may share a label.
		`CREATE TABLE IF NOT EXISTS signs (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Raw hand landmarks, 21 rows per template.
		`CREATE TABLE IF NOT EXISTS sign_landmarks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sign_id TEXT NOT NULL REFERENCES signs(id) ON DELETE CASCADE,
			landmark_index INTEGER NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			z REAL NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_signs_label ON signs(label)`,
		`CREATE INDEX IF NOT EXISTS idx_sign_landmarks_sign_id ON sign_landmarks(sign_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
