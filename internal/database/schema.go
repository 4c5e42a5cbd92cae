package database

// InitSchema creates the analysis archive tables
func (db *DB) InitSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS app_analysis_runs (
		    id CHAR(36) PRIMARY KEY,
		    trace_size INT NOT NULL,
		    issue_count INT NOT NULL,
		    started_at TIMESTAMP NOT NULL,
		    finished_at TIMESTAMP NOT NULL,
		    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		    INDEX idx_started_at (started_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS app_issues (
		    id CHAR(36) PRIMARY KEY,
		    run_id CHAR(36) NOT NULL,
		    type VARCHAR(64) NOT NULL,
		    severity VARCHAR(16) NOT NULL,
		    title VARCHAR(500) NOT NULL,
		    description TEXT,
		    payload JSON,
		    affected_count INT NOT NULL DEFAULT 0,
		    duplicate_count INT NOT NULL DEFAULT 0,
		    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		    FOREIGN KEY (run_id) REFERENCES app_analysis_runs(id),
		    INDEX idx_run (run_id),
		    INDEX idx_type (type),
		    INDEX idx_severity (severity)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

// DropSchema removes the archive tables, children first
func (db *DB) DropSchema() error {
	tables := []string{"app_issues", "app_analysis_runs"}

	for _, table := range tables {
		if _, err := db.Exec("DROP TABLE IF EXISTS " + table); err != nil {
			return err
		}
	}

	return nil
}
