package db

const (
	CreateMigrationsTable = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`

	ListAppliedMigrations = `SELECT version FROM schema_migrations`

	RecordMigration = `INSERT INTO schema_migrations (version) VALUES (?)`
)

const (
	GetSetting = `SELECT value, encrypted, updated_at FROM settings WHERE key = ?`

	SetSetting = `
		INSERT INTO settings (key, value, encrypted, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, encrypted = excluded.encrypted, updated_at = CURRENT_TIMESTAMP
	`

	DeleteSetting = `DELETE FROM settings WHERE key = ?`
)

const (
	InsertJob = `
		INSERT INTO print_jobs (id, order_id, kind, transport, status, retry_count, error_message, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	GetJobByID = `
		SELECT id, order_id, kind, transport, status, retry_count, error_message, created_at, completed_at
		FROM print_jobs WHERE id = ?
	`

	ListJobsBase = `
		SELECT id, order_id, kind, transport, status, retry_count, error_message, created_at, completed_at
		FROM print_jobs
	`

	DeleteJobsBefore = `DELETE FROM print_jobs WHERE completed_at < ?`
)

const (
	IncrementCompletedCounter = `
		INSERT INTO print_counters (date, completed, failed)
		VALUES (?, 1, 0)
		ON CONFLICT(date) DO UPDATE SET completed = completed + 1
	`

	IncrementFailedCounter = `
		INSERT INTO print_counters (date, completed, failed)
		VALUES (?, 0, 1)
		ON CONFLICT(date) DO UPDATE SET failed = failed + 1
	`

	GetPrintCountersByDateRange = `
		SELECT date, completed, failed
		FROM print_counters WHERE date >= ? AND date <= ? ORDER BY date ASC
	`
)
