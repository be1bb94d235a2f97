package storage

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"vavato_scrooper/models"
)

// SQLiteStore is the run ledger: one row per scrape run plus its log lines.
// Nothing in it is read back to drive a later run.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scrape_runs (
		id INTEGER PRIMARY KEY,
		run_id TEXT NOT NULL UNIQUE,
		site_id TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		open_auctions INTEGER DEFAULT 0,
		closed_auctions INTEGER DEFAULT 0,
		open_auction_lots INTEGER DEFAULT 0,
		closed_auction_lots INTEGER DEFAULT 0,
		pages_fetched INTEGER DEFAULT 0,
		pages_failed INTEGER DEFAULT 0,
		output_path TEXT
	);

	CREATE TABLE IF NOT EXISTS scrape_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		message TEXT,
		site_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_logs_run ON scrape_logs(run_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON scrape_runs(status, started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) CreateRun(run *models.ScrapeRun) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO scrape_runs (run_id, site_id, started_at, status)
		VALUES (?, ?, ?, ?)`,
		run.RunID, run.SiteID, run.StartedAt, run.Status)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) UpdateRun(run *models.ScrapeRun) error {
	_, err := s.db.Exec(`
		UPDATE scrape_runs SET finished_at = ?, status = ?, open_auctions = ?, closed_auctions = ?,
			open_auction_lots = ?, closed_auction_lots = ?, pages_fetched = ?, pages_failed = ?,
			output_path = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.OpenAuctions, run.ClosedAuctions,
		run.OpenAuctionLots, run.ClosedAuctionLots, run.PagesFetched, run.PagesFailed,
		run.OutputPath, run.ID)
	return err
}

func (s *SQLiteStore) GetRun(id int64) (*models.ScrapeRun, error) {
	row := s.db.QueryRow(`
		SELECT id, run_id, site_id, started_at, finished_at, status, open_auctions, closed_auctions,
			open_auction_lots, closed_auction_lots, pages_fetched, pages_failed, COALESCE(output_path, '')
		FROM scrape_runs WHERE id = ?`, id)

	var run models.ScrapeRun
	var finished sql.NullTime
	err := row.Scan(&run.ID, &run.RunID, &run.SiteID, &run.StartedAt, &finished, &run.Status,
		&run.OpenAuctions, &run.ClosedAuctions, &run.OpenAuctionLots, &run.ClosedAuctionLots,
		&run.PagesFetched, &run.PagesFailed, &run.OutputPath)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}
	return &run, nil
}

func (s *SQLiteStore) Log(runID *int64, level models.LogLevel, message, siteID string) error {
	_, err := s.db.Exec(`
		INSERT INTO scrape_logs (run_id, timestamp, level, message, site_id)
		VALUES (?, ?, ?, ?, ?)`,
		runID, time.Now(), level, message, siteID)
	return err
}

func (s *SQLiteStore) GetLogs(runID int64) ([]models.ScrapeLog, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, timestamp, level, message, site_id
		FROM scrape_logs WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.ScrapeLog
	for rows.Next() {
		var l models.ScrapeLog
		var id sql.NullInt64
		if err := rows.Scan(&l.ID, &id, &l.Timestamp, &l.Level, &l.Message, &l.SiteID); err != nil {
			return nil, err
		}
		if id.Valid {
			l.RunID = &id.Int64
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
