package reporter

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"ireport/internal/domain/incident"
)

// sqliteTime — формат временных меток в TEXT-колонках. Дробная часть
// фиксированной ширины, иначе обрезанные хвостовые нули ломают
// лексикографический ORDER BY по времени.
const sqliteTime = "2006-01-02T15:04:05.000000000Z07:00"

// QueuedSubmission — элемент офлайн-очереди: все, что нужно для повторного
// создания инцидента в облаке
type QueuedSubmission struct {
	ID              string              `json:"id"`
	AgencyType      incident.AgencyType `json:"agency_type"`
	ReporterID      string              `json:"reporter_id,omitempty"`
	ReporterName    string              `json:"reporter_name"`
	ReporterAge     int                 `json:"reporter_age"`
	Description     string              `json:"description"`
	Latitude        float64             `json:"latitude"`
	Longitude       float64             `json:"longitude"`
	LocationAddress string              `json:"location_address"`
	MediaPaths      []string            `json:"media_paths"`
	Timestamp       time.Time           `json:"timestamp"`
	RetryCount      int                 `json:"retry_count"`
	LastError       string              `json:"last_error,omitempty"`
}

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия базы данных: %w", err)
	}

	storage := &SQLiteStorage{db: db}
	if err := storage.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка инициализации таблиц: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) initTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS submission_queue (
			id TEXT PRIMARY KEY,
			agency_type TEXT NOT NULL,
			reporter_id TEXT,
			reporter_name TEXT,
			reporter_age INTEGER,
			description TEXT,
			latitude REAL,
			longitude REAL,
			location_address TEXT,
			media_paths TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			retry_count INTEGER NOT NULL DEFAULT 0,
			last_error TEXT
		);

		CREATE TABLE IF NOT EXISTS dead_letter (
			id TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			reason TEXT,
			failed_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_submission_queue_created ON submission_queue(created_at);
	`)
	return err
}

// SaveSubmission сохраняет элемент очереди
func (s *SQLiteStorage) SaveSubmission(sub *QueuedSubmission) error {
	mediaJSON, err := json.Marshal(sub.MediaPaths)
	if err != nil {
		return fmt.Errorf("ошибка сериализации путей медиа: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO submission_queue (id, agency_type, reporter_id, reporter_name, reporter_age,
		                              description, latitude, longitude, location_address,
		                              media_paths, created_at, retry_count, last_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sub.ID, sub.AgencyType, sub.ReporterID, sub.ReporterName, sub.ReporterAge,
		sub.Description, sub.Latitude, sub.Longitude, sub.LocationAddress,
		string(mediaJSON), sub.Timestamp.UTC().Format(sqliteTime), sub.RetryCount, sub.LastError)
	if err != nil {
		return fmt.Errorf("ошибка сохранения элемента очереди: %w", err)
	}
	return nil
}

// ListSubmissions возвращает очередь в порядке FIFO
func (s *SQLiteStorage) ListSubmissions() ([]*QueuedSubmission, error) {
	rows, err := s.db.Query(`
		SELECT id, agency_type, reporter_id, reporter_name, reporter_age,
		       description, latitude, longitude, location_address,
		       media_paths, created_at, retry_count, COALESCE(last_error, '')
		FROM submission_queue
		ORDER BY created_at ASC, rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения очереди: %w", err)
	}
	defer rows.Close()

	var subs []*QueuedSubmission
	for rows.Next() {
		var sub QueuedSubmission
		var mediaJSON, createdAt string

		if err := rows.Scan(&sub.ID, &sub.AgencyType, &sub.ReporterID, &sub.ReporterName,
			&sub.ReporterAge, &sub.Description, &sub.Latitude, &sub.Longitude,
			&sub.LocationAddress, &mediaJSON, &createdAt, &sub.RetryCount, &sub.LastError); err != nil {
			return nil, fmt.Errorf("ошибка сканирования элемента очереди: %w", err)
		}

		if err := json.Unmarshal([]byte(mediaJSON), &sub.MediaPaths); err != nil {
			return nil, fmt.Errorf("ошибка парсинга путей медиа: %w", err)
		}
		sub.Timestamp, _ = time.Parse(time.RFC3339Nano, createdAt)

		subs = append(subs, &sub)
	}

	return subs, rows.Err()
}

// DeleteSubmission удаляет элемент очереди (после успешной вставки инцидента)
func (s *SQLiteStorage) DeleteSubmission(id string) error {
	_, err := s.db.Exec(`DELETE FROM submission_queue WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления элемента очереди: %w", err)
	}
	return nil
}

// IncrementRetry увеличивает счетчик попыток и запоминает последнюю ошибку
func (s *SQLiteStorage) IncrementRetry(id string, lastError string) error {
	_, err := s.db.Exec(`
		UPDATE submission_queue SET retry_count = retry_count + 1, last_error = ? WHERE id = ?
	`, lastError, id)
	if err != nil {
		return fmt.Errorf("ошибка обновления счетчика попыток: %w", err)
	}
	return nil
}

// MoveToDeadLetter переносит исчерпавший попытки элемент в dead-letter,
// чтобы репорт не терялся молча
func (s *SQLiteStorage) MoveToDeadLetter(sub *QueuedSubmission, reason string) error {
	payload, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("ошибка сериализации элемента: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("ошибка открытия транзакции: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO dead_letter (id, payload, reason, failed_at) VALUES (?, ?, ?, ?)
	`, sub.ID, string(payload), reason, time.Now().UTC().Format(sqliteTime)); err != nil {
		return fmt.Errorf("ошибка записи в dead-letter: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM submission_queue WHERE id = ?`, sub.ID); err != nil {
		return fmt.Errorf("ошибка удаления элемента очереди: %w", err)
	}

	return tx.Commit()
}

// QueueCount возвращает число элементов, ожидающих отправки
func (s *SQLiteStorage) QueueCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM submission_queue`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчета очереди: %w", err)
	}
	return count, nil
}

// DeadLetterCount возвращает число потерянных репортов
func (s *SQLiteStorage) DeadLetterCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM dead_letter`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчета dead-letter: %w", err)
	}
	return count, nil
}

// ListDeadLetter возвращает содержимое dead-letter для показа пользователю
func (s *SQLiteStorage) ListDeadLetter() ([]*QueuedSubmission, error) {
	rows, err := s.db.Query(`SELECT payload FROM dead_letter ORDER BY failed_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения dead-letter: %w", err)
	}
	defer rows.Close()

	var subs []*QueuedSubmission
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("ошибка сканирования dead-letter: %w", err)
		}
		var sub QueuedSubmission
		if err := json.Unmarshal([]byte(payload), &sub); err != nil {
			return nil, fmt.Errorf("ошибка парсинга dead-letter: %w", err)
		}
		subs = append(subs, &sub)
	}

	return subs, rows.Err()
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
