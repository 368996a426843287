package console

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"ireport/internal/domain/incident"
)

// sqliteTime — формат временных меток в TEXT-колонках. Дробная часть
// фиксированной ширины: RFC3339Nano обрезает хвостовые нули, и
// лексикографический порядок строк расходится с хронологическим.
const sqliteTime = "2006-01-02T15:04:05.000000000Z07:00"

// OutboundChange — элемент очереди пуша: локальная правка, ожидающая
// передачи в облако
type OutboundChange struct {
	ID        int64
	TableName string
	RecordID  string
	Action    string // insert | update | delete
	CreatedAt time.Time
	Attempts  int
	LastError string
}

// SQLiteStorage — локальное зеркало облака плюс очередь исходящих правок.
// Процесс консоли владеет файлом эксклюзивно.
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
		CREATE TABLE IF NOT EXISTS incidents (
			id TEXT PRIMARY KEY,
			agency_type TEXT NOT NULL,
			reporter_id TEXT,
			reporter_name TEXT,
			reporter_age INTEGER,
			description TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			latitude REAL,
			longitude REAL,
			location_address TEXT,
			media_urls TEXT,
			station_id INTEGER,
			created_at DATETIME,
			updated_at DATETIME,
			updated_by TEXT,
			cloud_updated_at DATETIME,
			synced INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS status_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			incident_id TEXT NOT NULL,
			status TEXT NOT NULL,
			notes TEXT,
			changed_by TEXT NOT NULL,
			changed_at DATETIME NOT NULL,
			synced INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (incident_id) REFERENCES incidents(id)
		);

		CREATE TABLE IF NOT EXISTS sync_queue (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			table_name TEXT NOT NULL,
			record_id TEXT NOT NULL,
			action TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			last_error TEXT
		);

		CREATE TABLE IF NOT EXISTS dead_letter (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			table_name TEXT NOT NULL,
			record_id TEXT NOT NULL,
			action TEXT NOT NULL,
			last_error TEXT,
			failed_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS sync_meta (
			key TEXT PRIMARY KEY,
			value TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_incidents_status ON incidents(status);
		CREATE INDEX IF NOT EXISTS idx_incidents_agency ON incidents(agency_type);
		CREATE INDEX IF NOT EXISTS idx_status_history_incident ON status_history(incident_id);
		CREATE INDEX IF NOT EXISTS idx_sync_queue_created ON sync_queue(created_at);
	`)
	return err
}

const incidentColumns = `id, agency_type, COALESCE(reporter_id, ''), COALESCE(reporter_name, ''),
	COALESCE(reporter_age, 0), COALESCE(description, ''), status, COALESCE(latitude, 0),
	COALESCE(longitude, 0), COALESCE(location_address, ''), COALESCE(media_urls, '[]'),
	station_id,
	COALESCE(created_at, ''), COALESCE(updated_at, ''), COALESCE(updated_by, ''),
	COALESCE(cloud_updated_at, ''), synced`

func (s *SQLiteStorage) scanIncident(row interface{ Scan(...any) error }) (*incident.Incident, error) {
	var inc incident.Incident
	var id, mediaJSON, createdAt, updatedAt, cloudUpdatedAt string
	var stationID sql.NullInt64

	err := row.Scan(&id, &inc.AgencyType, &inc.ReporterID, &inc.ReporterName,
		&inc.ReporterAge, &inc.Description, &inc.Status, &inc.Latitude,
		&inc.Longitude, &inc.LocationAddress, &mediaJSON, &stationID,
		&createdAt, &updatedAt, &inc.UpdatedBy, &cloudUpdatedAt, &inc.Synced)
	if err != nil {
		return nil, err
	}

	if stationID.Valid {
		inc.StationID = &stationID.Int64
	}

	inc.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга id инцидента: %w", err)
	}
	if err := json.Unmarshal([]byte(mediaJSON), &inc.MediaURLs); err != nil {
		return nil, fmt.Errorf("ошибка парсинга media_urls: %w", err)
	}
	inc.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	inc.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	inc.CloudUpdatedAt, _ = time.Parse(time.RFC3339Nano, cloudUpdatedAt)

	return &inc, nil
}

// GetIncident читает инцидент из зеркала
func (s *SQLiteStorage) GetIncident(id uuid.UUID) (*incident.Incident, error) {
	row := s.db.QueryRow(`SELECT `+incidentColumns+` FROM incidents WHERE id = ?`, id.String())

	inc, err := s.scanIncident(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, incident.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения инцидента: %w", err)
	}
	return inc, nil
}

// ListIncidents возвращает зеркало, новые сверху; пустые фильтры не применяются
func (s *SQLiteStorage) ListIncidents(status incident.Status, agency incident.AgencyType, limit int) ([]*incident.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE 1=1`
	var args []any
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	if agency != "" {
		query += ` AND agency_type = ?`
		args = append(args, agency)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения зеркала: %w", err)
	}
	defer rows.Close()

	var incidents []*incident.Incident
	for rows.Next() {
		inc, err := s.scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования инцидента: %w", err)
		}
		incidents = append(incidents, inc)
	}
	return incidents, rows.Err()
}

// MergeCloudIncident применяет правило конфликтов и записывает облачную
// версию в зеркало. Возвращает true, если слияние произошло.
// cloud_updated_at при этом никогда не откатывается назад.
func (s *SQLiteStorage) MergeCloudIncident(cloud *incident.Incident) (bool, error) {
	local, err := s.GetIncident(cloud.ID)
	if err != nil && !errors.Is(err, incident.ErrNotFound) {
		return false, err
	}
	if errors.Is(err, incident.ErrNotFound) {
		local = nil
	}

	if !incident.CloudWins(local, cloud.UpdatedAt) {
		return false, nil
	}

	cloudUpdatedAt := cloud.UpdatedAt
	if local != nil && local.CloudUpdatedAt.After(cloudUpdatedAt) {
		cloudUpdatedAt = local.CloudUpdatedAt
	}

	mediaJSON, err := json.Marshal(cloud.MediaURLs)
	if err != nil {
		return false, fmt.Errorf("ошибка сериализации media_urls: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO incidents (id, agency_type, reporter_id, reporter_name, reporter_age,
		                       description, status, latitude, longitude, location_address,
		                       media_urls, station_id, created_at, updated_at, updated_by,
		                       cloud_updated_at, synced)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			updated_at = excluded.updated_at,
			updated_by = excluded.updated_by,
			station_id = excluded.station_id,
			cloud_updated_at = excluded.cloud_updated_at,
			synced = 1
	`, cloud.ID.String(), cloud.AgencyType, cloud.ReporterID, cloud.ReporterName,
		cloud.ReporterAge, cloud.Description, cloud.Status, cloud.Latitude,
		cloud.Longitude, cloud.LocationAddress, string(mediaJSON), cloud.StationID,
		cloud.CreatedAt.UTC().Format(sqliteTime),
		cloud.UpdatedAt.UTC().Format(sqliteTime),
		cloud.UpdatedBy,
		cloudUpdatedAt.UTC().Format(sqliteTime))
	if err != nil {
		return false, fmt.Errorf("ошибка слияния инцидента: %w", err)
	}

	return true, nil
}

// UpdateIncidentStatus — локальная правка статуса. Три эффекта в одной
// транзакции: обновление записи, append в историю, постановка в очередь пуша.
func (s *SQLiteStorage) UpdateIncidentStatus(id uuid.UUID, status incident.Status, notes, changedBy string) error {
	now := time.Now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("ошибка открытия транзакции: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE incidents SET status = ?, updated_at = ?, updated_by = ?, synced = 0 WHERE id = ?
	`, status, now.Format(sqliteTime), changedBy, id.String())
	if err != nil {
		return fmt.Errorf("ошибка обновления инцидента: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return incident.ErrNotFound
	}

	if _, err := tx.Exec(`
		INSERT INTO status_history (incident_id, status, notes, changed_by, changed_at, synced)
		VALUES (?, ?, ?, ?, ?, 0)
	`, id.String(), status, notes, changedBy, now.Format(sqliteTime)); err != nil {
		return fmt.Errorf("ошибка записи истории: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO sync_queue (table_name, record_id, action, created_at)
		VALUES ('incidents', ?, 'update', ?)
	`, id.String(), now.Format(sqliteTime)); err != nil {
		return fmt.Errorf("ошибка постановки в очередь пуша: %w", err)
	}

	return tx.Commit()
}

// MarkIncidentSynced помечает запись зеркала синхронизированной после
// успешного пуша
func (s *SQLiteStorage) MarkIncidentSynced(id uuid.UUID) error {
	// Облако принимает updated_at пуша как есть, так что после успешного
	// пуша облачная метка совпадает с локальной
	_, err := s.db.Exec(`
		UPDATE incidents SET synced = 1, cloud_updated_at = updated_at WHERE id = ?
	`, id.String())
	if err != nil {
		return fmt.Errorf("ошибка пометки synced: %w", err)
	}
	return nil
}

// ListOutbound возвращает старейшие элементы очереди пуша. Автоинкрементный
// id — истинный порядок постановки в очередь, он и задает FIFO.
func (s *SQLiteStorage) ListOutbound(limit int) ([]*OutboundChange, error) {
	rows, err := s.db.Query(`
		SELECT id, table_name, record_id, action, created_at, attempts, COALESCE(last_error, '')
		FROM sync_queue ORDER BY id ASC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения очереди пуша: %w", err)
	}
	defer rows.Close()

	var items []*OutboundChange
	for rows.Next() {
		var item OutboundChange
		var createdAt string
		if err := rows.Scan(&item.ID, &item.TableName, &item.RecordID, &item.Action,
			&createdAt, &item.Attempts, &item.LastError); err != nil {
			return nil, fmt.Errorf("ошибка сканирования очереди пуша: %w", err)
		}
		item.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		items = append(items, &item)
	}
	return items, rows.Err()
}

// DeleteOutbound удаляет элемент очереди пуша
func (s *SQLiteStorage) DeleteOutbound(id int64) error {
	_, err := s.db.Exec(`DELETE FROM sync_queue WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления элемента очереди пуша: %w", err)
	}
	return nil
}

// IncrementOutboundAttempts увеличивает счетчик попыток и возвращает новое
// значение
func (s *SQLiteStorage) IncrementOutboundAttempts(id int64, lastError string) (int, error) {
	_, err := s.db.Exec(`
		UPDATE sync_queue SET attempts = attempts + 1, last_error = ? WHERE id = ?
	`, lastError, id)
	if err != nil {
		return 0, fmt.Errorf("ошибка обновления счетчика попыток: %w", err)
	}

	var attempts int
	if err := s.db.QueryRow(`SELECT attempts FROM sync_queue WHERE id = ?`, id).Scan(&attempts); err != nil {
		return 0, fmt.Errorf("ошибка чтения счетчика попыток: %w", err)
	}
	return attempts, nil
}

// MoveOutboundToDeadLetter убирает исчерпавший попытки элемент из очереди,
// сохраняя его в dead-letter вместо молчаливого удаления
func (s *SQLiteStorage) MoveOutboundToDeadLetter(item *OutboundChange) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("ошибка открытия транзакции: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO dead_letter (table_name, record_id, action, last_error, failed_at)
		VALUES (?, ?, ?, ?, ?)
	`, item.TableName, item.RecordID, item.Action, item.LastError,
		time.Now().UTC().Format(sqliteTime)); err != nil {
		return fmt.Errorf("ошибка записи в dead-letter: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM sync_queue WHERE id = ?`, item.ID); err != nil {
		return fmt.Errorf("ошибка удаления элемента очереди пуша: %w", err)
	}

	return tx.Commit()
}

// UnsyncedHistory возвращает неотправленные записи истории, старейшие
// первыми. Записи append-only, так что автоинкрементный id совпадает с
// порядком changed_at и не зависит от текстового формата меток.
func (s *SQLiteStorage) UnsyncedHistory() ([]*incident.StatusHistoryEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, incident_id, status, COALESCE(notes, ''), changed_by, changed_at
		FROM status_history WHERE synced = 0 ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения истории: %w", err)
	}
	defer rows.Close()

	var entries []*incident.StatusHistoryEntry
	for rows.Next() {
		var e incident.StatusHistoryEntry
		var incidentID, changedAt string
		if err := rows.Scan(&e.ID, &incidentID, &e.Status, &e.Notes, &e.ChangedBy, &changedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования истории: %w", err)
		}
		e.IncidentID, err = uuid.Parse(incidentID)
		if err != nil {
			return nil, fmt.Errorf("ошибка парсинга incident_id: %w", err)
		}
		e.ChangedAt, _ = time.Parse(time.RFC3339Nano, changedAt)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// MarkHistorySynced помечает запись истории отправленной
func (s *SQLiteStorage) MarkHistorySynced(id int64) error {
	_, err := s.db.Exec(`UPDATE status_history SET synced = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("ошибка пометки истории: %w", err)
	}
	return nil
}

// History возвращает историю статусов инцидента, новые сверху
func (s *SQLiteStorage) History(incidentID uuid.UUID) ([]*incident.StatusHistoryEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, incident_id, status, COALESCE(notes, ''), changed_by, changed_at, synced
		FROM status_history WHERE incident_id = ? ORDER BY id DESC
	`, incidentID.String())
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения истории: %w", err)
	}
	defer rows.Close()

	var entries []*incident.StatusHistoryEntry
	for rows.Next() {
		var e incident.StatusHistoryEntry
		var id, changedAt string
		if err := rows.Scan(&e.ID, &id, &e.Status, &e.Notes, &e.ChangedBy, &changedAt, &e.Synced); err != nil {
			return nil, fmt.Errorf("ошибка сканирования истории: %w", err)
		}
		e.IncidentID, _ = uuid.Parse(id)
		e.ChangedAt, _ = time.Parse(time.RFC3339Nano, changedAt)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Watermark возвращает отметку последнего pull; по умолчанию — эпоха
func (s *SQLiteStorage) Watermark() (time.Time, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM sync_meta WHERE key = 'last_pull'`).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Unix(0, 0).UTC(), nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("ошибка чтения watermark: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Unix(0, 0).UTC(), nil
	}
	return t, nil
}

// SetWatermark продвигает отметку последнего pull
func (s *SQLiteStorage) SetWatermark(t time.Time) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO sync_meta (key, value) VALUES ('last_pull', ?)
	`, t.UTC().Format(sqliteTime))
	if err != nil {
		return fmt.Errorf("ошибка записи watermark: %w", err)
	}
	return nil
}

// PendingCount возвращает размер очереди пуша
func (s *SQLiteStorage) PendingCount() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sync_queue`).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчета очереди пуша: %w", err)
	}
	return count, nil
}

// DeadLetterCount возвращает число правок, потерянных после исчерпания попыток
func (s *SQLiteStorage) DeadLetterCount() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM dead_letter`).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчета dead-letter: %w", err)
	}
	return count, nil
}

// ListDeadLetter возвращает dead-letter для показа оператору
func (s *SQLiteStorage) ListDeadLetter() ([]*OutboundChange, error) {
	rows, err := s.db.Query(`
		SELECT id, table_name, record_id, action, COALESCE(last_error, ''), failed_at
		FROM dead_letter ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения dead-letter: %w", err)
	}
	defer rows.Close()

	var items []*OutboundChange
	for rows.Next() {
		var item OutboundChange
		var failedAt string
		if err := rows.Scan(&item.ID, &item.TableName, &item.RecordID, &item.Action,
			&item.LastError, &failedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования dead-letter: %w", err)
		}
		item.CreatedAt, _ = time.Parse(time.RFC3339Nano, failedAt)
		items = append(items, &item)
	}
	return items, rows.Err()
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
