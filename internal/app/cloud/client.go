package cloud

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"ireport/internal/domain/incident"
)

// Client — HTTP-клиент облачного бэкенда. Используется обоими клиентами:
// мобильным репортером и консолью агентства.
type Client struct {
	client    *http.Client
	log       *slog.Logger
	baseURL   string
	token     string
	userAgent string
}

func NewClient(serverAddress string, enableTLS bool, log *slog.Logger) *Client {
	client := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 10,
		},
	}

	scheme := "http://"
	if enableTLS {
		scheme = "https://"
	}

	return &Client{
		client:    client,
		log:       log.With("component", "cloud_client"),
		baseURL:   scheme + serverAddress,
		userAgent: "iReport-Client/1.0",
	}
}

// SetToken устанавливает токен аутентификации
func (c *Client) SetToken(token string) {
	c.token = token
}

// BaseURL возвращает базовый адрес облака (нужен websocket-подписчику)
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Token возвращает текущий токен аутентификации
func (c *Client) Token() string {
	return c.token
}

// Health проверяет доступность облака
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/health", nil)
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("облако недоступно: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("облако вернуло статус: %d", resp.StatusCode)
	}
	return nil
}

// Login аутентифицирует сотрудника агентства и запоминает токен
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body := map[string]string{"email": email, "password": password}

	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/login", body)
	if err != nil {
		return "", err
	}

	var loginResp struct {
		Token string `json:"token"`
		Error string `json:"error"`
	}
	if err := c.parseResponse(resp, &loginResp); err != nil {
		return "", err
	}
	if loginResp.Token == "" {
		if loginResp.Error != "" {
			return "", fmt.Errorf("вход отклонен: %s", loginResp.Error)
		}
		return "", fmt.Errorf("вход отклонен сервером")
	}

	c.token = loginResp.Token
	return loginResp.Token, nil
}

// ListChanges возвращает инциденты с updated_at >= since, по возрастанию
// updated_at, вместе с серверным временем ответа
func (c *Client) ListChanges(ctx context.Context, since time.Time) ([]incident.Incident, time.Time, error) {
	path := "/api/v1/incidents/changes?since=" + url.QueryEscape(since.UTC().Format(time.RFC3339Nano))

	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, time.Time{}, err
	}

	var changes incident.ChangesResponse
	if err := c.parseResponse(resp, &changes); err != nil {
		return nil, time.Time{}, err
	}

	return changes.Incidents, changes.ServerTime, nil
}

// GetIncidentUpdatedAt читает облачный updated_at одной записи (проверка
// конфликта перед пушем)
func (c *Client) GetIncidentUpdatedAt(ctx context.Context, id uuid.UUID) (time.Time, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/v1/incidents/"+id.String(), nil)
	if err != nil {
		return time.Time{}, err
	}

	var inc incident.Incident
	if err := c.parseResponse(resp, &inc); err != nil {
		return time.Time{}, err
	}
	return inc.UpdatedAt, nil
}

// InsertIncident создает запись об инциденте в облаке
func (c *Client) InsertIncident(ctx context.Context, req incident.CreateRequest) (*incident.Incident, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/incidents", req)
	if err != nil {
		return nil, err
	}

	var inc incident.Incident
	if err := c.parseResponse(resp, &inc); err != nil {
		return nil, err
	}
	return &inc, nil
}

// UpdateIncidentStatus пушит локальную правку статуса в облако
func (c *Client) UpdateIncidentStatus(ctx context.Context, id uuid.UUID, req incident.StatusUpdateRequest) error {
	resp, err := c.doRequest(ctx, http.MethodPatch, "/api/v1/incidents/"+id.String()+"/status", req)
	if err != nil {
		return err
	}
	return c.parseResponse(resp, nil)
}

// AppendHistory дописывает запись в append-only историю статусов
func (c *Client) AppendHistory(ctx context.Context, entry incident.StatusHistoryEntry) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/history", entry)
	if err != nil {
		return err
	}
	return c.parseResponse(resp, nil)
}

// UploadMedia загружает один медиафайл и возвращает публичный URL
func (c *Client) UploadMedia(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	body := struct {
		Path        string `json:"path"`
		ContentType string `json:"content_type"`
		Data        string `json:"data"`
	}{
		Path:        path,
		ContentType: contentType,
		Data:        base64.StdEncoding.EncodeToString(data),
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/media", body)
	if err != nil {
		return "", err
	}

	var uploadResp struct {
		URL string `json:"url"`
	}
	if err := c.parseResponse(resp, &uploadResp); err != nil {
		return "", err
	}
	return uploadResp.URL, nil
}

// FindNearestStation — RPC поиска ближайшей станции агентства
func (c *Client) FindNearestStation(ctx context.Context, lat, lon float64, agency incident.AgencyType) (*incident.Station, error) {
	path := fmt.Sprintf("/api/v1/stations/nearest?lat=%f&lon=%f&agency=%s", lat, lon, agency)

	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var station incident.Station
	if err := c.parseResponse(resp, &station); err != nil {
		return nil, err
	}
	return &station, nil
}

// AssignStation привязывает инцидент к станции (best-effort шаг после вставки)
func (c *Client) AssignStation(ctx context.Context, req incident.AssignStationRequest) error {
	body := struct {
		StationID int64 `json:"station_id"`
	}{StationID: req.StationID}

	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/incidents/"+req.IncidentID.String()+"/assign", body)
	if err != nil {
		return err
	}
	return c.parseResponse(resp, nil)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("ошибка маршалинга тела запроса: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.log.Debug("Отправка запроса", "method", method, "url", req.URL.String())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}

	return resp, nil
}

func (c *Client) parseResponse(resp *http.Response, result interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error  string `json:"error"`
			Detail string `json:"detail"`
		}
		if err := json.Unmarshal(body, &errResp); err == nil {
			if errResp.Error != "" {
				return fmt.Errorf("ошибка облака: %s", errResp.Error)
			}
			if errResp.Detail != "" {
				return fmt.Errorf("ошибка облака: %s", errResp.Detail)
			}
		}
		return fmt.Errorf("ошибка облака: статус %d", resp.StatusCode)
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("ошибка парсинга ответа: %w", err)
		}
	}

	return nil
}
