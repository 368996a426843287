package staff

import (
	"errors"
	"time"

	"ireport/internal/domain/incident"
)

var (
	ErrNotFound     = errors.New("staff not found")
	ErrInvalidAuth  = errors.New("invalid credentials")
	ErrInvalidInput = errors.New("invalid input")
)

// Staff — оператор агентства. Поле Agency ограничивает видимость инцидентов;
// пустое значение — доступ ко всем агентствам.
type Staff struct {
	ID        int
	Email     string
	Name      string
	Agency    incident.AgencyType
	Password  string // хэш
	CreatedAt time.Time
}
