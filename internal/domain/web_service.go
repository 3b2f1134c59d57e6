package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	ProtocolHTTP  = "http"
	ProtocolHTTPS = "https"
)

// DefaultWebServiceRoute is the REST endpoint Moodle exposes for webservice calls.
const DefaultWebServiceRoute = "/webservice/rest/server.php"

// WebService holds the connection profile for one Moodle instance.
type WebService struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Protocol       string    `db:"protocol" json:"protocol"`
	URL            string    `db:"url" json:"url"`
	Token          string    `db:"token" json:"-"`
	Route          string    `db:"route" json:"route"`
	ServiceName    string    `db:"service_name" json:"service_name"`
	MoodleUser     *string   `db:"moodle_user" json:"moodle_user,omitempty"`
	MoodlePassword *string   `db:"moodle_password" json:"-"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// BaseURL returns the scheme-qualified address of the instance.
func (w *WebService) BaseURL() string {
	return w.Protocol + "://" + w.URL
}
