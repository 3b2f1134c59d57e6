// Package template substitutes the {{name}} placeholders used by the
// notification templates stored in the database.
package template

import (
	"regexp"
	"strconv"
	"time"

	"github.com/dvizioon/oxypass/internal/domain"
)

// Placeholders look like {{user.fullname}} or {{reset.token(20)}}. The
// optional numeric modifier truncates the value and appends an ellipsis.
var variableRe = regexp.MustCompile(`\{\{([^}]+?)(?:\((\d+)\))?\}\}`)

// Replace substitutes every placeholder in text with its value from vars.
// Unknown names become the empty string. The pass is not recursive: values
// containing placeholder syntax are inserted verbatim.
func Replace(text string, vars map[string]string) string {
	return variableRe.ReplaceAllStringFunc(text, func(match string) string {
		groups := variableRe.FindStringSubmatch(match)
		value := vars[groups[1]]
		if groups[2] != "" {
			limit, err := strconv.Atoi(groups[2])
			if runes := []rune(value); err == nil && len(runes) > limit {
				value = string(runes[:limit]) + "..."
			}
		}
		return value
	})
}

// Extra carries the per-request values the reset flow injects alongside the
// remote user's fields.
type Extra struct {
	ResetLink      string
	ResetToken     string
	ExpirationTime string
	SystemName     string
	Now            time.Time
}

// Variables assembles the full substitution map for one notification.
// Both user and ws may be nil; missing fields render as empty strings.
func Variables(user *domain.MoodleUser, ws *domain.WebService, extra Extra) map[string]string {
	now := extra.Now
	if now.IsZero() {
		now = time.Now()
	}

	vars := map[string]string{
		"system.currentDate":   now.Format("02/01/2006"),
		"system.currentTime":   now.Format("15:04"),
		"system.name":          extra.SystemName,
		"reset.link":           extra.ResetLink,
		"reset.token":          extra.ResetToken,
		"reset.expirationTime": extra.ExpirationTime,
	}

	if user != nil {
		vars["user.id"] = strconv.FormatInt(user.ID, 10)
		vars["user.username"] = user.Username
		vars["user.firstname"] = user.Firstname
		vars["user.lastname"] = user.Lastname
		vars["user.fullname"] = user.Fullname
		vars["user.email"] = user.Email
		vars["user.idnumber"] = user.IDNumber
		vars["user.address"] = user.Address
		vars["user.phone1"] = user.Phone1
		vars["user.phone2"] = user.Phone2
		vars["user.department"] = user.Department
		vars["user.institution"] = user.Institution
		vars["user.city"] = user.City
		vars["user.country"] = user.Country
	}

	if ws != nil {
		vars["webservice.serviceName"] = ws.ServiceName
		vars["webservice.url"] = ws.URL
	}

	return vars
}

// VariableDoc documents one placeholder for the template administration UI.
type VariableDoc struct {
	Category    string `json:"category"`
	Key         string `json:"key"`
	Description string `json:"description"`
	Example     string `json:"example"`
	Usage       string `json:"usage"`
}

// Catalogue lists every placeholder the renderer understands.
func Catalogue() []VariableDoc {
	docs := []VariableDoc{
		{"user", "user.id", "Moodle user id", "11085", ""},
		{"user", "user.username", "Login name", "joao123", ""},
		{"user", "user.firstname", "First name", "Joao", ""},
		{"user", "user.lastname", "Last name", "Silva", ""},
		{"user", "user.fullname", "Full name", "Joao Silva", ""},
		{"user", "user.email", "Email address", "joao@example.com", ""},
		{"user", "user.idnumber", "Institutional id number", "202100123", ""},
		{"user", "user.address", "Postal address", "123 Example St", ""},
		{"user", "user.phone1", "Primary phone", "+55 11 99999-9999", ""},
		{"user", "user.phone2", "Secondary phone", "+55 11 88888-8888", ""},
		{"user", "user.department", "Department", "Information Technology", ""},
		{"user", "user.institution", "Institution", "Universidade Ceuma", ""},
		{"user", "user.city", "City", "Sao Luis", ""},
		{"user", "user.country", "Country code", "BR", ""},
		{"system", "system.currentDate", "Current date", "07/09/2025", ""},
		{"system", "system.currentTime", "Current time", "14:30", ""},
		{"system", "system.name", "Service name", "OxyPass", ""},
		{"reset", "reset.link", "Password reset link", "https://app.example.com/reset-password?token=abc123", ""},
		{"reset", "reset.token", "Full reset token", "abc123def456", ""},
		{"reset", "reset.expirationTime", "Token lifetime, human readable", "5 minutes", ""},
		{"webservice", "webservice.serviceName", "Web service name", "Ceuma EAD", ""},
		{"webservice", "webservice.url", "Moodle host", "ead.ceuma.br", ""},
	}
	for i := range docs {
		docs[i].Usage = "{{" + docs[i].Key + "}}"
	}
	return docs
}
