package http

import (
	"encoding/json"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dvizioon/oxypass/internal/domain"
)

const (
	requestBodyLogKey = "http.request.body.summary"
	maxLoggedBody     = 2048
)

// registerLogging emits one JSON line per request. Request bodies are
// summarized with passwords and tokens redacted; a reset token in a log
// stream would defeat the whole exercise.
func registerLogging(e *echo.Echo) {
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			userID := "anonymous"
			if user, ok := c.Get(contextUserKey).(*domain.User); ok && user != nil {
				userID = user.ID.String()
			}

			payload := struct {
				Time      string      `json:"time"`
				UserUUID  string      `json:"user_uuid"`
				LatencyMS int64       `json:"latency_ms"`
				Method    string      `json:"method"`
				URI       string      `json:"uri"`
				Status    int         `json:"status"`
				Body      interface{} `json:"body,omitempty"`
				Error     string      `json:"error,omitempty"`
			}{
				Time:      v.StartTime.Format(time.RFC3339),
				UserUUID:  userID,
				LatencyMS: v.Latency.Milliseconds(),
				Method:    v.Method,
				URI:       v.URI,
				Status:    v.Status,
			}
			if summary := c.Get(requestBodyLogKey); summary != nil {
				payload.Body = summary
			}
			if v.Error != nil {
				payload.Error = v.Error.Error()
			}

			buf, err := json.Marshal(payload)
			if err != nil {
				return err
			}
			log.Println(string(buf))
			return nil
		},
	}))

	e.Use(middleware.BodyDump(func(c echo.Context, reqBody, resBody []byte) {
		if summary := sanitizeBody(reqBody); summary != nil {
			c.Set(requestBodyLogKey, summary)
		}
	}))
}

// redactedKeys are JSON fields whose values never reach the log.
var redactedKeys = []string{"password", "token", "secret"}

func sanitizeBody(body []byte) interface{} {
	if len(body) == 0 {
		return nil
	}
	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil
	}
	return sanitizeJSON(data, "")
}

func sanitizeJSON(value interface{}, keyHint string) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for key, val := range v {
			lowerKey := strings.ToLower(key)
			if isRedactedKey(lowerKey) {
				result[key] = "redacted"
				continue
			}
			result[key] = sanitizeJSON(val, lowerKey)
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = sanitizeJSON(item, keyHint)
		}
		return result
	case string:
		if isRedactedKey(keyHint) {
			return "redacted"
		}
		return clampString(v)
	default:
		return v
	}
}

func isRedactedKey(key string) bool {
	for _, r := range redactedKeys {
		if strings.Contains(key, r) {
			return true
		}
	}
	return false
}

func clampString(value string) string {
	if len(value) <= maxLoggedBody {
		return value
	}
	truncated := value[:maxLoggedBody]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}
	return truncated + "...(truncated)"
}
