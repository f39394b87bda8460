// Package setting holds typed system settings and backup job records.
package setting

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Setting value types.
const (
	TypeString  = "string"
	TypeBoolean = "boolean"
	TypeNumber  = "number"
	TypeJSON    = "json"
)

// SystemSetting is one typed configuration row. The stored value is always a
// string; ParsedValue carries the typed form on reads.
type SystemSetting struct {
	ID           string      `json:"id"`
	SettingKey   string      `json:"setting_key"`
	SettingValue string      `json:"setting_value"`
	SettingType  string      `json:"setting_type"`
	Category     string      `json:"category,omitempty"`
	Description  string      `json:"description,omitempty"`
	IsRequired   bool        `json:"is_required"`
	DisplayOrder int         `json:"display_order,omitempty"`
	UpdatedBy    string      `json:"updated_by,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	ParsedValue  interface{} `json:"parsed_value,omitempty"`
}

// ParseValue converts the stored string to the declared type. Unparseable
// values fall back to the raw string.
func (s *SystemSetting) ParseValue() interface{} {
	switch s.SettingType {
	case TypeBoolean:
		switch strings.ToLower(s.SettingValue) {
		case "1", "true", "yes", "on":
			return true
		}
		return false
	case TypeNumber:
		if n, err := strconv.ParseFloat(s.SettingValue, 64); err == nil {
			return n
		}
	case TypeJSON:
		var parsed interface{}
		if err := json.Unmarshal([]byte(s.SettingValue), &parsed); err == nil {
			return parsed
		}
	}
	return s.SettingValue
}

// SerializeValue renders a typed value to the stored string form for the
// given setting type.
func SerializeValue(value interface{}, settingType string) (string, error) {
	switch settingType {
	case TypeBoolean:
		switch v := value.(type) {
		case bool:
			return strconv.FormatBool(v), nil
		case string:
			return strconv.FormatBool(v == "true" || v == "1"), nil
		case float64:
			return strconv.FormatBool(v == 1), nil
		}
		return "false", nil
	case TypeNumber:
		switch v := value.(type) {
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		case string:
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				return "", fmt.Errorf("value is not a number: %q", v)
			}
			return v, nil
		}
		return "", fmt.Errorf("value is not a number")
	case TypeJSON:
		raw, err := json.Marshal(value)
		if err != nil {
			return "", fmt.Errorf("value is not serializable: %w", err)
		}
		return string(raw), nil
	default:
		return fmt.Sprintf("%v", value), nil
	}
}

// CategoryLabels maps category ids to display labels.
var CategoryLabels = map[string]string{
	"general":       "General",
	"features":      "Features",
	"limits":        "Limits",
	"maintenance":   "Maintenance",
	"notifications": "Notifications",
	"payments":      "Payments",
}

// CategoryLabel returns the display label for a category, title-casing
// unknown ids.
func CategoryLabel(category string) string {
	if label, ok := CategoryLabels[category]; ok {
		return label
	}
	words := strings.Split(strings.ReplaceAll(category, "_", " "), " ")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// BackupRequest records a requested backup job.
type BackupRequest struct {
	ID             string    `json:"id"`
	JobType        string    `json:"job_type"`
	Status         string    `json:"status"`
	Reason         string    `json:"reason,omitempty"`
	IncludeStorage bool      `json:"include_storage"`
	RequestedBy    string    `json:"requested_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
