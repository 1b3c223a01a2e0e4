package forms

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"strconv"
	"time"
)

// obfuscated automation marker name, decoded at check time
const obfuscatedMarker = "d2ViZHJpdmVy"

// automation marker variables left behind by known headless drivers
var automationMarkers = []string{"CALL_PHANTOM", "_PHANTOM"}

// SessionData is the telemetry snapshot attached to every request.
type SessionData struct {
	LoadedAt           int64 `json:"loadedAt"`
	AutomationDetected bool  `json:"automationDetected"`
}

// Session is an immutable telemetry snapshot captured once per client
// instance lifetime.
type Session struct {
	loadedAt  int64
	webdriver bool
}

func newSession() *Session {
	return &Session{
		loadedAt:  time.Now().UnixMilli(),
		webdriver: automationDetected(),
	}
}

// automationDetected reports whether the process environment carries any of
// the known automation markers.
func automationDetected() bool {
	if v, err := strconv.ParseBool(os.Getenv("WEBDRIVER")); err == nil && v {
		return true
	}
	if name, err := base64.StdEncoding.DecodeString(obfuscatedMarker); err == nil {
		if os.Getenv(string(name)) != "" {
			return true
		}
	}
	for _, marker := range automationMarkers {
		if os.Getenv(marker) != "" {
			return true
		}
	}
	return false
}

// Data returns the snapshot values.
func (s *Session) Data() SessionData {
	return SessionData{
		LoadedAt:           s.loadedAt,
		AutomationDetected: s.webdriver,
	}
}

// Header returns the base64-JSON encoding of the snapshot for the
// Formspree-Session-Data request header.
func (s *Session) Header() string {
	return encode64(s.Data())
}

// encode64 base64-encodes the JSON serialization of v.
func encode64(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(b)
}
