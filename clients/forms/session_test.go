package forms

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_HeaderRoundTrip(t *testing.T) {
	before := time.Now().UnixMilli()
	session := newSession()
	after := time.Now().UnixMilli()

	raw, err := base64.StdEncoding.DecodeString(session.Header())
	require.NoError(t, err)

	var data SessionData
	require.NoError(t, json.Unmarshal(raw, &data))

	assert.GreaterOrEqual(t, data.LoadedAt, before)
	assert.LessOrEqual(t, data.LoadedAt, after)
	assert.Equal(t, session.Data(), data)
}

func TestSession_AutomationMarker(t *testing.T) {
	t.Setenv("WEBDRIVER", "true")

	session := newSession()
	assert.True(t, session.Data().AutomationDetected)
}

func TestSession_ObfuscatedMarkerName(t *testing.T) {
	// the marker name is stored base64-encoded and decoded at check time
	t.Setenv("webdriver", "chromedriver")

	assert.True(t, automationDetected())
}

func TestSession_HeadlessMarkers(t *testing.T) {
	t.Setenv("_PHANTOM", "1")

	assert.True(t, automationDetected())
}
