package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRenderHeader_Connecting(t *testing.T) {
	app := NewApp(stubClient{}, 10*time.Second, "stage")
	app.width = 100

	got := stripANSI(renderHeader(app))
	assert.Contains(t, got, "Connecting to http://solr:8983...")
	assert.NotContains(t, got, "DISCONNECTED")
}

func TestRenderHeader_FirstConnectFailed(t *testing.T) {
	app := NewApp(stubClient{}, 10*time.Second, "stage")
	app.width = 120
	app.lastError = errors.New(strings.Repeat("x", 60))

	got := stripANSI(renderHeader(app))
	assert.Contains(t, got, "DISCONNECTED")
	assert.Contains(t, got, strings.Repeat("x", 40)+"...")
	assert.Contains(t, got, "Press r to retry")
}

func TestRenderHeader_CoreStates(t *testing.T) {
	app := NewApp(stubClient{}, 2*time.Minute, "live", "stage")
	app.width = 140
	live := fixtureStatus("live", 0)
	live.Status = "idle"
	app.Update(fixtureMsg(live, fixtureStatus("stage", 5)))

	got := stripANSI(renderHeader(app))
	assert.Contains(t, got, "http://solr:8983")
	assert.Contains(t, got, "● live IDLE")
	assert.Contains(t, got, "● stage BUSY")
	assert.Contains(t, got, "Poll: 2m")
}

func TestRenderHeader_LostConnection(t *testing.T) {
	app := NewApp(stubClient{}, 10*time.Second, "stage")
	app.width = 120
	app.Update(fixtureMsg(fixtureStatus("stage", 5)))
	app.Update(FetchErrorMsg{Err: errors.New("connection refused")})

	got := stripANSI(renderHeader(app))
	assert.Contains(t, got, "DISCONNECTED  connection refused")
}

func TestStatusStyle(t *testing.T) {
	assert.Equal(t, StyleStatusIdle, StatusStyle("idle"))
	assert.Equal(t, StyleStatusBusy, StatusStyle("busy"))
	assert.Equal(t, StyleStatusUnknown, StatusStyle(""))
	assert.Equal(t, StyleStatusFailed, StatusStyle("Error: lock held"))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "10s", formatDuration(10*time.Second))
	assert.Equal(t, "2m", formatDuration(2*time.Minute))
}
