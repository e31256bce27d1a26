package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	fanapiv1alpha1 "github.com/uptime-industries/gboxfan-agent/api/fanapi/v1alpha1"
	"gopkg.in/yaml.v3"
)

func testStatus(t *testing.T) fanapiv1alpha1.Status {
	t.Helper()
	temp := 57
	return fanapiv1alpha1.Status{
		Mode:               "auto",
		ModeCode:           2,
		FanOn:              true,
		TriggerTemperature: 50,
		LastTemperature:    &temp,
		TickPending:        true,
		Ticks:              4,
		Reason:             "tick",
		UpdatedAt:          time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPrintStatus_Text(t *testing.T) {
	t.Parallel()

	st, err := testStatus(t).ToStruct()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printStatus(&buf, st, "text"))
	assert.Contains(t, buf.String(), "mode:        auto")
	assert.Contains(t, buf.String(), "fan:         on")
	assert.Contains(t, buf.String(), "temperature: 57°C (trigger above 50°C)")
	assert.Contains(t, buf.String(), "(tick)")
}

func TestPrintStatus_TextWithoutReading(t *testing.T) {
	t.Parallel()

	st, err := fanapiv1alpha1.Status{Mode: "off", TriggerTemperature: 50}.ToStruct()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printStatus(&buf, st, "text"))
	assert.Contains(t, buf.String(), "temperature: n/a")
	assert.NotContains(t, buf.String(), "updated:")
}

func TestPrintStatus_YAML(t *testing.T) {
	t.Parallel()

	st, err := testStatus(t).ToStruct()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printStatus(&buf, st, "yaml"))

	var decoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "auto", decoded["mode"])
	assert.Equal(t, true, decoded["fan_on"])
	assert.Equal(t, 57, decoded["last_temperature"])
}

func TestPrintStatus_JSON(t *testing.T) {
	t.Parallel()

	st, err := testStatus(t).ToStruct()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printStatus(&buf, st, "json"))

	var decoded fanapiv1alpha1.Status
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, testStatus(t), decoded)
}

func TestCheckFormat(t *testing.T) {
	t.Parallel()

	assert.NoError(t, checkFormat("text"))
	assert.NoError(t, checkFormat("yaml"))
	assert.NoError(t, checkFormat("json"))
	assert.Error(t, checkFormat("xml"))
}
