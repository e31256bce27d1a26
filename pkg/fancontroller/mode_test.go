package fancontroller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Mode
	}{
		{"off", ModeOff},
		{"ON", ModeOn},
		{" auto ", ModeAuto},
		{"0", ModeOff},
		{"1", ModeOn},
		{"2", ModeAuto},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, in := range []string{"", "3", "-1", "turbo"} {
		_, err := ParseMode(in)
		assert.ErrorIs(t, err, ErrInvalidArgument, in)
	}
}

func TestMode_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "off", ModeOff.String())
	assert.Equal(t, "on", ModeOn.String())
	assert.Equal(t, "auto", ModeAuto.String())
	assert.Equal(t, "unknown", Mode(7).String())
	assert.False(t, Mode(7).Valid())
}
