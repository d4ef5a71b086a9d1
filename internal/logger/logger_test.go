package logger

import (
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want log.Level
	}{
		{"debug", log.DebugLevel},
		{" INFO ", log.InfoLevel},
		{"warning", log.WarnLevel},
		{"WARN", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"fatal", log.FatalLevel},
		{"", log.InfoLevel},
		{"verbose", log.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestSetLevel(t *testing.T) {
	prev := Logger.GetLevel()
	defer Logger.SetLevel(prev)

	SetLevel("debug")
	assert.Equal(t, log.DebugLevel, Logger.GetLevel())

	SetLevel("nonsense")
	assert.Equal(t, log.InfoLevel, Logger.GetLevel())
}

func TestWithFollowsLevel(t *testing.T) {
	prev := Logger.GetLevel()
	defer Logger.SetLevel(prev)

	SetLevel("info")
	l := With("test")
	assert.Equal(t, log.InfoLevel, l.GetLevel())

	SetLevel("debug")
	assert.Equal(t, log.DebugLevel, l.GetLevel(), "component loggers follow the global level")
	SetLevel(prev.String())
}
