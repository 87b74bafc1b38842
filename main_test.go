package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vesaa/sysadvisor/internal/config"
	apperrors "github.com/vesaa/sysadvisor/internal/errors"
)

// forbidConfig fails the test if a command gets past argument validation.
func forbidConfig(t *testing.T) {
	t.Helper()
	orig := loadConfig
	loadConfig = func() (*config.Config, error) {
		t.Fatal("config loaded before arguments were validated")
		return nil, nil
	}
	t.Cleanup(func() { loadConfig = orig })
}

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInvalidArgumentsFailBeforeWork(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"zero interval", []string{"--interval", "0"}},
		{"negative interval", []string{"--watch", "--interval", "-3"}},
		{"negative cpu threshold", []string{"alert", "--cpu-thresh", "-5"}},
		{"memory threshold above 100", []string{"alert", "--mem-thresh", "101"}},
		{"alert zero time", []string{"alert", "--time", "0"}},
		{"record zero time", []string{"record", "--time", "0", "--monitor"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forbidConfig(t)
			_, err := execute(tt.args...)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation), err.Error())
		})
	}
}

func TestRecordRejectsBadPath(t *testing.T) {
	orig := loadConfig
	loadConfig = func() (*config.Config, error) { return &config.Config{LogLevel: "error"}, nil }
	t.Cleanup(func() { loadConfig = orig })

	_, err := execute("record", "--output", "perf?.csv")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
}

func TestAlertRequiresMailConfig(t *testing.T) {
	orig := loadConfig
	loadConfig = func() (*config.Config, error) {
		return &config.Config{LogLevel: "error", EmailUsername: "ops@example.com"}, nil
	}
	t.Cleanup(func() { loadConfig = orig })

	_, err := execute("alert")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfiguration))
	assert.Contains(t, err.Error(), "EMAIL_TO")
}

func TestVersion(t *testing.T) {
	out, err := execute("version")
	require.NoError(t, err)
	assert.Contains(t, out, version)
}
