package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fraud-eval/internal/cfg"
	"fraud-eval/internal/common"
	"fraud-eval/internal/dataset"
	"fraud-eval/internal/plot"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyRunFlags(t *testing.T) {
	require.NoError(t, runCmd.ParseFlags([]string{
		"--data", "x.csv",
		"--models", "tree,rf",
		"--seed", "7",
		"--stratify",
		"--fit-on", "train",
	}))

	s := cfg.Defaults()
	applyRunFlags(runCmd, &s)

	assert.Equal(t, "x.csv", s.DataPath)
	assert.Equal(t, []string{common.ModelTree, common.ModelRF}, s.Models)
	assert.Equal(t, int64(7), s.SplitSeed)
	assert.True(t, s.Stratify)
	assert.Equal(t, common.FitOnTrain, s.ScalerFitOn)
	// untouched flags keep the loaded values
	assert.Equal(t, common.DefaultTestFraction, s.TestFraction)
	assert.Equal(t, common.DefaultOutputPath, s.OutputPath)
	assert.NoError(t, s.Validate())
}

func TestSetupLogging(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	setupLogging("debug")
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	setupLogging("nonsense")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)
	assert.True(t, strings.HasPrefix(buf.String(), "fraudeval "+version))
}

// unsetEnv removes keys for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadSettings_AppliesConfiguredLogLevel(t *testing.T) {
	defer setupLogging(common.DefaultLogLevel)

	tests := []struct {
		name  string
		setup func(t *testing.T)
		want  zerolog.Level
	}{
		{
			name: "yaml",
			setup: func(t *testing.T) {
				path := filepath.Join(t.TempDir(), "config.yaml")
				require.NoError(t, os.WriteFile(path, []byte("output:\n  logLevel: error\n"), 0o644))
				t.Setenv(common.EnvConfigFile, path)
			},
			want: zerolog.ErrorLevel,
		},
		{
			name: "dotenv",
			setup: func(t *testing.T) {
				dir := t.TempDir()
				require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LOG_LEVEL=warn\n"), 0o644))
				t.Chdir(dir)
			},
			want: zerolog.WarnLevel,
		},
		{
			name:  "default",
			setup: func(t *testing.T) { t.Chdir(t.TempDir()) },
			want:  zerolog.InfoLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unsetEnv(t, common.EnvConfigFile, common.EnvLogLevel)
			tt.setup(t)
			zerolog.SetGlobalLevel(zerolog.DebugLevel)

			loadSettings()
			assert.Equal(t, tt.want, zerolog.GlobalLevel())
		})
	}
}

func TestLoadSettings_LogLevelFlagWins(t *testing.T) {
	defer setupLogging(common.DefaultLogLevel)

	flag := root.PersistentFlags().Lookup("log-level")
	require.NotNil(t, flag)
	require.NoError(t, root.PersistentFlags().Set("log-level", "debug"))
	defer func() {
		flag.Changed = false
		logLevel = ""
	}()

	unsetEnv(t, common.EnvConfigFile, common.EnvLogLevel)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  logLevel: error\n"), 0o644))
	t.Setenv(common.EnvConfigFile, path)

	setupLogging(logLevel)
	settings := loadSettings()
	assert.Equal(t, "error", settings.LogLevel)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestGenerateThenEvaluate_DefaultSettings(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "creditcard.csv")
	d, err := writeSynthetic(data, dataset.DefaultSynthOptions())
	require.NoError(t, err)
	_, fraud := d.ClassCounts()
	require.Equal(t, 10, fraud)

	s := cfg.Defaults()
	s.DataPath = data
	s.OutputPath = filepath.Join(dir, "out")
	s.MetricsFile = filepath.Join(dir, "fraudeval.prom")
	require.NoError(t, s.Validate())

	var out bytes.Buffer
	require.NoError(t, evaluate(context.Background(), &s, &out))

	for _, kind := range common.DefaultModels {
		assert.FileExists(t, filepath.Join(s.OutputPath, plot.FileName(kind)))
	}
	assert.Contains(t, out.String(), "Test rows: 200")
	assert.Contains(t, out.String(), "=== MODELS ===")

	prom, err := os.ReadFile(s.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `fraudeval_model_f1{model="lr"}`)
	assert.Contains(t, string(prom), "fraudeval_errors_total 0")
}

func TestEvaluate_ReportFailureIsReturned(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "transactions.csv")
	opts := dataset.DefaultSynthOptions()
	opts.Rows, opts.Frauds = 300, 15
	_, err := writeSynthetic(data, opts)
	require.NoError(t, err)

	// A regular file where the output directory should go.
	blocked := filepath.Join(dir, "out")
	require.NoError(t, os.WriteFile(blocked, []byte("x"), 0o644))

	s := cfg.Defaults()
	s.DataPath = data
	s.OutputPath = blocked
	s.Models = []string{common.ModelTree}
	s.MetricsFile = filepath.Join(dir, "fraudeval.prom")

	var out bytes.Buffer
	err = evaluate(context.Background(), &s, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate reports")
	assert.Empty(t, out.String())

	prom, err := os.ReadFile(s.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "fraudeval_errors_total 1")
}
