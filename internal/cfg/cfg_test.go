package cfg

import (
	"os"
	"path/filepath"
	"testing"

	"fraud-eval/internal/common"
)

func TestLoadFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		wantErr  bool
		validate func(t *testing.T, settings Settings)
	}{
		{
			name:    "defaults",
			envVars: map[string]string{},
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.DataPath != "creditcard.csv" {
					t.Errorf("expected default DataPath creditcard.csv, got %s", settings.DataPath)
				}
				if settings.TestFraction != 0.2 {
					t.Errorf("expected default TestFraction 0.2, got %f", settings.TestFraction)
				}
				if settings.SplitSeed != 0 {
					t.Errorf("expected default SplitSeed 0, got %d", settings.SplitSeed)
				}
				if settings.ScalerFitOn != common.FitOnAll {
					t.Errorf("expected default ScalerFitOn all, got %s", settings.ScalerFitOn)
				}
				if len(settings.Models) != 5 {
					t.Errorf("expected 5 default models, got %v", settings.Models)
				}
				if settings.Params.Tree.MaxDepth != 4 || settings.Params.Tree.Criterion != "entropy" {
					t.Errorf("unexpected tree params %+v", settings.Params.Tree)
				}
				if settings.Params.KNN.Neighbors != 5 {
					t.Errorf("expected 5 neighbors, got %d", settings.Params.KNN.Neighbors)
				}
				if settings.Params.RF.MaxDepth != 4 || settings.Params.RF.Trees != 100 {
					t.Errorf("unexpected forest params %+v", settings.Params.RF)
				}
			},
		},
		{
			name: "custom settings",
			envVars: map[string]string{
				"DATA_PATH":      "data/tx.csv",
				"TEST_FRACTION":  "0.3",
				"SPLIT_SEED":     "42",
				"SPLIT_STRATIFY": "true",
				"SCALER_FIT_ON":  "train",
				"PARALLEL":       "true",
				"MODELS":         "tree, lr",
			},
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.DataPath != "data/tx.csv" {
					t.Errorf("expected DataPath data/tx.csv, got %s", settings.DataPath)
				}
				if settings.TestFraction != 0.3 {
					t.Errorf("expected TestFraction 0.3, got %f", settings.TestFraction)
				}
				if settings.SplitSeed != 42 {
					t.Errorf("expected SplitSeed 42, got %d", settings.SplitSeed)
				}
				if !settings.Stratify || !settings.Parallel {
					t.Error("expected Stratify and Parallel to be true")
				}
				if settings.ScalerFitOn != common.FitOnTrain {
					t.Errorf("expected ScalerFitOn train, got %s", settings.ScalerFitOn)
				}
				if len(settings.Models) != 2 || settings.Models[0] != "tree" || settings.Models[1] != "lr" {
					t.Errorf("expected models [tree lr], got %v", settings.Models)
				}
			},
		},
		{
			name:    "test fraction out of range",
			envVars: map[string]string{"TEST_FRACTION": "1.5"},
			wantErr: true,
		},
		{
			name:    "unknown model",
			envVars: map[string]string{"MODELS": "tree,xgboost"},
			wantErr: true,
		},
		{
			name:    "unknown scaler source",
			envVars: map[string]string{"SCALER_FIT_ON": "test"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTestEnv(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			settings, err := Load()
			if tt.wantErr && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			if !tt.wantErr && tt.validate != nil {
				tt.validate(t, settings)
			}
		})
	}
}

func TestLoadFromYAML(t *testing.T) {
	clearTestEnv(t)

	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")
	configContent := `
data:
  path: "tx.csv"
split:
  testFraction: 0.25
  seed: 7
run:
  models: ["knn", "rf"]
  parallel: true
output:
  path: "out"
  normalizePlots: true
models:
  knn:
    neighbors: 3
  rf:
    trees: 10
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", configPath)
	t.Setenv("SPLIT_SEED", "11")

	settings, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if settings.DataPath != "tx.csv" {
		t.Errorf("expected DataPath tx.csv, got %s", settings.DataPath)
	}
	if settings.TestFraction != 0.25 {
		t.Errorf("expected TestFraction 0.25, got %f", settings.TestFraction)
	}
	if settings.SplitSeed != 11 {
		t.Errorf("expected env override SplitSeed 11, got %d", settings.SplitSeed)
	}
	if !settings.Parallel || !settings.NormalizePlots {
		t.Error("expected Parallel and NormalizePlots to be true")
	}
	if settings.OutputPath != "out" {
		t.Errorf("expected OutputPath out, got %s", settings.OutputPath)
	}
	if settings.Params.KNN.Neighbors != 3 {
		t.Errorf("expected 3 neighbors, got %d", settings.Params.KNN.Neighbors)
	}
	if settings.Params.RF.Trees != 10 {
		t.Errorf("expected 10 trees, got %d", settings.Params.RF.Trees)
	}
	// Untouched values keep their defaults
	if settings.Params.RF.MaxDepth != 4 {
		t.Errorf("expected default forest depth 4, got %d", settings.Params.RF.MaxDepth)
	}
	if settings.Params.Tree.Criterion != "entropy" {
		t.Errorf("expected default tree criterion entropy, got %s", settings.Params.Tree.Criterion)
	}
	if settings.ScalerFitOn != common.FitOnAll {
		t.Errorf("expected default ScalerFitOn all, got %s", settings.ScalerFitOn)
	}
}

func TestLoadFromYAML_Errors(t *testing.T) {
	clearTestEnv(t)

	t.Run("missing file", func(t *testing.T) {
		t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
		if _, err := Load(); err == nil {
			t.Error("expected error for missing config file")
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("split: [unclosed"), 0o644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		t.Setenv("CONFIG_FILE", path)
		if _, err := Load(); err == nil {
			t.Error("expected error for invalid yaml")
		}
	})
}

func TestLoadDotEnv(t *testing.T) {
	clearTestEnv(t)

	if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("missing .env should not fail, got %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("DATA_PATH=from-dotenv.csv\n"), 0o644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	// Register cleanup for the variable godotenv sets
	t.Setenv("DATA_PATH", "")
	os.Unsetenv("DATA_PATH")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("DATA_PATH"); got != "from-dotenv.csv" {
		t.Errorf("expected DATA_PATH from .env, got %q", got)
	}
}

// clearTestEnv clears potentially conflicting environment variables
func clearTestEnv(t *testing.T) {
	envVars := []string{
		common.EnvConfigFile, common.EnvDataPath, common.EnvOutputPath, common.EnvTestFraction,
		common.EnvSplitSeed, common.EnvSplitStratify, common.EnvScalerFitOn, common.EnvParallel,
		common.EnvHistoryPath, common.EnvMetricsFile, common.EnvModels, common.EnvNormalizePlots,
		common.EnvLogLevel,
	}

	for _, env := range envVars {
		if val := os.Getenv(env); val != "" {
			t.Setenv(env, "")
		}
	}
}
