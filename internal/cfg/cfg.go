package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"fraud-eval/internal/common"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	DataPath       string
	OutputPath     string
	TestFraction   float64
	SplitSeed      int64
	Stratify       bool
	ScalerFitOn    string
	Parallel       bool
	HistoryPath    string
	MetricsFile    string
	Models         []string
	NormalizePlots bool
	LogLevel       string
	Params         Models
}

// Models holds the hyperparameters of every classifier variant.
type Models struct {
	Tree TreeConfig `yaml:"tree"`
	KNN  KNNConfig  `yaml:"knn"`
	LR   LRConfig   `yaml:"lr"`
	SVM  SVMConfig  `yaml:"svm"`
	RF   RFConfig   `yaml:"rf"`
}

type TreeConfig struct {
	MaxDepth  int    `yaml:"maxDepth"`
	Criterion string `yaml:"criterion"`
}

type KNNConfig struct {
	Neighbors int `yaml:"neighbors"`
}

type LRConfig struct {
	C       float64 `yaml:"c"`
	MaxIter int     `yaml:"maxIter"`
}

type SVMConfig struct {
	C         float64 `yaml:"c"`
	Gamma     float64 `yaml:"gamma"` // 0 selects 1/(n_features*Var(X))
	Tol       float64 `yaml:"tol"`
	MaxIter   int     `yaml:"maxIter"` // 0 selects max(1e7, 100*n)
	CacheRows int     `yaml:"cacheRows"`
}

type RFConfig struct {
	Trees     int    `yaml:"trees"`
	MaxDepth  int    `yaml:"maxDepth"`
	Criterion string `yaml:"criterion"`
}

type ConfigFile struct {
	Data struct {
		Path string `yaml:"path"`
	} `yaml:"data"`

	Split struct {
		TestFraction float64 `yaml:"testFraction"`
		Seed         int64   `yaml:"seed"`
		Stratify     bool    `yaml:"stratify"`
	} `yaml:"split"`

	Scaler struct {
		FitOn string `yaml:"fitOn"`
	} `yaml:"scaler"`

	Run struct {
		Models   []string `yaml:"models"`
		Parallel bool     `yaml:"parallel"`
	} `yaml:"run"`

	Output struct {
		Path           string `yaml:"path"`
		NormalizePlots bool   `yaml:"normalizePlots"`
		HistoryPath    string `yaml:"historyPath"`
		MetricsFile    string `yaml:"metricsFile"`
		LogLevel       string `yaml:"logLevel"`
	} `yaml:"output"`

	Models Models `yaml:"models"`
}

// Defaults returns the settings of the reference evaluation run.
func Defaults() Settings {
	models := make([]string, len(common.DefaultModels))
	copy(models, common.DefaultModels)
	return Settings{
		DataPath:     common.DefaultDataPath,
		OutputPath:   common.DefaultOutputPath,
		TestFraction: common.DefaultTestFraction,
		SplitSeed:    common.DefaultSplitSeed,
		ScalerFitOn:  common.FitOnAll,
		Models:       models,
		LogLevel:     common.DefaultLogLevel,
		Params:       DefaultModels(),
	}
}

// DefaultModels returns the default classifier hyperparameters.
func DefaultModels() Models {
	return Models{
		Tree: TreeConfig{MaxDepth: common.DefaultTreeMaxDepth, Criterion: common.DefaultTreeCriterion},
		KNN:  KNNConfig{Neighbors: common.DefaultKNNNeighbors},
		LR:   LRConfig{C: common.DefaultLRC, MaxIter: common.DefaultLRMaxIter},
		SVM:  SVMConfig{C: common.DefaultSVMC, Tol: common.DefaultSVMTol, CacheRows: common.DefaultSVMCacheRows},
		RF:   RFConfig{Trees: common.DefaultRFTrees, MaxDepth: common.DefaultRFMaxDepth, Criterion: common.DefaultRFCriterion},
	}
}

// LoadDotEnv loads environment variables from the given .env file.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func Load() (Settings, error) {
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := defaultConfigFile()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	settings := Settings{
		DataPath:       getEnvOrDefault(common.EnvDataPath, config.Data.Path),
		OutputPath:     getEnvOrDefault(common.EnvOutputPath, config.Output.Path),
		TestFraction:   getFloatOrDefault(common.EnvTestFraction, config.Split.TestFraction),
		SplitSeed:      getInt64OrDefault(common.EnvSplitSeed, config.Split.Seed),
		Stratify:       getBoolOrDefault(common.EnvSplitStratify, config.Split.Stratify),
		ScalerFitOn:    getEnvOrDefault(common.EnvScalerFitOn, config.Scaler.FitOn),
		Parallel:       getBoolOrDefault(common.EnvParallel, config.Run.Parallel),
		HistoryPath:    getEnvOrDefault(common.EnvHistoryPath, config.Output.HistoryPath),
		MetricsFile:    getEnvOrDefault(common.EnvMetricsFile, config.Output.MetricsFile),
		Models:         splitOrDefault(os.Getenv(common.EnvModels), config.Run.Models),
		NormalizePlots: getBoolOrDefault(common.EnvNormalizePlots, config.Output.NormalizePlots),
		LogLevel:       getEnvOrDefault(common.EnvLogLevel, config.Output.LogLevel),
		Params:         config.Models,
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func loadFromEnv() (Settings, error) {
	def := Defaults()
	settings := Settings{
		DataPath:       getEnvOrDefault(common.EnvDataPath, def.DataPath),
		OutputPath:     getEnvOrDefault(common.EnvOutputPath, def.OutputPath),
		TestFraction:   getFloatOrDefault(common.EnvTestFraction, def.TestFraction),
		SplitSeed:      getInt64OrDefault(common.EnvSplitSeed, def.SplitSeed),
		Stratify:       getBoolOrDefault(common.EnvSplitStratify, def.Stratify),
		ScalerFitOn:    getEnvOrDefault(common.EnvScalerFitOn, def.ScalerFitOn),
		Parallel:       getBoolOrDefault(common.EnvParallel, def.Parallel),
		HistoryPath:    os.Getenv(common.EnvHistoryPath), // optional
		MetricsFile:    os.Getenv(common.EnvMetricsFile), // optional
		Models:         splitOrDefault(os.Getenv(common.EnvModels), def.Models),
		NormalizePlots: getBoolOrDefault(common.EnvNormalizePlots, def.NormalizePlots),
		LogLevel:       getEnvOrDefault(common.EnvLogLevel, def.LogLevel),
		Params:         def.Params,
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func defaultConfigFile() ConfigFile {
	def := Defaults()
	var c ConfigFile
	c.Data.Path = def.DataPath
	c.Split.TestFraction = def.TestFraction
	c.Split.Seed = def.SplitSeed
	c.Scaler.FitOn = def.ScalerFitOn
	c.Run.Models = def.Models
	c.Output.Path = def.OutputPath
	c.Output.LogLevel = def.LogLevel
	c.Models = def.Params
	return c
}

// Validate checks the settings after command line overrides were applied.
func (s *Settings) Validate() error {
	return validateSettings(s)
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitOrDefault(v string, def []string) []string {
	if v == "" {
		return def
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// validateSettings performs comprehensive validation of configuration values
func validateSettings(settings *Settings) error {
	if settings.DataPath == "" {
		return fmt.Errorf("data path cannot be empty")
	}
	if settings.TestFraction <= common.MinTestFraction || settings.TestFraction >= common.MaxTestFraction {
		return fmt.Errorf("test fraction must be between 0 and 1 (exclusive), got %f", settings.TestFraction)
	}
	if settings.ScalerFitOn != common.FitOnAll && settings.ScalerFitOn != common.FitOnTrain {
		return fmt.Errorf("scaler fitOn must be %q or %q, got %q", common.FitOnAll, common.FitOnTrain, settings.ScalerFitOn)
	}

	if len(settings.Models) == 0 {
		return fmt.Errorf("at least one model must be specified")
	}
	seen := make(map[string]bool, len(settings.Models))
	for _, m := range settings.Models {
		if _, ok := common.ModelTitles[m]; !ok {
			return fmt.Errorf("unknown model %q", m)
		}
		if seen[m] {
			return fmt.Errorf("model %q listed twice", m)
		}
		seen[m] = true
	}

	p := settings.Params
	if p.Tree.MaxDepth < 1 || p.Tree.MaxDepth > common.MaxTreeDepth {
		return fmt.Errorf("tree max depth must be between 1 and %d, got %d", common.MaxTreeDepth, p.Tree.MaxDepth)
	}
	if !validCriterion(p.Tree.Criterion) {
		return fmt.Errorf("tree criterion must be gini or entropy, got %q", p.Tree.Criterion)
	}
	if p.KNN.Neighbors < 1 {
		return fmt.Errorf("knn neighbors must be positive, got %d", p.KNN.Neighbors)
	}
	if p.LR.C <= 0 {
		return fmt.Errorf("logistic regression C must be positive, got %f", p.LR.C)
	}
	if p.LR.MaxIter < 1 {
		return fmt.Errorf("logistic regression maxIter must be positive, got %d", p.LR.MaxIter)
	}
	if p.SVM.C <= 0 {
		return fmt.Errorf("svm C must be positive, got %f", p.SVM.C)
	}
	if p.SVM.Gamma < 0 {
		return fmt.Errorf("svm gamma cannot be negative, got %f", p.SVM.Gamma)
	}
	if p.SVM.Tol <= 0 {
		return fmt.Errorf("svm tol must be positive, got %f", p.SVM.Tol)
	}
	if p.SVM.MaxIter < 0 {
		return fmt.Errorf("svm maxIter cannot be negative, got %d", p.SVM.MaxIter)
	}
	if p.SVM.CacheRows < 2 {
		return fmt.Errorf("svm cacheRows must be at least 2, got %d", p.SVM.CacheRows)
	}
	if p.RF.Trees < 1 || p.RF.Trees > common.MaxRFTrees {
		return fmt.Errorf("random forest trees must be between 1 and %d, got %d", common.MaxRFTrees, p.RF.Trees)
	}
	if p.RF.MaxDepth < 1 || p.RF.MaxDepth > common.MaxTreeDepth {
		return fmt.Errorf("random forest max depth must be between 1 and %d, got %d", common.MaxTreeDepth, p.RF.MaxDepth)
	}
	if !validCriterion(p.RF.Criterion) {
		return fmt.Errorf("random forest criterion must be gini or entropy, got %q", p.RF.Criterion)
	}

	return nil
}

func validCriterion(c string) bool {
	return c == "gini" || c == "entropy"
}
