package common

// Dataset columns
const (
	LabelColumn  = "Class"
	AmountColumn = "Amount"
	TimeColumn   = "Time"
)

// Class labels
const (
	LabelLegit = 0
	LabelFraud = 1
)

// Class names used on plots and in reports
const (
	ClassNameLegit = "Non-fraud(0)"
	ClassNameFraud = "fraud(1)"
)

// Model kinds
const (
	ModelTree = "tree"
	ModelKNN  = "knn"
	ModelLR   = "lr"
	ModelSVM  = "svm"
	ModelRF   = "rf"
)

// Environment variable keys
const (
	EnvConfigFile     = "CONFIG_FILE"
	EnvDataPath       = "DATA_PATH"
	EnvOutputPath     = "OUTPUT_PATH"
	EnvTestFraction   = "TEST_FRACTION"
	EnvSplitSeed      = "SPLIT_SEED"
	EnvSplitStratify  = "SPLIT_STRATIFY"
	EnvScalerFitOn    = "SCALER_FIT_ON"
	EnvParallel       = "PARALLEL"
	EnvHistoryPath    = "HISTORY_PATH"
	EnvMetricsFile    = "METRICS_FILE"
	EnvModels         = "MODELS"
	EnvNormalizePlots = "NORMALIZE_PLOTS"
	EnvLogLevel       = "LOG_LEVEL"
)

// Scaler statistics sources
const (
	FitOnAll   = "all"
	FitOnTrain = "train"
)

// Configuration defaults
const (
	DefaultDataPath     = "creditcard.csv"
	DefaultOutputPath   = "."
	DefaultTestFraction = 0.2
	DefaultSplitSeed    = 0
	DefaultLogLevel     = "info"

	DefaultTreeMaxDepth  = 4
	DefaultTreeCriterion = "entropy"
	DefaultKNNNeighbors  = 5
	DefaultLRC           = 1.0
	DefaultLRMaxIter     = 100
	DefaultSVMC          = 1.0
	DefaultSVMTol        = 1e-3
	DefaultSVMCacheRows  = 2048
	DefaultRFTrees       = 100
	DefaultRFMaxDepth    = 4
	DefaultRFCriterion   = "gini"
)

// DefaultModels is the evaluation order of the model variants.
var DefaultModels = []string{ModelTree, ModelKNN, ModelLR, ModelSVM, ModelRF}

// ModelTitles maps a model kind to its display name.
var ModelTitles = map[string]string{
	ModelTree: "Decision Tree",
	ModelKNN:  "KNN",
	ModelLR:   "Logistic Regression",
	ModelSVM:  "SVM",
	ModelRF:   "Random Forest Tree",
}

// Validation constants
const (
	MinTestFraction = 0.0
	MaxTestFraction = 1.0
	MaxTreeDepth    = 64
	MaxRFTrees      = 10000
)
