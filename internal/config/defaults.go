package config

import "visiontune/internal/taxonomy"

const (
	defaultOutputDir         = "./training_output"
	defaultFetchTimeout      = 600
	defaultSplitMode         = SplitModeMirror
	defaultTrainerBinary     = "yolo"
	defaultTrainEpochs       = 50
	defaultTrainImageSize    = 640
	defaultTrainBatch        = 16
	defaultTrainPatience     = 15
	defaultTrainLR0          = 0.001
	defaultTrainLRF          = 0.01
	defaultTrainWarmupEpochs = 3
	defaultTrainFreeze       = 10
	defaultTrainDevice       = "0"
	defaultTrainRunName      = "anticheat_finetuned"
	defaultExportFormat      = "onnx"
	defaultExportImageSize   = 640
	defaultExportOpset       = 17
	defaultNotifyTimeout     = 10
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// ExportExtensions maps each supported export.format to the extension of the
// artifact the trainer writes next to the weights.
var ExportExtensions = map[string]string{
	"onnx":        ".onnx",
	"torchscript": ".torchscript",
	"engine":      ".engine",
}

// Split modes accepted by merge.split_mode.
const (
	SplitModeMirror   = "mirror"
	SplitModePreserve = "preserve"
)

// DefaultDatasets returns the built-in Roboflow export list.
func DefaultDatasets() []Dataset {
	return []Dataset{
		{Name: "phone_1", URL: "https://app.roboflow.com/ds/5ReObgnLbQ?key=HTPSgVzDLW"},
		{Name: "phone_2", URL: "https://app.roboflow.com/ds/f9k54F7Azq?key=eYssUekSYc"},
		{Name: "paper_1", URL: "https://app.roboflow.com/ds/inuabMtp6t?key=jbu7HTlrBf"},
		{Name: "paper_2", URL: "https://app.roboflow.com/ds/b4oxAhlW40?key=4A761Kjm5F"},
		{Name: "headphones_1", URL: "https://app.roboflow.com/ds/qqqEeSKAlk?key=GT1Xa65onI"},
		{Name: "headphones_2", URL: "https://app.roboflow.com/ds/cKHwOqmuda?key=qL10KsWlBt"},
		{Name: "person_1", URL: "https://app.roboflow.com/ds/PwRwV0c1jL?key=FgXbXeqlpH"},
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
		},
		Fetch: Fetch{
			TimeoutSeconds: defaultFetchTimeout,
		},
		Datasets: DefaultDatasets(),
		Taxonomy: Taxonomy{
			Classes:  taxonomy.DefaultClasses(),
			Synonyms: taxonomy.DefaultSynonyms(),
		},
		Merge: Merge{
			SplitMode: defaultSplitMode,
		},
		Train: Train{
			Binary:       defaultTrainerBinary,
			Epochs:       defaultTrainEpochs,
			ImageSize:    defaultTrainImageSize,
			Batch:        defaultTrainBatch,
			Patience:     defaultTrainPatience,
			LR0:          defaultTrainLR0,
			LRF:          defaultTrainLRF,
			WarmupEpochs: defaultTrainWarmupEpochs,
			Freeze:       defaultTrainFreeze,
			Device:       defaultTrainDevice,
			RunName:      defaultTrainRunName,
		},
		Export: Export{
			Format:    defaultExportFormat,
			ImageSize: defaultExportImageSize,
			Simplify:  true,
			Dynamic:   false,
			Opset:     defaultExportOpset,
		},
		Notifications: Notifications{
			TimeoutSeconds: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
