package trainer

import (
	"strconv"

	"visiontune/internal/config"
)

// Params holds the hyperparameters passed to the trainer.
type Params struct {
	Epochs       int
	ImageSize    int
	Batch        int
	Patience     int
	LR0          float64
	LRF          float64
	WarmupEpochs int
	Freeze       int
	Device       string
	RunName      string
}

// ParamsFromConfig copies the train section of the configuration.
func ParamsFromConfig(train config.Train) Params {
	return Params{
		Epochs:       train.Epochs,
		ImageSize:    train.ImageSize,
		Batch:        train.Batch,
		Patience:     train.Patience,
		LR0:          train.LR0,
		LRF:          train.LRF,
		WarmupEpochs: train.WarmupEpochs,
		Freeze:       train.Freeze,
		Device:       train.Device,
		RunName:      train.RunName,
	}
}

// ExportParams holds the options for converting trained weights.
type ExportParams struct {
	Format    string
	ImageSize int
	Simplify  bool
	Dynamic   bool
	Opset     int
}

// ExportParamsFromConfig copies the export section of the configuration.
func ExportParamsFromConfig(export config.Export) ExportParams {
	return ExportParams{
		Format:    export.Format,
		ImageSize: export.ImageSize,
		Simplify:  export.Simplify,
		Dynamic:   export.Dynamic,
		Opset:     export.Opset,
	}
}

// Request describes one training run.
type Request struct {
	BaseModel string
	DataPath  string
	// ProjectDir receives <RunName>/weights.
	ProjectDir string
	Params     Params
}

// ExportRequest describes one export.
type ExportRequest struct {
	Weights string
	Params  ExportParams
}

// TrainArgs builds the trainer command line for req.
func TrainArgs(req Request) []string {
	p := req.Params
	return []string{
		"detect", "train",
		kv("model", req.BaseModel),
		kv("data", req.DataPath),
		kv("epochs", strconv.Itoa(p.Epochs)),
		kv("imgsz", strconv.Itoa(p.ImageSize)),
		kv("batch", strconv.Itoa(p.Batch)),
		kv("patience", strconv.Itoa(p.Patience)),
		kv("lr0", formatFloat(p.LR0)),
		kv("lrf", formatFloat(p.LRF)),
		kv("warmup_epochs", strconv.Itoa(p.WarmupEpochs)),
		kv("freeze", strconv.Itoa(p.Freeze)),
		kv("project", req.ProjectDir),
		kv("name", p.RunName),
		kv("exist_ok", pyBool(true)),
		kv("device", p.Device),
		kv("verbose", pyBool(true)),
	}
}

// ExportArgs builds the export command line for req.
func ExportArgs(req ExportRequest) []string {
	p := req.Params
	return []string{
		"export",
		kv("model", req.Weights),
		kv("format", p.Format),
		kv("imgsz", strconv.Itoa(p.ImageSize)),
		kv("simplify", pyBool(p.Simplify)),
		kv("dynamic", pyBool(p.Dynamic)),
		kv("opset", strconv.Itoa(p.Opset)),
	}
}

func kv(key, value string) string {
	return key + "=" + value
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func pyBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}
