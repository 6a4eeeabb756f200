package trainer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"visiontune/internal/config"
	"visiontune/internal/fileutil"
	"visiontune/internal/logging"
	"visiontune/internal/services"
)

var commandContext = exec.CommandContext

const tailLines = 20

// Result describes a finished training run.
type Result struct {
	RunDir      string
	WeightsPath string
	LastEpoch   Progress
}

// Client defines the training behaviour used by the pipeline.
type Client interface {
	Train(ctx context.Context, req Request, progress func(Progress)) (Result, error)
	Export(ctx context.Context, req ExportRequest) (string, error)
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithLogger attaches a logger for trainer output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *CLI) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// CLI wraps the yolo command-line tool.
type CLI struct {
	binary string
	logger *slog.Logger
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "yolo"}
	for _, opt := range opts {
		opt(cli)
	}
	cli.logger = logging.NewComponentLogger(cli.logger, "trainer")
	return cli
}

// NewFromConfig constructs a CLI client for the configured trainer binary.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *CLI {
	return NewCLI(WithBinary(cfg.TrainerBinary()), WithLogger(logger))
}

// Binary returns the executable the client invokes.
func (c *CLI) Binary() string {
	return c.binary
}

// WeightsPath is where the trainer leaves the best checkpoint for req.
func WeightsPath(req Request) string {
	return filepath.Join(req.ProjectDir, req.Params.RunName, "weights", "best.pt")
}

// ExportPath is where the trainer leaves the exported model for req.
func ExportPath(req ExportRequest) string {
	ext, ok := config.ExportExtensions[req.Params.Format]
	if !ok {
		ext = "." + req.Params.Format
	}
	return strings.TrimSuffix(req.Weights, filepath.Ext(req.Weights)) + ext
}

// Train runs the trainer and returns the best checkpoint. progress is called
// once per epoch.
func (c *CLI) Train(ctx context.Context, req Request, progress func(Progress)) (Result, error) {
	if strings.TrimSpace(req.BaseModel) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "trainer", "train", "base model required", nil)
	}
	if strings.TrimSpace(req.DataPath) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "trainer", "train", "dataset manifest required", nil)
	}
	if strings.TrimSpace(req.ProjectDir) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "trainer", "train", "project directory required", nil)
	}
	if strings.TrimSpace(req.Params.RunName) == "" {
		return Result{}, services.Wrap(services.ErrConfiguration, "trainer", "train", "train.run_name is empty", nil)
	}

	result := Result{
		RunDir:      filepath.Join(req.ProjectDir, req.Params.RunName),
		WeightsPath: WeightsPath(req),
	}
	c.logger.Info("starting training",
		logging.String("base_model", req.BaseModel),
		logging.String("data", req.DataPath),
		logging.Int(logging.FieldEpochTotal, req.Params.Epochs),
		logging.String("device", req.Params.Device),
	)

	err := c.run(ctx, TrainArgs(req), func(line string) {
		p, ok := ParseEpoch(line)
		if !ok || p == result.LastEpoch {
			return
		}
		result.LastEpoch = p
		if progress != nil {
			progress(p)
		}
	})
	if err != nil {
		return result, services.Wrap(services.ErrExternalTool, "trainer", "train", "training failed", err)
	}
	if !fileutil.Exists(result.WeightsPath) {
		return result, services.Wrap(services.ErrExternalTool, "trainer", "train", "training finished without best weights at "+result.WeightsPath, nil)
	}
	c.logger.Info("training complete", logging.String(logging.FieldPath, result.WeightsPath))
	return result, nil
}

// Export converts req.Weights and returns the path of the exported model.
func (c *CLI) Export(ctx context.Context, req ExportRequest) (string, error) {
	if strings.TrimSpace(req.Weights) == "" {
		return "", services.Wrap(services.ErrValidation, "trainer", "export", "weights path required", nil)
	}
	if _, err := os.Stat(req.Weights); err != nil {
		return "", services.Wrap(services.ErrNotFound, "trainer", "export", "weights unavailable", err)
	}

	c.logger.Info("exporting model",
		logging.String(logging.FieldPath, req.Weights),
		logging.String("format", req.Params.Format),
	)
	if err := c.run(ctx, ExportArgs(req), nil); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "trainer", "export", "export failed", err)
	}
	out := ExportPath(req)
	if !fileutil.Exists(out) {
		return "", services.Wrap(services.ErrExternalTool, "trainer", "export", "export finished without "+out, nil)
	}
	c.logger.Info("model exported",
		logging.String(logging.FieldPath, out),
		logging.String("deployment_hint", fmt.Sprintf("copy %s into the detector's models directory", filepath.Base(out))),
	)
	return out, nil
}

// run starts the binary, streams combined output line by line to onLine and
// the debug log, and wraps a failed exit with the tail of the output.
func (c *CLI) run(ctx context.Context, args []string, onLine func(string)) error {
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout
	c.logger.Debug("running trainer command", logging.String("command", c.binary+" "+strings.Join(args, " ")))
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", c.binary, err)
	}

	output := &tail{n: tailLines}
	scanner := newLineScanner(make([]byte, 0, 64*1024), stdout)
	for scanner.Scan() {
		line := scanner.Text()
		output.add(line)
		if strings.TrimSpace(line) != "" {
			c.logger.Debug("trainer output", logging.String("line", line))
		}
		if onLine != nil {
			onLine(line)
		}
	}
	scanErr := scanner.Err()
	if scanErr != nil {
		_, _ = io.Copy(io.Discard, stdout)
	}

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if detail := output.String(); detail != "" {
			return fmt.Errorf("%s: %w\n%s", c.binary, err, detail)
		}
		return fmt.Errorf("%s: %w", c.binary, err)
	}
	if scanErr != nil {
		return fmt.Errorf("read %s output: %w", c.binary, scanErr)
	}
	return nil
}

var _ Client = (*CLI)(nil)
