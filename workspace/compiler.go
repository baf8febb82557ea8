package workspace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/BaSui01/schemaflow/types"
)

// CompilerConfig configures resolution and invocation of the external
// schema compiler.
type CompilerConfig struct {
	// ToolDir is a locally installed compiler package directory holding a
	// manifest.yaml with a bin entry. Checked first when set.
	ToolDir string `yaml:"tool_dir" json:"tool_dir"`

	// Executable is the well-known compiler name probed on PATH.
	Executable string `yaml:"executable" json:"executable"`

	// RunnerCommand is the on-demand package-execution fallback, used
	// when neither the tool dir nor PATH yields the compiler.
	RunnerCommand []string `yaml:"runner_command" json:"runner_command"`

	// Timeout bounds one compiler invocation.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// DefaultCompilerConfig returns the default compiler configuration.
func DefaultCompilerConfig() CompilerConfig {
	return CompilerConfig{
		Executable:    "baml-cli",
		RunnerCommand: []string{"npx", "--yes", "@boundaryml/baml"},
		Timeout:       120 * time.Second,
	}
}

// toolManifest is the manifest.yaml shape inside an installed tool dir.
type toolManifest struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Bin     string `yaml:"bin"`
}

// Invoker resolves and runs the external compiler on a workspace.
type Invoker struct {
	cfg    CompilerConfig
	logger *zap.Logger
	stdout io.Writer
	stderr io.Writer
}

// NewInvoker creates a compiler invoker. Child output is forwarded to the
// process's own streams unless redirected with WithOutput.
func NewInvoker(cfg CompilerConfig, logger *zap.Logger) *Invoker {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultCompilerConfig()
	if cfg.Executable == "" {
		cfg.Executable = def.Executable
	}
	if cfg.RunnerCommand == nil {
		cfg.RunnerCommand = def.RunnerCommand
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Invoker{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "compiler")),
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// WithOutput redirects forwarded child output and returns the invoker.
func (inv *Invoker) WithOutput(stdout, stderr io.Writer) *Invoker {
	if stdout != nil {
		inv.stdout = stdout
	}
	if stderr != nil {
		inv.stderr = stderr
	}
	return inv
}

// Resolve finds the compiler through the ordered fallback chain: the
// installed tool manifest, then the well-known executable on PATH, then
// the package-execution helper.
func (inv *Invoker) Resolve() ([]string, error) {
	if inv.cfg.ToolDir != "" {
		if bin, ok := inv.resolveManifest(); ok {
			return []string{bin}, nil
		}
	}

	if path, err := exec.LookPath(inv.cfg.Executable); err == nil {
		return []string{path}, nil
	}

	if len(inv.cfg.RunnerCommand) > 0 {
		return append([]string(nil), inv.cfg.RunnerCommand...), nil
	}

	return nil, types.NewCompileError("no compiler executable could be resolved")
}

func (inv *Invoker) resolveManifest() (string, bool) {
	data, err := os.ReadFile(filepath.Join(inv.cfg.ToolDir, "manifest.yaml"))
	if err != nil {
		return "", false
	}
	var manifest toolManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil || manifest.Bin == "" {
		inv.logger.Warn("ignoring unreadable tool manifest",
			zap.String("tool_dir", inv.cfg.ToolDir),
			zap.Error(err))
		return "", false
	}
	bin := filepath.Join(inv.cfg.ToolDir, manifest.Bin)
	if _, err := os.Stat(bin); err != nil {
		return "", false
	}
	return bin, true
}

// Run invokes the resolved compiler with the generate subcommand against
// the workspace directory. Any spawn failure or non-zero exit is a
// CompileError; callers must not retry it.
func (inv *Invoker) Run(ctx context.Context, dir string) error {
	argv, err := inv.Resolve()
	if err != nil {
		return err
	}

	if inv.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inv.cfg.Timeout)
		defer cancel()
	}

	args := append(argv[1:], "generate", "--from", dir)
	cmd := exec.CommandContext(ctx, argv[0], args...)

	stderr := &lineFilter{dst: inv.stderr, drop: isBenignDiagnostic}
	cmd.Stdout = inv.stdout
	cmd.Stderr = stderr

	inv.logger.Info("invoking compiler",
		zap.String("bin", argv[0]),
		zap.String("workspace", dir))

	start := time.Now()
	runErr := cmd.Run()
	stderr.Flush()

	if runErr != nil {
		if ctx.Err() != nil {
			return types.NewCompileError("compiler invocation timed out").WithCause(ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return types.NewCompileError(
				fmt.Sprintf("compiler exited with status %d", exitErr.ExitCode())).WithCause(runErr)
		}
		return types.NewCompileError("compiler could not be started").WithCause(runErr)
	}

	inv.logger.Info("compiler finished",
		zap.String("workspace", dir),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// isBenignDiagnostic matches the one known-benign stderr line class the
// package-execution helper emits while resolving its own dependencies.
func isBenignDiagnostic(line string) bool {
	return strings.HasPrefix(line, "npm warn")
}

// lineFilter forwards writes line by line, dropping lines the predicate
// matches. Partial trailing lines are held until Flush.
type lineFilter struct {
	dst  io.Writer
	drop func(string) bool
	buf  bytes.Buffer
}

func (w *lineFilter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		i := bytes.IndexByte(w.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := w.buf.Next(i + 1)
		if !w.drop(string(line)) {
			if _, err := w.dst.Write(line); err != nil {
				return len(p), err
			}
		}
	}
	return len(p), nil
}

// Flush forwards any buffered partial line.
func (w *lineFilter) Flush() {
	if w.buf.Len() == 0 {
		return
	}
	line := w.buf.String()
	w.buf.Reset()
	if !w.drop(line) {
		io.WriteString(w.dst, line)
	}
}
