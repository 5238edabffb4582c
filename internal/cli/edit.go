package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"pktedit/internal/config"
	"pktedit/internal/dualview"
	"pktedit/internal/editor"
	"pktedit/internal/logging"
	"pktedit/internal/truncate"
)

// outputFilePermissions is the file mode for written payloads.
const outputFilePermissions = 0644

// ErrNoInput is returned when no file is named and stdin is a terminal.
var ErrNoInput = errors.New("no input: name a file or pipe a payload on stdin")

type editFlags struct {
	charset string
	out     string
	all     bool
}

func runEdit(cmd *cobra.Command, flags *rootFlags, edit *editFlags, args []string) error {
	logger := logging.FromContext(cmd.Context())

	cfg, err := loadConfig(flags.configPath, edit.charset)
	if err != nil {
		return err
	}

	in := cmd.InOrStdin()
	stdin, _ := in.(*os.File)
	name, payload, fromStdin, err := readPayload(args, in, stdin)
	if err != nil {
		return err
	}
	logger.Info("payload read", logging.FieldPath, name, logging.FieldSize, len(payload))

	ctrl, err := dualview.New(controllerOptions(cfg, logger)...)
	if err != nil {
		return err
	}

	model := editor.NewModel(ctrl, cfg, editor.Options{
		Name:    name,
		Out:     edit.out,
		ShowAll: edit.all,
		Logger:  logger,
	})
	model.Load(payload)

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if fromStdin {
		// Keys come from the terminal, not from the consumed pipe.
		opts = append(opts, tea.WithInputTTY())
	}
	if _, err := tea.NewProgram(model, opts...).Run(); err != nil {
		return fmt.Errorf("running editor: %w", err)
	}

	if model.WriteOnExit() {
		return writeOutput(edit.out, ctrl.Bytes(), cmd.OutOrStdout())
	}
	return nil
}

func loadConfig(path, charsetName string) (*config.Config, error) {
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, err
	}
	if charsetName != "" {
		cfg.Editor.Charset = charsetName
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// controllerOptions maps the editor section of cfg onto controller options.
func controllerOptions(cfg *config.Config, logger *log.Logger) []dualview.Option {
	e := cfg.Editor
	return []dualview.Option{
		dualview.WithCharset(e.Charset),
		dualview.WithThresholds(e.Thresholds()),
		dualview.WithClassifier(truncate.ClassifierByName(e.Classifier)),
		dualview.WithSearchLimit(e.SearchLimit),
		dualview.WithUndoLimit(e.UndoLimit),
		dualview.WithLoadChunk(e.LoadChunk),
		dualview.WithLogger(logger),
	}
}

// readPayload reads the named file, or stdin when no file is named and stdin
// is not a terminal.
func readPayload(args []string, in io.Reader, stdin *os.File) (string, []byte, bool, error) {
	if len(args) > 0 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", nil, false, fmt.Errorf("read payload: %w", err)
		}
		return args[0], data, false, nil
	}

	if stdin != nil && (isatty.IsTerminal(stdin.Fd()) || isatty.IsCygwinTerminal(stdin.Fd())) {
		return "", nil, false, ErrNoInput
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", nil, false, fmt.Errorf("read stdin: %w", err)
	}
	return "", data, true, nil
}

func writeOutput(path string, data []byte, stdout io.Writer) error {
	if path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, outputFilePermissions); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
