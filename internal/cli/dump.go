package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"pktedit/internal/dualview"
	"pktedit/internal/hexpane"
	"pktedit/internal/logging"
)

type dumpFlags struct {
	charset string
	find    string
	text    bool
}

func newDumpCommand(root *rootFlags) *cobra.Command {
	flags := &dumpFlags{}

	cmd := &cobra.Command{
		Use:   "dump [file]",
		Short: "Print the hex and ASCII panes of a payload",
		Long: `Print a payload the way the editor shows it: offset, hex pane and
ASCII pane, 16 bytes per row. Large payloads are previewed with the same
thresholds as the editor.

Examples:
  pktedit dump request.bin
  pktedit dump --find "0D 0A" request.bin
  cat body.txt | pktedit dump --text --charset Shift_JIS`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(cmd, root, flags, args)
		},
	}

	cmd.Flags().StringVar(&flags.charset, "charset", "", "charset of the text view, or AUTO")
	cmd.Flags().StringVar(&flags.find, "find", "", "highlight hex pairs or text and list the matches")
	cmd.Flags().BoolVar(&flags.text, "text", false, "print the decoded text instead of the panes")

	return cmd
}

func runDump(cmd *cobra.Command, root *rootFlags, flags *dumpFlags, args []string) error {
	logger := logging.FromContext(cmd.Context())

	cfg, err := loadConfig(root.configPath, flags.charset)
	if err != nil {
		return err
	}

	in := cmd.InOrStdin()
	stdin, _ := in.(*os.File)
	_, payload, _, err := readPayload(args, in, stdin)
	if err != nil {
		return err
	}

	ctrl, err := dualview.New(controllerOptions(cfg, logger)...)
	if err != nil {
		return err
	}
	if err := ctrl.Load(payload); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flags.text {
		_, err := io.WriteString(out, ctrl.Text())
		return err
	}

	writeDump(out, ctrl.HexText(), ctrl.ASCIIText())

	if flags.find != "" {
		res := ctrl.Search(flags.find)
		fmt.Fprintf(out, "\n%s: %s\n", res.Query.Mode, res.Status())
		for _, o := range res.Occurrences {
			fmt.Fprintf(out, "  %08X-%08X\n", o.Start, o.End)
		}
	}
	if ctrl.Truncated() {
		d := ctrl.Decision()
		fmt.Fprintf(out, "\n(preview of %d of %d bytes)\n", d.PreviewLength, len(payload))
	}
	return nil
}

// writeDump prints the hex and ASCII panes side by side with an offset
// column.
func writeDump(w io.Writer, hexText, asciiText string) {
	if hexText == "" {
		return
	}
	hexLines := strings.Split(strings.TrimSuffix(hexText, "\n"), "\n")
	asciiLines := strings.Split(strings.TrimSuffix(asciiText, "\n"), "\n")
	for i, line := range hexLines {
		ascii := ""
		if i < len(asciiLines) {
			ascii = asciiLines[i]
		}
		fmt.Fprintf(w, "%08X  %-*s %s\n", i*hexpane.BytesPerRow, hexpane.HexLine-1, line, ascii)
	}
}
