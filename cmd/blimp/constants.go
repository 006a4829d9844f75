package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/srg/blimp/internal/lua"
	"golang.org/x/term"
)

// constantsCmd represents the constants command
var constantsCmd = &cobra.Command{
	Use:   "constants [prefix]",
	Short: "List the constants of the Lua 'ble' table",
	Long: `List every constant scripts can read from the global 'ble' table, e.g.
ble.CHARACTERISTIC_PROPERTIES_READ. An optional prefix filters the list:

  blimp constants CENTRAL_MANAGER_STATE`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConstants,
}

var constantsColor string

func init() {
	constantsCmd.Flags().StringVar(&constantsColor, "color", "auto", "Colorize output (auto, always, never)")
}

func runConstants(cmd *cobra.Command, args []string) error {
	var colored bool
	switch constantsColor {
	case "auto":
		colored = isTerminal(cmd.OutOrStdout())
	case "always":
		colored = true
	case "never":
	default:
		return fmt.Errorf("invalid color mode '%s': must be one of [auto always never]", constantsColor)
	}

	prefix := ""
	if len(args) == 1 {
		prefix = strings.ToUpper(args[0])
	}

	name := color.New(color.FgCyan)
	value := color.New(color.FgYellow)
	if colored {
		name.EnableColor()
		value.EnableColor()
	} else {
		name.DisableColor()
		value.DisableColor()
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	matched := 0
	for _, c := range lua.Constants() {
		if !strings.HasPrefix(c.Name, prefix) {
			continue
		}
		matched++
		fmt.Fprintf(tw, "%s\t%s\n", name.Sprint("ble."+c.Name), value.Sprint(formatConstant(c.Value)))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if matched == 0 {
		return fmt.Errorf("no constants match prefix %q", prefix)
	}
	return nil
}

func formatConstant(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprint(v)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
