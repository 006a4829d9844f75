package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/srg/blimp"
	"github.com/srg/blimp/internal/lua"
	"github.com/srg/blimp/pkg/session"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [script.lua]",
	Short: "Run a Lua script against the Bluetooth stack",
	Long: `Run a Lua script that builds GATT services and drives a central manager
through the global 'ble' table. Without a script the built-in peripheral
example is run.

Script arguments are available in the global 'arg' table:

  blimp run monitor.lua --arg level=42 --arg scan=5

Output printed by the script goes to stdout, script errors to stderr. The
command returns once the script and every scan it started have finished;
with --keep it serves until Ctrl+C so event listeners keep firing.
Services registered by the script are withdrawn on exit.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

var (
	runArgs    map[string]string
	runKeep    bool
	runTimeout time.Duration
)

func init() {
	runCmd.Flags().StringToStringVarP(&runArgs, "arg", "a", nil, "Script argument as key=value (repeatable)")
	runCmd.Flags().BoolVarP(&runKeep, "keep", "k", false, "Keep running after the script until Ctrl+C")
	runCmd.Flags().DurationVarP(&runTimeout, "timeout", "t", 0, "Stop after this long (0 for no limit)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	script, name := blimp.DefaultPeripheralLuaScript, "peripheral.lua"
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read script: %w", err)
		}
		script, name = string(data), filepath.Base(args[0])
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	ctx, cancel := interruptContext(cmd.Context(), errOut, runTimeout)
	defer cancel()

	sess := openSession(cfg, logger)
	api := lua.NewAPI(ctx, sess, logger, cfg.OutputBuffer)
	api.SetCentralDefaults(session.CentralOptions{
		ShowPowerAlert:    cfg.ShowPowerAlert,
		RestoreIdentifier: cfg.RestoreIdentifier,
	})

	drainer, runErr := lua.RunScript(cmd.Context(), api, script, name, runArgs, out, errOut, logger)
	if runErr == nil {
		if runKeep {
			<-ctx.Done()
		} else if err := sess.WaitScans(ctx); err != nil {
			logger.WithError(err).Debug("Stopped waiting for scans")
		}
	}

	api.Close()
	drainer.Wait()

	if err := sess.Registry().RemoveAll(); err != nil {
		logger.WithError(err).Warn("Failed to withdraw script services")
	}
	if err := sess.Close(); err != nil {
		logger.WithError(err).Warn("Failed to close session")
	}
	return runErr
}
