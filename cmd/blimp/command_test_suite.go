//go:build test

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/pflag"
	"github.com/srg/blimp/internal/testutils"
)

// syncBuffer is a bytes.Buffer safe for the concurrent writers a command
// starts (output drainer, progress printer, logger).
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// CommandTestSuite extends MockBLEDeviceSuite with command testing utilities.
// Every command runs against the mocked go-ble device.
type CommandTestSuite struct {
	testutils.MockBLEDeviceSuite
}

// SetupTest resets every flag of rootCmd before the device factory is installed.
func (s *CommandTestSuite) SetupTest() {
	resetFlags()
	s.MockBLEDeviceSuite.SetupTest()
}

// resetFlags restores flag variables to their defaults and clears the Changed
// marks cobra keeps across Execute calls.
func resetFlags() {
	serveDuration, serveFormat = 0, "table"
	runArgs, runKeep, runTimeout = map[string]string{}, false, 0
	scanDuration, scanFormat, scanServices, scanAllowDuplicates = 10*time.Second, "table", nil, false
	constantsColor = "auto"

	unmark := func(f *pflag.Flag) { f.Changed = false }
	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, cmd := range rootCmd.Commands() {
		cmd.Flags().VisitAll(unmark)
		cmd.SilenceUsage = false
	}
}

// ExecuteCommand runs rootCmd with args and returns what the command wrote to
// stdout and stderr.
func (s *CommandTestSuite) ExecuteCommand(args ...string) (stdout, stderr string, err error) {
	var out, errOut syncBuffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	s.T().Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	_, err = rootCmd.ExecuteC()
	return out.String(), errOut.String(), err
}

// WriteFile writes content to a file in a per-test temp dir and returns its path.
func (s *CommandTestSuite) WriteFile(name, content string) string {
	path := filepath.Join(s.T().TempDir(), name)
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o644))
	return path
}
