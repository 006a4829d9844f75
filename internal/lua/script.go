package lua

import (
	"context"
	"fmt"
	"io"

	"github.com/aarzilli/golua/lua"
	"github.com/sirupsen/logrus"
)

// SetArgs defines the global arg table the script reads its parameters from.
func (api *API) SetArgs(args map[string]string) {
	api.Engine.DoWithState(func(L *lua.State) any {
		L.CreateTable(0, len(args))
		for k, v := range args {
			setString(L, k, v)
		}
		L.SetGlobal("arg")
		return nil
	})
}

// RunScript loads script into api and runs it, copying its output to stdout and
// stderr as it is produced. Listeners the script installs keep running after
// RunScript returns; the returned drainer keeps writing their output until it
// is cancelled or ctx is done.
func RunScript(ctx context.Context, api *API, script, name string, args map[string]string, stdout, stderr io.Writer, logger *logrus.Logger) (*OutputDrainer, error) {
	drainer := NewOutputDrainer(ctx, api.OutputChannel(), logger, stdout, stderr)

	logger.WithFields(logrus.Fields{
		"script": name,
		"size":   len(script),
	}).Debug("Running Lua script")

	api.SetArgs(args)
	if err := api.LoadScript(script, name); err != nil {
		return drainer, fmt.Errorf("failed to load script: %w", err)
	}
	if err := api.Execute(); err != nil {
		return drainer, fmt.Errorf("failed to execute script: %w", err)
	}
	return drainer, nil
}
