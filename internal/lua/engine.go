package lua

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aarzilli/golua/lua"
	"github.com/sirupsen/logrus"
	"github.com/srg/blimp/internal/ringchan"
)

// DefaultOutputCapacity is the number of output records kept when nobody drains them.
const DefaultOutputCapacity = 1024

// OutputRecord is one chunk of script output.
type OutputRecord struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"` // "stdout" or "stderr"
}

// ScriptError describes a failed script load or run.
type ScriptError struct {
	Type       string // "syntax", "runtime", "api"
	Message    string
	Line       int
	Source     string
	Underlying error
}

func (e *ScriptError) Error() string {
	var parts []string
	if e.Source != "" {
		parts = append(parts, "in "+e.Source)
	}
	if e.Line > 0 {
		parts = append(parts, fmt.Sprintf("line %d", e.Line))
	}

	prefix := "Lua error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("Lua %s error (%s)", e.Type, strings.Join(parts, ", "))
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *ScriptError) Unwrap() error {
	return e.Underlying
}

// Is matches another *ScriptError of the same Type.
func (e *ScriptError) Is(target error) bool {
	var t *ScriptError
	if errors.As(target, &t) {
		return e.Type == t.Type
	}
	return false
}

// Engine owns a Lua state and captures everything the script prints.
// All access to the state goes through DoWithState.
type Engine struct {
	stateMu sync.Mutex
	state   *lua.State
	logger  *logrus.Logger

	script     string
	scriptName string
	output     *ringchan.RingChannel[OutputRecord]
}

// NewEngine creates an engine whose output channel keeps at most outputCapacity
// undrained records, dropping the oldest.
func NewEngine(logger *logrus.Logger, outputCapacity int) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	if outputCapacity <= 0 {
		outputCapacity = DefaultOutputCapacity
	}

	e := &Engine{
		logger: logger,
		output: ringchan.New[OutputRecord](outputCapacity),
	}
	e.Reset()
	return e
}

// DoWithState runs fn with exclusive access to the Lua state.
// Returns nil without calling fn once the engine is closed.
func (e *Engine) DoWithState(fn func(L *lua.State) any) any {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	if e.state == nil {
		return nil
	}
	return fn(e.state)
}

// OutputChannel delivers captured print output and script errors.
// It is closed by Close.
func (e *Engine) OutputChannel() <-chan OutputRecord {
	return e.output.C()
}

// OutputStats reports how many output records were sent, received and dropped.
func (e *Engine) OutputStats() ringchan.Stats {
	return e.output.Stats()
}

func (e *Engine) emit(source, content string) {
	if e.output.Send(OutputRecord{Content: content, Timestamp: time.Now(), Source: source}) {
		e.logger.Debug("Script output buffer full, oldest record dropped")
	}
}

// Stderr writes a line to the script's stderr stream. Callers must hold the
// state, i.e. run inside DoWithState.
func (e *Engine) Stderr(format string, args ...any) {
	e.emit("stderr", fmt.Sprintf(format, args...)+"\n")
}

// SafeWrapGoFunction turns panics other than Lua errors raised by fn into Lua
// errors naming the function, so a Go bug never unwinds through the interpreter.
func (e *Engine) SafeWrapGoFunction(name string, fn lua.LuaGoFunction) lua.LuaGoFunction {
	return func(L *lua.State) int {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			var luaErr *lua.LuaError
			if err, ok := r.(error); ok && errors.As(err, &luaErr) {
				panic(r)
			}
			e.logger.WithFields(logrus.Fields{
				"function": name,
				"panic":    r,
			}).Error("Go function panicked")
			L.RaiseError(fmt.Sprintf("%s: internal error: %v", name, r))
		}()
		return fn(L)
	}
}

func (e *Engine) registerPrintCapture(L *lua.State) {
	L.PushGoFunction(func(L *lua.State) int {
		top := L.GetTop()
		parts := make([]string, 0, top)

		for i := 1; i <= top; i++ {
			switch L.Type(i) {
			case lua.LUA_TNIL:
				parts = append(parts, "nil")
			case lua.LUA_TBOOLEAN:
				parts = append(parts, fmt.Sprint(L.ToBoolean(i)))
			case lua.LUA_TSTRING, lua.LUA_TNUMBER:
				parts = append(parts, L.ToString(i))
			default:
				L.GetGlobal("tostring")
				L.PushValue(i)
				L.Call(1, 1)
				parts = append(parts, L.ToString(-1))
				L.Pop(1)
			}
		}

		e.emit("stdout", strings.Join(parts, "\t")+"\n")
		return 0
	})
	L.SetGlobal("print")
}

// scriptError pops the error message on top of the stack and parses its
// "chunk:line: message" form.
func scriptError(L *lua.State, errType, source string) *ScriptError {
	msg := "unknown Lua error"
	if L.GetTop() > 0 {
		if L.IsString(-1) {
			msg = L.ToString(-1)
		} else {
			msg = "non-string error object"
		}
		L.Pop(1)
	}
	return parseScriptError(errType, source, msg)
}

func parseScriptError(errType, source, msg string) *ScriptError {
	se := &ScriptError{Type: errType, Message: msg, Source: source}
	parts := strings.SplitN(msg, ":", 3)
	if len(parts) == 3 {
		var line int
		if n, err := fmt.Sscanf(strings.TrimSpace(parts[1]), "%d", &line); err == nil && n == 1 {
			se.Line = line
			se.Message = strings.TrimSpace(parts[2])
		}
	}
	return se
}

// LoadScriptFile reads and syntax-checks a script file.
func (e *Engine) LoadScriptFile(filename string) error {
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read script %s: %w", filename, err)
	}
	return e.LoadScript(string(content), filename)
}

// LoadScript syntax-checks script and keeps it for Execute.
func (e *Engine) LoadScript(script, name string) error {
	if strings.TrimSpace(script) == "" {
		return &ScriptError{Type: "api", Message: "empty script", Source: name}
	}

	var loadErr error
	e.DoWithState(func(L *lua.State) any {
		if status := L.LoadString(script); status != 0 {
			se := scriptError(L, "syntax", name)
			e.Stderr("Lua syntax error: %s", se.Message)
			loadErr = se
			return nil
		}
		L.Pop(1)
		return nil
	})
	if loadErr != nil {
		return loadErr
	}

	e.script, e.scriptName = script, name
	return nil
}

// Execute runs the loaded script to completion. Runtime errors are also
// written to the stderr stream.
func (e *Engine) Execute() error {
	if e.script == "" {
		return &ScriptError{Type: "api", Message: "no script loaded"}
	}

	var execErr error
	res := e.DoWithState(func(L *lua.State) any {
		if status := L.LoadString(e.script); status != 0 {
			execErr = scriptError(L, "syntax", e.scriptName)
			return true
		}
		if err := L.Call(0, 0); err != nil {
			se := parseScriptError("runtime", e.scriptName, err.Error())
			se.Underlying = err
			execErr = se
			L.SetTop(0)
			e.Stderr("%s", se.Error())
		}
		return true
	})
	if res == nil {
		return &ScriptError{Type: "api", Message: "engine closed"}
	}
	return execErr
}

// Reset replaces the Lua state with a fresh one.
func (e *Engine) Reset() {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	if e.state != nil {
		e.state.Close()
	}
	e.state = lua.NewState()
	e.state.OpenLibs()
	e.registerPrintCapture(e.state)
}

// Close releases the Lua state and closes the output channel.
func (e *Engine) Close() {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	if e.state != nil {
		e.state.Close()
		e.state = nil
		e.output.Close()
	}
}

// GetGlobal returns a string, number or boolean global, or nil.
func (e *Engine) GetGlobal(name string) any {
	return e.DoWithState(func(L *lua.State) any {
		L.GetGlobal(name)
		defer L.Pop(1)

		switch L.Type(-1) {
		case lua.LUA_TSTRING:
			return L.ToString(-1)
		case lua.LUA_TNUMBER:
			return L.ToNumber(-1)
		case lua.LUA_TBOOLEAN:
			return L.ToBoolean(-1)
		default:
			return nil
		}
	})
}
