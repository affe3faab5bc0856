package isolation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dop251/goja"
)

// runtime is a goja VM stripped of host access. It is owned by exactly one
// worker goroutine and never locked.
type runtime struct {
	vm      *goja.Runtime
	config  Config
	console []LogEntry
}

func newRuntime(config Config) (rt *runtime, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("create runtime: %v", r)
		}
	}()

	rt = &runtime{
		vm:     goja.New(),
		config: config,
	}
	if config.MaxCallStackSize > 0 {
		rt.vm.SetMaxCallStackSize(config.MaxCallStackSize)
	}
	if err := rt.setupGlobals(); err != nil {
		return nil, err
	}
	return rt, nil
}

// execute evaluates script, interrupting it once timeout or stop fires
func (r *runtime) execute(script string, timeout time.Duration, stop <-chan struct{}) (any, []LogEntry, error) {
	r.console = r.console[:0]

	finished := make(chan struct{})
	watcherDone := make(chan struct{})
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	go func() {
		defer close(watcherDone)
		select {
		case <-timer.C:
			r.vm.Interrupt(ErrTimeout)
		case <-stop:
			r.vm.Interrupt(ErrContextDisposed)
		case <-finished:
		}
	}()

	defer func() {
		close(finished)
		<-watcherDone
		r.vm.ClearInterrupt()
	}()

	val, err := r.vm.RunString(script)

	console := append([]LogEntry(nil), r.console...)
	if err != nil {
		return nil, console, interruptCause(err)
	}
	return export(val), console, nil
}

// interruptCause unwraps the sentinel passed to Interrupt
func interruptCause(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if cause, ok := interrupted.Value().(error); ok {
			return cause
		}
	}
	return err
}

func (r *runtime) setupGlobals() error {
	for _, name := range []string{"require", "process", "module", "exports", "fetch", "XMLHttpRequest", "WebSocket"} {
		if err := r.vm.Set(name, goja.Undefined()); err != nil {
			return err
		}
	}

	if r.config.EnableConsole {
		console := r.vm.NewObject()
		for _, level := range []string{"log", "info", "warn", "error"} {
			if err := console.Set(level, r.consoleFunc(level)); err != nil {
				return err
			}
		}
		if err := r.vm.Set("console", console); err != nil {
			return err
		}
	}

	// timers never fire inside the isolated context
	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	for _, name := range []string{"setTimeout", "setInterval", "clearTimeout", "clearInterval"} {
		if err := r.vm.Set(name, noop); err != nil {
			return err
		}
	}
	return nil
}

func (r *runtime) consoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		r.console = append(r.console, LogEntry{
			Level:   level,
			Message: strings.Join(parts, " "),
			Time:    time.Now(),
		})
		return goja.Undefined()
	}
}

// export copies a result out of the VM as plain data so nothing the
// runtime owns escapes to the caller.
func export(val goja.Value) any {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil
	}
	if _, ok := val.(*goja.Object); !ok {
		return val.Export()
	}
	if _, ok := goja.AssertFunction(val); ok {
		return val.String()
	}

	data, err := sonic.Marshal(val.Export())
	if err != nil {
		return val.String()
	}
	var out any
	if err := sonic.Unmarshal(data, &out); err != nil {
		return val.String()
	}
	return out
}
