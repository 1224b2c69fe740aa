package testutil

import (
	"runtime"
	"strings"
	"testing"
)

// CallWatcher records invocations of the mock methods that embed it. Calls
// are keyed by the caller's function name so assertions can use the bare
// method name.
type CallWatcher struct {
	functionCalls map[string][][]interface{}
}

func NewCallWatcher() *CallWatcher {
	return &CallWatcher{functionCalls: make(map[string][][]interface{})}
}

func (w *CallWatcher) AddCall(args ...interface{}) {
	pc := make([]uintptr, 15)
	n := runtime.Callers(2, pc)
	frames := runtime.CallersFrames(pc[:n])
	frame, _ := frames.Next()
	funcName := frame.Func.Name()

	calls := w.functionCalls[funcName]
	w.functionCalls[funcName] = append(calls, args)
}

func (w *CallWatcher) GetCall(funcName string) [][]interface{} {
	for name, calls := range w.functionCalls {
		if matches(name, funcName) {
			return calls
		}
	}
	return nil
}

func (w *CallWatcher) GetCallCount(funcName string) int {
	count := 0
	for name, calls := range w.functionCalls {
		if matches(name, funcName) {
			count += len(calls)
		}
	}
	return count
}

func (w *CallWatcher) VerifyCount(funcName string, want int, t *testing.T) {
	t.Helper()
	if got := w.GetCallCount(funcName); got != want {
		t.Errorf("unexpected call count for %s got=%d want=%d", funcName, got, want)
	}
}

// matches accepts either the fully qualified runtime name or the bare method
// name after the final dot.
func matches(recorded, funcName string) bool {
	if recorded == funcName {
		return true
	}
	short := recorded
	if i := strings.LastIndex(recorded, "."); i >= 0 {
		short = recorded[i+1:]
	}
	short = strings.TrimSuffix(short, "-fm")
	return short == funcName
}
