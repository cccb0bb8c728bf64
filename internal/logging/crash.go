package logging

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"
)

// CrashReport is written to the crash directory when the input method
// panics. A panic while keys are grabbed leaves the seat without input, so
// the report is the only trace the user has.
type CrashReport struct {
	Timestamp  time.Time `json:"timestamp"`
	Version    string    `json:"version"`
	GOOS       string    `json:"goos"`
	GOARCH     string    `json:"goarch"`
	PanicValue string    `json:"panic_value"`
	StackTrace string    `json:"stack_trace"`
	Component  string    `json:"component,omitempty"`
}

// CrashDir returns the directory crash reports are written to.
func CrashDir() string {
	return filepath.Join(StateDir(), "crashes")
}

// CrashHandler turns a recovered panic into a logged error and a report.
type CrashHandler struct {
	Dir       string
	Version   string
	Component string
	Logger    *slog.Logger
}

// Recover is deferred at the top of a goroutine. It re-panics after the
// report is written so the process still exits.
func (h *CrashHandler) Recover() {
	r := recover()
	if r == nil {
		return
	}
	report := h.report(r)
	path, err := h.write(report)
	if h.Logger != nil {
		h.Logger.Error("panic", "value", report.PanicValue, "report", path, "write_error", err)
	}
	panic(r)
}

func (h *CrashHandler) report(value any) CrashReport {
	return CrashReport{
		Timestamp:  time.Now().UTC(),
		Version:    h.Version,
		GOOS:       runtime.GOOS,
		GOARCH:     runtime.GOARCH,
		PanicValue: fmt.Sprint(value),
		StackTrace: string(debug.Stack()),
		Component:  h.Component,
	}
}

func (h *CrashHandler) write(report CrashReport) (string, error) {
	dir := h.Dir
	if dir == "" {
		dir = CrashDir()
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("create crash directory: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal crash report: %w", err)
	}
	path := filepath.Join(dir, "crash-"+report.Timestamp.Format("20060102-150405")+".json")
	if err := os.WriteFile(path, data, 0640); err != nil {
		return "", fmt.Errorf("write crash report: %w", err)
	}
	return path, nil
}
