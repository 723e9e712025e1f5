package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/GrooveWJH/volition/internal/config"
)

func TestConsoleLogger(t *testing.T) {
	ResetForTest()
	defer ResetForTest()

	var buf bytes.Buffer
	Initialize(config.LoggerConfig{Level: "debug", Format: "console", ServiceName: "volition"}, zapcore.AddSync(&buf))
	GetLogger().Info("target reached", zap.Int("index", 3))
	Sync()

	out := buf.String()
	for _, want := range []string{"INFO", colorGreen, colorReset, "volition.", "target reached", `"index": 3`} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestJSONLogger(t *testing.T) {
	ResetForTest()
	defer ResetForTest()

	var buf bytes.Buffer
	Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "json"}, zapcore.AddSync(&buf))
	logger := GetLogger()
	logger.Debug("hidden")
	logger.Warn("sink failed", zap.String("sink", "udp"))
	Sync()

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not a single JSON entry: %v\n%s", err, buf.String())
	}
	checks := map[string]string{"level": "WARN", "logger": "json", "msg": "sink failed", "sink": "udp"}
	for k, want := range checks {
		if entry[k] != want {
			t.Errorf("%s = %v, want %s", k, entry[k], want)
		}
	}
}

func TestInitializeOnce(t *testing.T) {
	ResetForTest()
	defer ResetForTest()

	var first, second bytes.Buffer
	Initialize(config.LoggerConfig{Level: "info", Format: "json"}, zapcore.AddSync(&first))
	Initialize(config.LoggerConfig{Level: "info", Format: "json"}, zapcore.AddSync(&second))
	GetLogger().Info("hello")

	if first.Len() == 0 {
		t.Error("first writer should receive output")
	}
	if second.Len() != 0 {
		t.Error("second Initialize should be ignored")
	}
}

func TestBadLevelFallsBackToInfo(t *testing.T) {
	ResetForTest()
	defer ResetForTest()

	var buf bytes.Buffer
	Initialize(config.LoggerConfig{Level: "loud", Format: "json"}, zapcore.AddSync(&buf))
	logger := GetLogger()
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatal("debug should be filtered at info")
	}
	logger.Info("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Error("info should pass")
	}
}

func TestFileSink(t *testing.T) {
	ResetForTest()
	defer ResetForTest()

	path := filepath.Join(t.TempDir(), "volition.log")
	var buf bytes.Buffer
	Initialize(config.LoggerConfig{Level: "debug", Format: "console", LogFile: path, MaxSize: 1}, zapcore.AddSync(&buf))
	GetLogger().Error("plant diverged")
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	var entry map[string]interface{}
	line := strings.SplitN(strings.TrimSpace(string(data)), "\n", 2)[0]
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("file entry is not JSON: %v", err)
	}
	if entry["msg"] != "plant diverged" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if _, ok := entry["stacktrace"]; !ok {
		t.Error("error entries should carry a stacktrace")
	}
}

func TestGetLoggerFallback(t *testing.T) {
	ResetForTest()
	if GetLogger() == nil {
		t.Fatal("fallback logger is nil")
	}
}
