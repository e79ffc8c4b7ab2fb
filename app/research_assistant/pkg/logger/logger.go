// Package logger 全局 logrus 日志
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log 全局日志实例，InitLogger 之前输出到 stderr
var Log = New(os.Stderr, logrus.InfoLevel)

// RunField 运行 ID 字段名
const RunField = "run"

// CustomFormatter 输出 [TIME] [LEVL] [file:line] msg k=v ...
type CustomFormatter struct {
	// TimeLayout 为空时使用 2006-01-02 15:04:05
	TimeLayout string
}

func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	layout := f.TimeLayout
	if layout == "" {
		layout = "2006-01-02 15:04:05"
	}

	var caller string
	if entry.HasCaller() {
		caller = fmt.Sprintf("%s:%d", filepath.Base(entry.Caller.File), entry.Caller.Line)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] [%s] %s", entry.Time.Format(layout), levelTag(entry.Level), caller, entry.Message)
	writeFields(&b, entry.Data)
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// levelTag 截成四个字母，INFO WARN ERRO DEBU
func levelTag(l logrus.Level) string {
	tag := strings.ToUpper(l.String())
	if len(tag) > 4 {
		return tag[:4]
	}
	return tag
}

func writeFields(b *strings.Builder, data logrus.Fields) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, " %s=%v", k, data[k])
	}
}

// New 创建带调用位置的 logger
func New(out io.Writer, level logrus.Level) *logrus.Logger {
	return &logrus.Logger{
		Out:          out,
		Formatter:    &CustomFormatter{},
		Hooks:        make(logrus.LevelHooks),
		Level:        level,
		ReportCaller: true,
		ExitFunc:     os.Exit,
	}
}

// InitLogger 替换全局 Log。console 为 nil 时写 stdout，filePath 非空时同时追加写入文件。
// 无法识别的级别按 info 处理。
func InitLogger(levelStr string, filePath string, console io.Writer) error {
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	if console == nil {
		console = os.Stdout
	}

	out := console
	if filePath != "" {
		file, err := openLogFile(filePath)
		if err != nil {
			return err
		}
		out = io.MultiWriter(console, file)
	}
	Log = New(out, level)
	return nil
}

func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// WithRun 带运行 ID 的日志条目
func WithRun(runID string) *logrus.Entry {
	return Log.WithField(RunField, runID)
}
