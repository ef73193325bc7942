// Package logger 提供统一的日志框架
package logger

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Level 日志级别
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

// Config 日志配置
type Config struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json/console
	Output     string `yaml:"output" json:"output"` // stdout/stderr/file
	FilePath   string `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	TimeFormat string `yaml:"time_format,omitempty" json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器
func Init(cfg Config) {
	once.Do(func() {
		level := parseLevel(cfg.Level)
		zerolog.SetGlobalLevel(level)

		var output io.Writer
		switch cfg.Output {
		case "stderr":
			output = os.Stderr
		case "file":
			if cfg.FilePath != "" {
				f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
				if err == nil {
					output = f
				} else {
					output = os.Stdout
				}
			} else {
				output = os.Stdout
			}
		default:
			output = os.Stdout
		}

		if cfg.Format == "console" {
			output = zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: cfg.TimeFormat,
			}
		}

		logger = zerolog.New(output).With().Timestamp().Logger()
	})
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get 获取日志器
func Get() *zerolog.Logger {
	if logger.GetLevel() == zerolog.Disabled {
		Init(DefaultConfig())
	}
	return &logger
}

// Debug 记录调试日志
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// Fatal 记录致命错误日志
func Fatal() *zerolog.Event {
	return Get().Fatal()
}

// WithError 添加错误信息
func WithError(err error) *zerolog.Event {
	return Get().Error().Err(err)
}

// SolveLogger 求解流程专用日志器
// 每次求解调用持有独立实例，生命周期随一次 build→solve→extract 结束
type SolveLogger struct {
	base *zerolog.Logger
}

// NewSolveLogger 创建求解日志器
func NewSolveLogger(jobID string) *SolveLogger {
	l := Get().With().Str("component", "roster").Str("job_id", jobID).Logger()
	return &SolveLogger{base: &l}
}

// Nop 创建丢弃所有输出的求解日志器（测试用）
func Nop() *SolveLogger {
	l := zerolog.Nop()
	return &SolveLogger{base: &l}
}

// Logger 返回底层日志器
func (l *SolveLogger) Logger() *zerolog.Logger {
	return l.base
}

// StartSolve 记录求解开始
func (l *SolveLogger) StartSolve(employees, slots int, timeLimit time.Duration) {
	l.base.Info().
		Int("employees", employees).
		Int("slots", slots).
		Dur("time_limit", timeLimit).
		Msg("开始构建排班模型")
}

// RuleSkipped 记录单条规则被跳过
func (l *SolveLogger) RuleSkipped(kind, reason string) {
	l.base.Warn().
		Str("rule", kind).
		Str("reason", reason).
		Msg("规则被跳过")
}

// ConstraintSkipped 记录预排约束因无匹配变量被跳过
func (l *SolveLogger) ConstraintSkipped(kind, date, employeeID string) {
	l.base.Warn().
		Str("constraint", kind).
		Str("date", date).
		Str("employee_id", employeeID).
		Msg("预排约束无匹配变量，已跳过")
}

// SolveComplete 记录求解完成
func (l *SolveLogger) SolveComplete(status string, assignments int, duration time.Duration) {
	l.base.Info().
		Str("status", status).
		Int("assignments", assignments).
		Dur("duration", duration).
		Msg("排班求解完成")
}
