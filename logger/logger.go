package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmrecipe/common"
)

// Log is the global logger instance of XMLog.
var Log *XMLog

// XMLog wraps logrus.Logger with pipeline-aware helpers.
type XMLog struct {
	*logrus.Logger
}

var defaultFieldsOrder = []string{
	common.RunID, common.PipelineName, common.StepName, common.URLName,
}

func init() {
	Log = &XMLog{Logger: newConsoleLogger(logrus.InfoLevel, false, os.Stdout)}
}

// InitGlobalLogger replaces the global Log. With a non-empty outputPath all
// levels go to a daily-rotated app.log under that directory and the console
// stays quiet.
func InitGlobalLogger(outputPath string, verbose bool, defaultLevel logrus.Level) error {
	l, err := NewXMLog(outputPath, verbose, defaultLevel)
	if err != nil {
		return err
	}
	Log = l
	return nil
}

// NewXMLog creates a new instance of XMLog.
func NewXMLog(outputPath string, verbose bool, defaultLevel logrus.Level) (*XMLog, error) {
	level := defaultLevel
	if verbose {
		level = logrus.DebugLevel
	}
	if outputPath == "" {
		return &XMLog{Logger: newConsoleLogger(level, verbose, os.Stdout)}, nil
	}

	if err := os.MkdirAll(outputPath, common.FileMode0755); err != nil {
		return nil, fmt.Errorf("failed to create log output directory %s: %w", outputPath, err)
	}
	logFilePath := filepath.Join(outputPath, "app.log")
	writer, err := rotatelogs.New(
		logFilePath+".%Y%m%d",
		rotatelogs.WithLinkName(logFilePath),
		rotatelogs.WithMaxAge(7*24*time.Hour),
		rotatelogs.WithRotationTime(24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize rotatelogs for %s: %w", logFilePath, err)
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetReportCaller(true)

	fileFormatter := &Formatter{
		TimestampFormat:        "2006-01-02 15:04:05.000 MST",
		NoColors:               true,
		DisplayLevelName:       displayMode(verbose),
		FieldsDisplayWithOrder: defaultFieldsOrder,
		FieldSeparator:         " | ",
		Prettyfier:             JSONPrettyfier,
		CustomCallerFormatter: func(frame *runtime.Frame) string {
			return fmt.Sprintf(" [%s:%d %s]", filepath.Base(frame.File), frame.Line, filepath.Base(frame.Function))
		},
	}
	logger.SetFormatter(fileFormatter)

	writers := lfshook.WriterMap{}
	for _, lvl := range logrus.AllLevels {
		if logger.IsLevelEnabled(lvl) {
			writers[lvl] = writer
		}
	}
	logger.Hooks.Add(lfshook.NewHook(writers, fileFormatter))
	// The hook owns the file; without this every entry is printed twice.
	logger.SetOutput(io.Discard)

	return &XMLog{Logger: logger}, nil
}

func newConsoleLogger(level logrus.Level, verbose bool, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&Formatter{
		TimestampFormat:        "15:04:05",
		DisplayLevelName:       displayMode(verbose),
		DisableCaller:          true,
		FieldsDisplayWithOrder: defaultFieldsOrder,
		MaxFieldValueLength:    80,
	})
	logger.SetOutput(out)
	return logger
}

func displayMode(verbose bool) LevelNameDisplayMode {
	if verbose {
		return ShowAll
	}
	return ShowAboveWarn
}

// ForStep returns an entry scoped to one step execution for one input.
func (xl *XMLog) ForStep(stepName, url string) *logrus.Entry {
	return xl.WithFields(logrus.Fields{common.StepName: stepName, common.URLName: url})
}

// ForRun returns an entry scoped to a batch run.
func (xl *XMLog) ForRun(runID string) *logrus.Entry {
	return xl.WithFields(logrus.Fields{common.RunID: runID, common.PipelineName: common.AppName})
}

func (xl *XMLog) logWithStandardFields(level logrus.Level, fixedFields logrus.Fields, message string, dynamicFields ...logrus.Fields) {
	entry := xl.Logger.WithFields(fixedFields)
	if len(dynamicFields) > 0 && dynamicFields[0] != nil {
		entry = entry.WithFields(dynamicFields[0])
	}
	entry.Log(level, message)
}

func (xl *XMLog) logfWithStandardFields(level logrus.Level, fixedFields logrus.Fields, format string, args []interface{}) {
	xl.Logger.WithFields(fixedFields).Logf(level, format, args...)
}

func withErr(fields logrus.Fields, err error) logrus.Fields {
	if err != nil {
		fields[logrus.ErrorKey] = err
	}
	return fields
}

// --- Pipeline Context Logging ---
func (xl *XMLog) DebugPipeline(pipelineName string, message string, dynamicFields ...logrus.Fields) {
	xl.logWithStandardFields(logrus.DebugLevel, logrus.Fields{common.PipelineName: pipelineName}, message, dynamicFields...)
}
func (xl *XMLog) InfoPipeline(pipelineName string, message string, dynamicFields ...logrus.Fields) {
	xl.logWithStandardFields(logrus.InfoLevel, logrus.Fields{common.PipelineName: pipelineName}, message, dynamicFields...)
}
func (xl *XMLog) InfofPipeline(pipelineName string, format string, args ...interface{}) {
	xl.logfWithStandardFields(logrus.InfoLevel, logrus.Fields{common.PipelineName: pipelineName}, format, args)
}
func (xl *XMLog) WarnfPipeline(pipelineName string, format string, args ...interface{}) {
	xl.logfWithStandardFields(logrus.WarnLevel, logrus.Fields{common.PipelineName: pipelineName}, format, args)
}
func (xl *XMLog) ErrorPipeline(pipelineName string, err error, message string, dynamicFields ...logrus.Fields) {
	xl.logWithStandardFields(logrus.ErrorLevel, withErr(logrus.Fields{common.PipelineName: pipelineName}, err), message, dynamicFields...)
}

// --- Step Context Logging ---
func (xl *XMLog) ErrorfStep(stepName string, err error, format string, args ...interface{}) {
	xl.logfWithStandardFields(logrus.ErrorLevel, withErr(logrus.Fields{common.StepName: stepName}, err), format, args)
}

// --- URL Context Logging ---
func (xl *XMLog) DebugfURL(url string, format string, args ...interface{}) {
	xl.logfWithStandardFields(logrus.DebugLevel, logrus.Fields{common.URLName: url}, format, args)
}
func (xl *XMLog) InfoURL(url string, message string, dynamicFields ...logrus.Fields) {
	xl.logWithStandardFields(logrus.InfoLevel, logrus.Fields{common.URLName: url}, message, dynamicFields...)
}
func (xl *XMLog) WarnfURL(url string, format string, args ...interface{}) {
	xl.logfWithStandardFields(logrus.WarnLevel, logrus.Fields{common.URLName: url}, format, args)
}
func (xl *XMLog) ErrorURL(url string, err error, message string, dynamicFields ...logrus.Fields) {
	xl.logWithStandardFields(logrus.ErrorLevel, withErr(logrus.Fields{common.URLName: url}, err), message, dynamicFields...)
}
