package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// New returns a logger that writes bare messages: info and debug go to out,
// warnings and errors go to errOut.
func New(out, errOut io.Writer, level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.Formatter = &MessageFormatter{}
	logger.Level = level
	// The hooks below do all of the writing.
	logger.Out = io.Discard

	logger.Hooks.Add(&WriterHook{
		Writer:    errOut,
		LogLevels: []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel},
	})
	logger.Hooks.Add(&WriterHook{
		Writer:    out,
		LogLevels: []logrus.Level{logrus.InfoLevel, logrus.DebugLevel, logrus.TraceLevel},
	})

	return logger
}

// MessageFormatter prints the entry message followed by a newline and drops all fields.
type MessageFormatter struct{}

func (f *MessageFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	return append([]byte(entry.Message), '\n'), nil
}

// WriterHook writes formatted entries of the given levels to Writer.
type WriterHook struct {
	Writer    io.Writer
	LogLevels []logrus.Level
}

// Levels returns the logrus levels that the hook should be fired for.
func (h *WriterHook) Levels() []logrus.Level {
	return h.LogLevels
}

// Fire writes the entry.
func (h *WriterHook) Fire(entry *logrus.Entry) error {
	line, err := entry.Logger.Formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.Writer.Write(line)
	return err
}
