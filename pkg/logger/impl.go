/*
 * Copyright 2025 ESPDeck Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// LoggerImpl implements the Logger interface without using global state.
type LoggerImpl struct {
	logger  zerolog.Logger
	closers []func() error
}

// NewLoggerImpl creates a new logger instance from config. If config is
// nil the environment-driven defaults are used.
func NewLoggerImpl(ctx context.Context, config *Config) (*LoggerImpl, error) {
	if config == nil {
		config = DefaultConfig()
	}

	output, closer, err := resolveOutput(config.Output)
	if err != nil {
		return nil, err
	}

	var closers []func() error
	if closer != nil {
		closers = append(closers, closer)
	}

	level := zerolog.InfoLevel

	if config.Debug {
		level = zerolog.DebugLevel
	} else if config.Level != "" {
		level, err = zerolog.ParseLevel(config.Level)
		if err != nil {
			return nil, err
		}
	}

	timeFormat := time.RFC3339
	if config.TimeFormat != "" {
		timeFormat = config.TimeFormat
	}

	if config.OTel.Enabled && config.OTel.Endpoint != "" {
		otelWriter, otelErr := NewOTelWriter(ctx, config.OTel)
		if otelErr != nil {
			return nil, otelErr
		}

		output = NewMultiWriter(output, otelWriter)
		closers = append(closers, func() error { return otelWriter.Shutdown(context.Background()) })
	}

	zerolog.TimeFieldFormat = timeFormat

	zlog := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &LoggerImpl{logger: zlog, closers: closers}, nil
}

// resolveOutput maps an output name to a writer. Anything that is not
// "stdout", "stderr", or empty is treated as a file path and opened in
// append mode; the second return value closes it.
func resolveOutput(output string) (io.Writer, func() error, error) {
	switch output {
	case "", "stderr":
		return os.Stderr, nil, nil
	case "stdout":
		return os.Stdout, nil, nil
	default:
		file, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, err
		}

		return file, file.Close, nil
	}
}

// Close flushes and releases resources owned by this logger instance.
func (l *LoggerImpl) Close() error {
	var firstErr error

	for _, closeFn := range l.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	l.closers = nil

	return firstErr
}

func (l *LoggerImpl) Trace() *zerolog.Event {
	return l.logger.Trace()
}

func (l *LoggerImpl) Debug() *zerolog.Event {
	return l.logger.Debug()
}

func (l *LoggerImpl) Info() *zerolog.Event {
	return l.logger.Info()
}

func (l *LoggerImpl) Warn() *zerolog.Event {
	return l.logger.Warn()
}

func (l *LoggerImpl) Error() *zerolog.Event {
	return l.logger.Error()
}

func (l *LoggerImpl) Fatal() *zerolog.Event {
	return l.logger.Fatal()
}

func (l *LoggerImpl) Panic() *zerolog.Event {
	return l.logger.Panic()
}

func (l *LoggerImpl) With() zerolog.Context {
	return l.logger.With()
}

func (l *LoggerImpl) WithComponent(component string) zerolog.Logger {
	return l.logger.With().Str("component", component).Logger()
}

func (l *LoggerImpl) WithFields(fields map[string]interface{}) zerolog.Logger {
	ctx := l.logger.With()
	for key, value := range fields {
		ctx = ctx.Interface(key, value)
	}

	return ctx.Logger()
}

func (l *LoggerImpl) SetLevel(level zerolog.Level) {
	l.logger = l.logger.Level(level)
}

func (l *LoggerImpl) SetDebug(debug bool) {
	if debug {
		l.SetLevel(zerolog.DebugLevel)
	} else {
		l.SetLevel(zerolog.InfoLevel)
	}
}

// CreateLogger creates a new logger instance with the provided
// configuration. This returns a logger that can be injected into
// components.
func CreateLogger(ctx context.Context, config *Config) (Logger, error) {
	return NewLoggerImpl(ctx, config)
}

// CreateComponentLogger creates a logger scoped to a named component.
func CreateComponentLogger(ctx context.Context, component string, config *Config) (Logger, error) {
	impl, err := NewLoggerImpl(ctx, config)
	if err != nil {
		return nil, err
	}

	componentLogger := &LoggerImpl{
		logger:  impl.logger.With().Str("component", component).Logger(),
		closers: impl.closers,
	}

	return componentLogger, nil
}

// ComponentLogger derives a logger scoped to a named subsystem from an
// existing one. Unlike CreateComponentLogger it opens no new outputs;
// the parent keeps ownership of file handles and the OTel pipeline.
func ComponentLogger(parent Logger, component string) Logger {
	return &scopedLogger{logger: parent.WithComponent(component)}
}

type scopedLogger struct {
	logger zerolog.Logger
}

func (s *scopedLogger) Trace() *zerolog.Event { return s.logger.Trace() }
func (s *scopedLogger) Debug() *zerolog.Event { return s.logger.Debug() }
func (s *scopedLogger) Info() *zerolog.Event  { return s.logger.Info() }
func (s *scopedLogger) Warn() *zerolog.Event  { return s.logger.Warn() }
func (s *scopedLogger) Error() *zerolog.Event { return s.logger.Error() }
func (s *scopedLogger) Fatal() *zerolog.Event { return s.logger.Fatal() }
func (s *scopedLogger) Panic() *zerolog.Event { return s.logger.Panic() }
func (s *scopedLogger) With() zerolog.Context { return s.logger.With() }

func (s *scopedLogger) WithComponent(component string) zerolog.Logger {
	return s.logger.With().Str("component", component).Logger()
}

func (s *scopedLogger) WithFields(fields map[string]interface{}) zerolog.Logger {
	ctx := s.logger.With()
	for key, value := range fields {
		ctx = ctx.Interface(key, value)
	}

	return ctx.Logger()
}

func (s *scopedLogger) SetLevel(level zerolog.Level) {
	s.logger = s.logger.Level(level)
}

func (s *scopedLogger) SetDebug(debug bool) {
	if debug {
		s.SetLevel(zerolog.DebugLevel)
	} else {
		s.SetLevel(zerolog.InfoLevel)
	}
}
