/*
Package console provides execution contexts for DOM security policies.

A policy reports denials and load failures to the execution context it is
bound to. This package offers contexts routing these messages to a schuko
tracer, to a zap logger, or into memory.

   policy := dsp.NewPolicy()
   policy.BindToExecutionContext(console.Zap(logger))

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package console

import (
	"sync"

	"github.com/npillmayer/dsp/dom/dsp"
	"github.com/npillmayer/schuko/tracing"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// --- Tracing ---------------------------------------------------------------

type tracingContext struct {
	key string
}

// Tracing returns an execution context writing console messages to the
// tracer with key 'dsp.console'.
func Tracing() dsp.ExecutionContext {
	return tracingContext{key: "dsp.console"}
}

func (c tracingContext) AddConsoleMessage(msg dsp.ConsoleMessage) {
	t := tracing.Select(c.key).P("source", msg.Source)
	switch msg.Level {
	case dsp.LevelError, dsp.LevelWarning:
		t.Errorf("%s", msg.Text)
	case dsp.LevelInfo:
		t.Infof("%s", msg.Text)
	default:
		t.Debugf("%s", msg.Text)
	}
}

// --- Zap -------------------------------------------------------------------

type zapContext struct {
	logger *zap.Logger
}

// Zap returns an execution context writing console messages to a zap logger.
// If logger is nil, zap's global logger is used.
func Zap(logger *zap.Logger) dsp.ExecutionContext {
	if logger == nil {
		logger = zap.L()
	}
	return zapContext{logger: logger.Named("dsp")}
}

func (c zapContext) AddConsoleMessage(msg dsp.ConsoleMessage) {
	if ce := c.logger.Check(zapLevel(msg.Level), msg.Text); ce != nil {
		ce.Write(zap.String("source", msg.Source))
	}
}

func zapLevel(l dsp.MessageLevel) zapcore.Level {
	switch l {
	case dsp.LevelVerbose:
		return zapcore.DebugLevel
	case dsp.LevelInfo:
		return zapcore.InfoLevel
	case dsp.LevelWarning:
		return zapcore.WarnLevel
	}
	return zapcore.ErrorLevel
}

// --- Recorder --------------------------------------------------------------

// Recorder is an execution context keeping console messages in memory.
// It is safe for concurrent use. The zero value is ready to use.
type Recorder struct {
	mu       sync.Mutex
	messages []dsp.ConsoleMessage
}

// AddConsoleMessage is part of interface dsp.ExecutionContext.
func (r *Recorder) AddConsoleMessage(msg dsp.ConsoleMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

// Messages returns a copy of all messages recorded so far.
func (r *Recorder) Messages() []dsp.ConsoleMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]dsp.ConsoleMessage(nil), r.messages...)
}

// Reset drops all recorded messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}

var _ dsp.ExecutionContext = &Recorder{}
