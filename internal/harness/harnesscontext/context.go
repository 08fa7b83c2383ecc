// Package harnesscontext extends Go's context.Context with a structured
// logger, so every phase call, probe, and controller task can log with
// consistent fields without threading a logger argument separately.
package harnesscontext

import (
	"context"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ConfigureLogging sets up logrus for command-line output. Called once from
// each binary's main before anything else logs.
func ConfigureLogging() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetOutput(os.Stdout)
}

// Context pairs a context.Context with a *logrus.Entry.
type Context struct {
	context.Context
	Log *logrus.Entry
}

// Background returns an empty Context with a default logger.
func Background() *Context {
	return &Context{
		Context: context.Background(),
		Log:     logrus.NewEntry(logrus.StandardLogger()),
	}
}

// New wraps an existing context.Context and logger.
func New(ctx context.Context, log *logrus.Entry) *Context {
	return &Context{Context: ctx, Log: log}
}

// WithCancel is analogous to context.WithCancel.
func WithCancel(parent *Context) (*Context, context.CancelFunc) {
	c, cancel := context.WithCancel(parent.Context)
	return &Context{Context: c, Log: parent.Log}, cancel
}

// WithDeadline is analogous to context.WithDeadline.
func WithDeadline(parent *Context, d time.Time) (*Context, context.CancelFunc) {
	c, cancel := context.WithDeadline(parent.Context, d)
	return &Context{Context: c, Log: parent.Log}, cancel
}

// WithTimeout is analogous to context.WithTimeout.
func WithTimeout(parent *Context, timeout time.Duration) (*Context, context.CancelFunc) {
	return WithDeadline(parent, time.Now().Add(timeout))
}

// WithField returns a copy of parent with key=val added to the logger.
func WithField(parent *Context, key string, val interface{}) *Context {
	return &Context{Context: parent.Context, Log: parent.Log.WithField(key, val)}
}

// WithFields returns a copy of parent with fields added to the logger.
func WithFields(parent *Context, fields logrus.Fields) *Context {
	return &Context{Context: parent.Context, Log: parent.Log.WithFields(fields)}
}

// ErrGroup returns an errgroup.Group together with a derived Context whose
// Done channel is cancelled as soon as one of the group's goroutines returns
// a non-nil error.
func ErrGroup(ctx *Context) (*errgroup.Group, *Context) {
	group, goCtx := errgroup.WithContext(ctx)
	return group, &Context{Context: goCtx, Log: ctx.Log}
}
