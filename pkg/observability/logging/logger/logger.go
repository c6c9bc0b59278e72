/*
 * Copyright 2018 The Trickster Authors
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

// Package logger provides a package-level logger for application-wide use,
// mirroring the logging.Logger functions at the package level. By default,
// the logger is a Console Logger @ INFO. Use SetLogger() to replace it.
package logger

import (
	"sync/atomic"

	"github.com/trickstercache/reelsync/pkg/observability/logging"
	"github.com/trickstercache/reelsync/pkg/observability/logging/level"
)

var current atomic.Pointer[logging.Logger]

func init() {
	SetLogger(logging.ConsoleLogger(level.Info))
}

// Logger returns the package-level logger
func Logger() logging.Logger {
	return *current.Load()
}

// SetLogger sets the package-level logger object
func SetLogger(l logging.Logger) {
	if l == nil {
		return
	}
	current.Store(&l)
}

func SetLogLevel(logLevel level.Level) {
	Logger().SetLogLevel(logLevel)
}

func Level() level.Level {
	return Logger().Level()
}

func Debug(event string, detail logging.Pairs) {
	Logger().Debug(event, detail)
}

func Info(event string, detail logging.Pairs) {
	Logger().Info(event, detail)
}

func Warn(event string, detail logging.Pairs) {
	Logger().Warn(event, detail)
}

func Error(event string, detail logging.Pairs) {
	Logger().Error(event, detail)
}

func Fatal(code int, event string, detail logging.Pairs) {
	Logger().Fatal(code, event, detail)
}

func InfoSynchronous(event string, detail logging.Pairs) {
	Logger().InfoSynchronous(event, detail)
}

func WarnSynchronous(event string, detail logging.Pairs) {
	Logger().WarnSynchronous(event, detail)
}

func ErrorSynchronous(event string, detail logging.Pairs) {
	Logger().ErrorSynchronous(event, detail)
}

func DebugOnce(key, event string, detail logging.Pairs) bool {
	return Logger().DebugOnce(key, event, detail)
}

func InfoOnce(key, event string, detail logging.Pairs) bool {
	return Logger().InfoOnce(key, event, detail)
}

func WarnOnce(key, event string, detail logging.Pairs) bool {
	return Logger().WarnOnce(key, event, detail)
}

func ErrorOnce(key, event string, detail logging.Pairs) bool {
	return Logger().ErrorOnce(key, event, detail)
}

func HasWarnedOnce(key string) bool {
	return Logger().HasWarnedOnce(key)
}
