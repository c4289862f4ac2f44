/*
 * Copyright 2025 tomoncle.
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

package database

import (
	"fmt"
	"sync"

	"github.com/tomoncle/heron/utils"

	"github.com/sirupsen/logrus"
)

const loggerName = "DATABASE"

var (
	globalLogger   Logger
	globalLoggerMu sync.RWMutex
)

// Logger is the structured logging surface used by the connection layer and
// the entity services. Fields are alternating key/value pairs; a trailing key
// without a value is dropped.
type Logger interface {
	SetLevel(level string)
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// InitLogger installs a custom logger. It only takes effect before the first
// GetLogger call; later calls are ignored.
func InitLogger(log Logger) {
	if log == nil {
		return
	}
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	if globalLogger == nil {
		globalLogger = log
	}
}

func GetLogger() Logger {
	globalLoggerMu.RLock()
	l := globalLogger
	globalLoggerMu.RUnlock()
	if l != nil {
		return l
	}

	globalLoggerMu.Lock()
	if globalLogger == nil {
		globalLogger = &databaseLogger{logger: utils.NewLogger(loggerName)}
	}
	l = globalLogger
	globalLoggerMu.Unlock()
	return l
}

// databaseLogger feeds key/value pairs through logrus fields, so the shared
// formatter renders them and utils.SetLoggerLevel can tune the level by name.
type databaseLogger struct {
	logger *utils.Logger
}

func (l *databaseLogger) Debug(msg string, fields ...interface{}) {
	l.logger.WithFields(pairFields(fields...)).Debug(msg)
}

func (l *databaseLogger) Info(msg string, fields ...interface{}) {
	l.logger.WithFields(pairFields(fields...)).Info(msg)
}

func (l *databaseLogger) Warn(msg string, fields ...interface{}) {
	l.logger.WithFields(pairFields(fields...)).Warn(msg)
}

func (l *databaseLogger) Error(msg string, fields ...interface{}) {
	l.logger.WithFields(pairFields(fields...)).Error(msg)
}

func (l *databaseLogger) SetLevel(level string) {
	utils.SetLoggerLevel(loggerName, level)
}

func pairFields(fields ...interface{}) logrus.Fields {
	data := make(logrus.Fields, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		data[fmt.Sprint(fields[i])] = fields[i+1]
	}
	return data
}
