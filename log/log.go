// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/cihub/seelog"
)

// PrefixLen is the mandatory length of a command prefix.
const PrefixLen = 5

// maxLogSize is the size in bytes after which the log file is rolled.
const maxLogSize = 10 * 1024 * 1024

var logger = seelog.Disabled

const configTemplate = `
<seelog type="adaptive" mininterval="2000000" maxinterval="100000000"
	critmsgcount="500" minlevel="%s">
	<outputs formatid="all">
		%s
		%s
	</outputs>
	<formats>
		<format id="all" format="%%UTCDate %%UTCTime [%s] [%%LEV] %%Msg%%n" />
	</formats>
</seelog>`

// Init initializes the logging framework with the given logging level.
// If logDir is not empty, logging is done to a rolling logfile in that
// directory. If logToConsole is true, the console output is activated.
// cmdPrefix must be PrefixLen characters long and is printed in every line.
func Init(logLevel, cmdPrefix, logDir string, logToConsole bool) error {
	if _, found := seelog.LogLevelFromString(logLevel); !found {
		return fmt.Errorf("log: level '%s' is invalid", logLevel)
	}
	if len(cmdPrefix) != PrefixLen {
		return fmt.Errorf("log: len(cmdPrefix) must be %d: \"%s\"", PrefixLen,
			cmdPrefix)
	}
	var console, file string
	if logToConsole {
		console = "<console />"
	}
	if logDir != "" {
		name := filepath.Join(logDir, filepath.Base(os.Args[0])+".log")
		file = fmt.Sprintf("<rollingfile type=\"size\" filename=\"%s\" maxsize=\"%d\" maxrolls=\"3\" />",
			name, maxLogSize)
	}
	config := fmt.Sprintf(configTemplate, logLevel, console, file, cmdPrefix)
	newLogger, err := seelog.LoggerFromConfigAsString(config)
	if err != nil {
		return err
	}
	newLogger.SetAdditionalStackDepth(1)
	UseLogger(newLogger)
	Infof("%s started (built with %s %s for %s/%s)", os.Args[0],
		runtime.Compiler, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	return nil
}

// Flush flushes all pending messages of the logger.
func Flush() {
	Infof("%s stopping", os.Args[0])
	logger.Flush()
}

// UseLogger replaces the logger used by the package. The previous logger is
// flushed and closed, unless it is seelog.Disabled.
func UseLogger(newLogger seelog.LoggerInterface) {
	old := logger
	logger = newLogger
	if old != newLogger && old != seelog.Disabled {
		old.Close()
	}
}

// SetLogWriter logs everything (trace level and above) to writer.
func SetLogWriter(writer io.Writer) error {
	if writer == nil {
		return errors.New("log: nil writer")
	}
	newLogger, err := seelog.LoggerFromWriterWithMinLevel(writer, seelog.TraceLvl)
	if err != nil {
		return err
	}
	UseLogger(newLogger)
	return nil
}

// logErr logs a single error argument unchanged, so that callers can compare
// the returned value against sentinel errors.
func logErr(logFn func(v ...interface{}) error, v []interface{}) error {
	if len(v) == 1 {
		if err, ok := v[0].(error); ok {
			logFn(err)
			return err
		}
	}
	return logFn(v...)
}

// Critical logs with level Critical and returns the resulting error.
// If v is a single error, that error is returned.
func Critical(v ...interface{}) error {
	return logErr(logger.Critical, v)
}

// Criticalf logs with level Critical according to the format specifier and
// returns the resulting error.
func Criticalf(format string, params ...interface{}) error {
	return logger.Criticalf(format, params...)
}

// Error logs with level Error and returns the resulting error.
// If v is a single error, that error is returned.
func Error(v ...interface{}) error {
	return logErr(logger.Error, v)
}

// Errorf logs with level Error according to the format specifier and returns
// the resulting error.
func Errorf(format string, params ...interface{}) error {
	return logger.Errorf(format, params...)
}

// Warn logs with level Warn and returns the resulting error.
// If v is a single error, that error is returned.
func Warn(v ...interface{}) error {
	return logErr(logger.Warn, v)
}

// Warnf logs with level Warn according to the format specifier and returns
// the resulting error.
func Warnf(format string, params ...interface{}) error {
	return logger.Warnf(format, params...)
}

// Info logs with level Info.
func Info(v ...interface{}) {
	logger.Info(v...)
}

// Infof logs with level Info according to the format specifier.
func Infof(format string, params ...interface{}) {
	logger.Infof(format, params...)
}

// Debug logs with level Debug.
func Debug(v ...interface{}) {
	logger.Debug(v...)
}

// Debugf logs with level Debug according to the format specifier.
func Debugf(format string, params ...interface{}) {
	logger.Debugf(format, params...)
}

// Trace logs with level Trace.
func Trace(v ...interface{}) {
	logger.Trace(v...)
}

// Tracef logs with level Trace according to the format specifier.
func Tracef(format string, params ...interface{}) {
	logger.Tracef(format, params...)
}
