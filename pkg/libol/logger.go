package libol

import (
	"fmt"
	"log"
	"os"
	"runtime/debug"
	"strings"
	"sync"
)

const (
	DEBUG = 10
	CMD   = 15
	EVENT = 16
	INFO  = 20
	WARN  = 30
	ERROR = 40
	FATAL = 99
)

var levels = map[int]string{
	DEBUG: "DEBUG",
	CMD:   "CMD",
	EVENT: "EVENT",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

// ParseLevel accepts a level name (debug, info, ...) or its number.
func ParseLevel(value string) int {
	name := strings.ToUpper(strings.TrimSpace(value))
	for level, str := range levels {
		if str == name {
			return level
		}
	}
	var level int
	if _, err := fmt.Sscanf(name, "%d", &level); err == nil && level > 0 {
		return level
	}
	return INFO
}

func LevelName(level int) string {
	if str, ok := levels[level]; ok {
		return str
	}
	return "NULL"
}

type logger struct {
	Level    int
	FileName string
	FileLog  *log.Logger
	Std      *log.Logger
	Lock     sync.Mutex
}

func (l *logger) Write(level int, format string, v ...interface{}) {
	if level < l.Level {
		return
	}
	str := LevelName(level)
	m := fmt.Sprintf(format, v...)

	l.Lock.Lock()
	defer l.Lock.Unlock()
	l.Std.Printf("%s|%s", str, m)
	if l.FileLog != nil {
		l.FileLog.Printf("%s|%s", str, m)
	}
}

var Logger = &logger{
	Level: INFO,
	Std:   log.New(os.Stderr, "", log.LstdFlags),
}

// SetLogger sets the level and, when file is not empty, mirrors every
// message into that file.
func SetLogger(file string, level int) {
	Logger.Level = level
	if file == "" || Logger.FileName == file {
		return
	}
	fp, err := OpenWrite(file)
	if err != nil {
		Warn("Logger.Init: %s", err)
		return
	}
	Logger.FileName = file
	Logger.FileLog = log.New(fp, "", log.LstdFlags)
}

type SubLogger struct {
	*logger
	Prefix string
}

func NewSubLogger(prefix string) *SubLogger {
	return &SubLogger{
		logger: Logger,
		Prefix: prefix,
	}
}

var rLogger = NewSubLogger("root")

func Catch(name string) {
	if err := recover(); err != nil {
		Fatal("%s|PANIC >>> %s <<<", name, err)
		Fatal("%s|STACK >>> %s <<<", name, debug.Stack())
	}
}

func Debug(format string, v ...interface{}) {
	rLogger.Debug(format, v...)
}

func Cmd(format string, v ...interface{}) {
	rLogger.Cmd(format, v...)
}

func Info(format string, v ...interface{}) {
	rLogger.Info(format, v...)
}

func Warn(format string, v ...interface{}) {
	rLogger.Warn(format, v...)
}

func Error(format string, v ...interface{}) {
	rLogger.Error(format, v...)
}

func Fatal(format string, v ...interface{}) {
	rLogger.Fatal(format, v...)
}

func (s *SubLogger) Has(level int) bool {
	return level >= s.Level
}

func (s *SubLogger) Fmt(format string) string {
	return s.Prefix + "|" + format
}

func (s *SubLogger) Debug(format string, v ...interface{}) {
	s.logger.Write(DEBUG, s.Fmt(format), v...)
}

func (s *SubLogger) Cmd(format string, v ...interface{}) {
	s.logger.Write(CMD, s.Fmt(format), v...)
}

func (s *SubLogger) Event(format string, v ...interface{}) {
	s.logger.Write(EVENT, s.Fmt(format), v...)
}

func (s *SubLogger) Info(format string, v ...interface{}) {
	s.logger.Write(INFO, s.Fmt(format), v...)
}

func (s *SubLogger) Warn(format string, v ...interface{}) {
	s.logger.Write(WARN, s.Fmt(format), v...)
}

func (s *SubLogger) Error(format string, v ...interface{}) {
	s.logger.Write(ERROR, s.Fmt(format), v...)
}

func (s *SubLogger) Fatal(format string, v ...interface{}) {
	s.logger.Write(FATAL, s.Fmt(format), v...)
}
