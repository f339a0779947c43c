package libol

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"), "be the same.")
	assert.Equal(t, WARN, ParseLevel(" Warn "), "be the same.")
	assert.Equal(t, 25, ParseLevel("25"), "be the same.")
	assert.Equal(t, INFO, ParseLevel("loud"), "be the same.")
	assert.Equal(t, "NULL", LevelName(3), "be the same.")
}

func TestSubLoggerLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	level, std := Logger.Level, Logger.Std
	Logger.Std = log.New(buf, "", 0)
	defer func() {
		Logger.Level, Logger.Std = level, std
		Logger.FileName, Logger.FileLog = "", nil
	}()

	file := filepath.Join(t.TempDir(), "ipsecman.log")
	SetLogger(file, WARN)
	out := NewSubLogger("test")
	out.Info("hidden %d", 1)
	out.Warn("shown %d", 2)
	Error("root %s", "error")

	assert.Equal(t, "WARN|test|shown 2\nERROR|root|root error\n", buf.String(), "be the same.")
	data, err := os.ReadFile(file)
	assert.Nil(t, err, "notExist")
	assert.Contains(t, string(data), "WARN|test|shown 2", "be the same.")
	assert.NotContains(t, string(data), "hidden", "be the same.")
}
