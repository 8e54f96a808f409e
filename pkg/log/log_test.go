package log

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogTestSuite struct {
	suite.Suite
}

func (s *LogTestSuite) TearDownTest() {
	s.Require().NoError(SetLevel("info"))
}

func (s *LogTestSuite) TestLevelFiltering() {
	cases := []struct {
		level   string
		want    zapcore.Level
		debug   bool
		info    bool
		warn    bool
		errored bool
	}{
		{"debug", zapcore.DebugLevel, true, true, true, true},
		{"info", zapcore.InfoLevel, false, true, true, true},
		{"warn", zapcore.WarnLevel, false, false, true, true},
		{"WARNING", zapcore.WarnLevel, false, false, true, true},
		{"error", zapcore.ErrorLevel, false, false, false, true},
		{"panic", zapcore.PanicLevel, false, false, false, false},
	}

	for _, tc := range cases {
		s.Require().NoError(SetLevel(tc.level), tc.level)
		s.Equal(tc.want, GetLevel(), tc.level)

		s.Equal(tc.debug, capture(Debug, "debug msg", "key", "value") != "", tc.level)
		s.Equal(tc.info, capture(Info, "info msg", "key", "value") != "", tc.level)
		s.Equal(tc.warn, capture(Warn, "warn msg", "key", "value") != "", tc.level)
		s.Equal(tc.errored, capture(Error, "error msg", "key", "value") != "", tc.level)
		s.Panics(func() { Panic("panic msg", "key", "value") })
	}
}

func (s *LogTestSuite) TestKeyValuesEncoded() {
	s.Require().NoError(SetLevel("info"))
	out := capture(Info, "cache hit", "key", "jobAnalysisCache_42")
	s.Contains(out, `"msg":"cache hit"`)
	s.Contains(out, `"key":"jobAnalysisCache_42"`)
	s.Contains(out, `"timestamp"`)
}

func (s *LogTestSuite) TestInvalidLevel() {
	assert.Error(s.T(), SetLevel("bogus"))
	assert.Equal(s.T(), "hello world", Clean("  Hello World\n"))
}

func capture(logFunc func(string, ...interface{}), msg string, kv ...interface{}) string {
	var buffer bytes.Buffer

	oldLogger := zap.S()

	writer := bufio.NewWriter(&buffer)

	zap.ReplaceGlobals(zap.New(
		zapcore.NewCore(
			zapcore.NewJSONEncoder(config()),
			zapcore.AddSync(writer),
			logLevel,
		),
	))

	logFunc(msg, kv...)
	if err := writer.Flush(); err != nil {
		panic(err)
	}

	zap.ReplaceGlobals(oldLogger.Desugar())

	return buffer.String()
}

func TestLogTestSuite(t *testing.T) {
	suite.Run(t, new(LogTestSuite))
}
