package logrussink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/crimson-sun/launchpad/pkg/logger"
)

func newJSON(buf *bytes.Buffer, level logrus.Level) *Output {
	l := logrus.New()
	l.SetOutput(buf)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(level)
	return New(l)
}

func TestWriteTemplatesArgs(t *testing.T) {
	var buf bytes.Buffer
	out := newJSON(&buf, logrus.TraceLevel)

	rec := logger.Record{Severity: logger.Error, Tag: "db", Message: "query %s failed", Args: []any{"users"}, Cause: errors.New("eof")}
	if err := out.Write(context.Background(), rec); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if m["msg"] != "query users failed" {
		t.Errorf("msg = %v", m["msg"])
	}
	if m["level"] != "error" {
		t.Errorf("level = %v", m["level"])
	}
	if m["tag"] != "db" {
		t.Errorf("tag = %v", m["tag"])
	}
	if m["error"] != "eof" {
		t.Errorf("error = %v", m["error"])
	}
}

func TestFatalDoesNotExit(t *testing.T) {
	var buf bytes.Buffer
	out := newJSON(&buf, logrus.InfoLevel)
	exited := false
	out.log.ExitFunc = func(int) { exited = true }

	out.Write(context.Background(), logger.Record{Severity: logger.Fatal, Message: "what a terrible failure"})

	if exited {
		t.Fatal("Fatal record must not exit")
	}
	var m map[string]any
	json.Unmarshal(buf.Bytes(), &m)
	if m["level"] != "fatal" {
		t.Errorf("level = %v, want fatal", m["level"])
	}
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	out := newJSON(&buf, logrus.WarnLevel)

	out.Write(context.Background(), logger.Record{Severity: logger.Info, Message: "hidden"})
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %s", buf.String())
	}
}

func TestLevelMapping(t *testing.T) {
	want := []logrus.Level{logrus.TraceLevel, logrus.DebugLevel, logrus.InfoLevel, logrus.WarnLevel, logrus.ErrorLevel, logrus.FatalLevel}
	for i, sev := range logger.Severities() {
		if got := Level(sev); got != want[i] {
			t.Errorf("Level(%v) = %v, want %v", sev, got, want[i])
		}
	}
}

func TestPolicy(t *testing.T) {
	if p, _ := logger.PolicyOf(New(nil)); p != logger.TemplateArgs {
		t.Errorf("policy = %v, want template", p)
	}
}
