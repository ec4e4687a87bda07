package logger

import (
	"reflect"
	"testing"
)

func TestBuffer(t *testing.T) {
	l := NewBuffer()
	l.Info("hello %s", "world")
	func(x Logger) {
		x.Debug("foo bar")
	}(l)

	want := []string{
		"[info] hello world",
		"[debug] foo bar",
	}
	if !reflect.DeepEqual(l.Messages, want) {
		t.Fatalf("Messages = %v; want %v", l.Messages, want)
	}
}
