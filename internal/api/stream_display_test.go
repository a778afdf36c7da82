package api

import (
	"bytes"
	"strings"
	"testing"
)

func TestStreamDisplayIndentsAnswer(t *testing.T) {
	var buf bytes.Buffer
	d := NewStreamDisplay(&buf)

	d.HandleText("첫 줄\n둘")
	d.HandleText("째 줄")
	d.Finish()

	want := "  첫 줄\n  둘째 줄\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
	if !d.Started() {
		t.Error("Started() = false after text")
	}
}

func TestStreamDisplayClearsActivity(t *testing.T) {
	var buf bytes.Buffer
	d := NewStreamDisplay(&buf)
	d.interactive = true

	d.Start("답변 생성 중...")
	if !strings.Contains(buf.String(), "답변 생성 중...") {
		t.Fatalf("activity line missing: %q", buf.String())
	}

	d.HandleText("안녕")
	out := buf.String()
	clear := strings.Index(out, "\r\033[K")
	if clear < 0 || clear > strings.Index(out, "안녕") {
		t.Errorf("activity line not cleared before the answer: %q", out)
	}
}

func TestStreamDisplayFinishWithoutText(t *testing.T) {
	var buf bytes.Buffer
	d := NewStreamDisplay(&buf)
	d.interactive = true

	d.Start("waiting")
	d.Finish()

	if d.Started() {
		t.Error("Started() = true without text")
	}
	if !strings.HasSuffix(buf.String(), "\r\033[K") {
		t.Errorf("activity line should be cleared, got %q", buf.String())
	}
}

func TestStreamDisplayIgnoresEmpty(t *testing.T) {
	var buf bytes.Buffer
	d := NewStreamDisplay(&buf)
	d.HandleText("")
	d.Finish()
	if buf.Len() != 0 || d.Started() {
		t.Errorf("empty text should print nothing, got %q", buf.String())
	}
}

func TestStreamDisplayPipedSkipsActivity(t *testing.T) {
	var buf bytes.Buffer
	d := NewStreamDisplay(&buf)

	d.Start("답변 생성 중...")
	d.HandleText("답")
	d.Finish()

	if got := buf.String(); got != "  답\n" {
		t.Errorf("output = %q, want only the answer", got)
	}
}
