package catalog

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestLoad_EmptyPath(t *testing.T) {
	cat, err := Load("", testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if cat.Attachments["image"] == "" {
		t.Error("defaults should carry demo attachment URLs")
	}
	if len(cat.GenreOptions) != 3 {
		t.Errorf("expected 3 genre options, got %d", len(cat.GenreOptions))
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cat, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if cat.NotUnderstood != Default().NotUnderstood {
		t.Error("missing file should fall back to defaults")
	}
}

func TestLoad_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := "notUnderstood: pardon?\nquizQuestion: 2+2?\nquizAnswer: \"4\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cat, err := Load(path, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if cat.NotUnderstood != "pardon?" {
		t.Errorf("override not applied: %s", cat.NotUnderstood)
	}
	if cat.QuizAnswer != "4" {
		t.Errorf("override not applied: %s", cat.QuizAnswer)
	}
	// untouched fields keep defaults
	if cat.AttachmentAck != Default().AttachmentAck {
		t.Error("unset fields must keep defaults")
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte("{not yaml"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path, testLogger()); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestAnswerAck(t *testing.T) {
	cat := Default()
	if got := cat.AnswerAck("2"); got != "You choose answer : 2" {
		t.Errorf("unexpected ack: %s", got)
	}
}
