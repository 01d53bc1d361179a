package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults_Valid(t *testing.T) {
	if err := Validate(Defaults()); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `{
		"server": {"port": 8081},
		"messenger": {
			"appSecret": "sec",
			"validationToken": "tok",
			"pageAccessToken": "page"
		}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8081 {
		t.Errorf("expected port 8081, got %d", cfg.Server.Port)
	}
	if cfg.Messenger.AppSecret != "sec" {
		t.Errorf("expected sec, got %s", cfg.Messenger.AppSecret)
	}
	// untouched defaults survive
	if cfg.Quiz.OptionCount != 4 {
		t.Errorf("expected 4 quiz options, got %d", cfg.Quiz.OptionCount)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("PAGEBOT_TEST_SECRET", "s3cret")

	out := ExpandEnvVars(`{"appSecret":"${PAGEBOT_TEST_SECRET}"}`)
	if !strings.Contains(out, "s3cret") {
		t.Errorf("env var not expanded: %s", out)
	}

	out = ExpandEnvVars(`{"port":"${PAGEBOT_TEST_UNSET:-5000}"}`)
	if !strings.Contains(out, "5000") {
		t.Errorf("default not applied: %s", out)
	}
}

func TestEnvOverride_WinsOverFile(t *testing.T) {
	t.Setenv("MESSENGER_APP_SECRET", "from-env")
	path := writeConfig(t, `{"messenger": {"appSecret": "from-file", "validationToken": "t", "pageAccessToken": "p"}}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Messenger.AppSecret != "from-env" {
		t.Errorf("expected env override, got %s", cfg.Messenger.AppSecret)
	}
}

func TestValidate_Rejects(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Port = 70000
	cfg.Dispatch.Workers = 0
	cfg.Quiz.OptionCount = 1
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server.port", "dispatch.workers", "quiz.optionCount"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s: %v", want, err)
		}
	}
}

func TestRequireCredentials(t *testing.T) {
	cfg := Defaults()
	err := RequireCredentials(cfg)
	if err == nil {
		t.Fatal("expected error for missing credentials")
	}
	if !strings.Contains(err.Error(), "messenger.appSecret") {
		t.Errorf("error should name the missing field: %v", err)
	}

	cfg.Messenger.AppSecret = "a"
	cfg.Messenger.ValidationToken = "b"
	cfg.Messenger.PageAccessToken = "c"
	if err := RequireCredentials(cfg); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestGetSetByPath(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "server.port", "9000"); err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected 9000, got %d", cfg.Server.Port)
	}

	v, err := GetByPath(cfg, "server.port")
	if err != nil {
		t.Fatal(err)
	}
	if v.(float64) != 9000 {
		t.Errorf("expected 9000, got %v", v)
	}

	if _, err := GetByPath(cfg, "no.such.key"); err == nil {
		t.Error("expected error for unknown path")
	}
}

func TestSanitize_MasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Messenger.AppSecret = "verysecretvalue"
	out := Sanitize(cfg)
	if strings.Contains(out.Messenger.AppSecret, "verysecret") {
		t.Errorf("secret not masked: %s", out.Messenger.AppSecret)
	}
	if cfg.Messenger.AppSecret != "verysecretvalue" {
		t.Error("sanitize must not mutate the original")
	}
}
