package test

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

// vrBinary is the path to the compiled vr binary, set by TestMain.
var vrBinary string

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(0)
	}

	tmpDir, err := os.MkdirTemp("", "vr-integration-build-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "create temp dir: %v\n", err)
		os.Exit(1)
	}

	vrBinary = filepath.Join(tmpDir, "vr")
	cmd := exec.Command("go", "build", "-o", vrBinary, "./cmd/vr")
	// Test working dir is test/, so go up one level to project root
	cmd.Dir = filepath.Join("..")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "build vr binary: %v\n", err)
		os.RemoveAll(tmpDir)
		os.Exit(1)
	}

	code := m.Run()
	os.RemoveAll(tmpDir)
	os.Exit(code)
}

// --- Fixtures ---

const fixtureCompany = `---
tags: [company, crm]
domain: acme.example
---
# Acme

Met at the trade show.
`

const fixturePerson = `---
tags: "#person"
email: jane@acme.example
company: Acme
title: CTO
---
`

const fixtureBroken = `---
tags: product
---
`

const fixtureUntagged = `# Groceries

- milk
`

// fakeXAI answers chat completions. Prompts naming the Broken product fail
// with a server error.
type fakeXAI struct {
	*httptest.Server
	calls atomic.Int32
}

func newFakeXAI(t *testing.T) *fakeXAI {
	t.Helper()
	f := &fakeXAI{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		if r.URL.Path != "/chat/completions" || r.Header.Get("Authorization") != "Bearer xai-integration-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) == 1 && strings.Contains(req.Messages[0].Content, "Broken") {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":"upstream"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"# Summary\nAcme makes anvils."}}]}`))
	}))
	t.Cleanup(f.Close)
	return f
}

// --- Helpers ---

func runVR(t *testing.T, env []string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := exec.Command(vrBinary, args...)
	cmd.Env = env
	var outBuf, errBuf strings.Builder
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err = cmd.Run()
	return outBuf.String(), errBuf.String(), err
}

func mustRunVR(t *testing.T, env []string, args ...string) string {
	t.Helper()
	stdout, stderr, err := runVR(t, env, args...)
	if err != nil {
		t.Fatalf("vr %s failed: %v\nstdout: %s\nstderr: %s", strings.Join(args, " "), err, stdout, stderr)
	}
	return stdout
}

func writeFixture(t *testing.T, dir, filename, content string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
	return path
}

func buildEnv(home, xdgConfigHome string) []string {
	return []string{
		"PATH=" + os.Getenv("PATH"),
		"HOME=" + home,
		"XDG_CONFIG_HOME=" + xdgConfigHome,
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func assertContains(t *testing.T, s, substr, msg string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("%s: expected %q to contain %q", msg, s, substr)
	}
}

func assertNotContains(t *testing.T, s, substr, msg string) {
	t.Helper()
	if strings.Contains(s, substr) {
		t.Errorf("%s: expected %q to NOT contain %q", msg, s, substr)
	}
}

func TestIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	vaultPath := t.TempDir()
	xdgConfigHome := t.TempDir()
	env := buildEnv(t.TempDir(), xdgConfigHome)
	api := newFakeXAI(t)
	cfgPath := filepath.Join(xdgConfigHome, "vault-research", "config.toml")

	acme := writeFixture(t, filepath.Join(vaultPath, "Companies"), "Acme.md", fixtureCompany)
	jane := writeFixture(t, filepath.Join(vaultPath, "People"), "Jane Doe.md", fixturePerson)
	broken := writeFixture(t, filepath.Join(vaultPath, "Products"), "Broken.md", fixtureBroken)
	plain := writeFixture(t, vaultPath, "Groceries.md", fixtureUntagged)

	t.Run("config_init", func(t *testing.T) {
		stdout := mustRunVR(t, env, "config", "init", vaultPath)
		assertContains(t, stdout, "wrote", "init stdout")
		if !fileExists(cfgPath) {
			t.Fatal("config.toml not created")
		}
		assertContains(t, readFile(t, cfgPath), "vault_path", "config content")

		again := mustRunVR(t, env, "config", "init", vaultPath)
		assertContains(t, again, "already exists", "second init")
	})

	t.Run("config_set", func(t *testing.T) {
		mustRunVR(t, env, "config", "set", "xai.base_url", api.URL)
		mustRunVR(t, env, "config", "set", "xai.api_key", "xai-integration-key")
		mustRunVR(t, env, "config", "set", "log.level", "error")

		_, stderr, err := runVR(t, env, "config", "set", "xai.search_mode", "sometimes")
		if err == nil {
			t.Error("invalid search mode accepted")
		}
		assertContains(t, stderr, "search_mode", "invalid set stderr")
	})

	t.Run("config_show", func(t *testing.T) {
		stdout := mustRunVR(t, env, "config", "show")
		assertContains(t, stdout, api.URL, "base url shown")
		assertContains(t, stdout, "xai-...-key", "api key masked")
		assertNotContains(t, stdout, "xai-integration-key", "api key leaked")
	})

	t.Run("check", func(t *testing.T) {
		stdout := mustRunVR(t, env, "check")
		assertContains(t, stdout, "vr check", "check header")
		assertContains(t, stdout, "0 failure", "check summary")
	})

	t.Run("research_dry_run", func(t *testing.T) {
		before := api.calls.Load()
		stdout := mustRunVR(t, env, "research", acme, "--dry-run")
		assertContains(t, stdout, "企業名: Acme\ndomain: acme.example\n", "dry-run prompt")
		if api.calls.Load() != before {
			t.Error("dry run called the API")
		}
		if readFile(t, acme) != fixtureCompany {
			t.Error("dry run modified the note")
		}
	})

	t.Run("research_company", func(t *testing.T) {
		_, stderr, err := runVR(t, env, "research", acme)
		if err != nil {
			t.Fatalf("research failed: %v\n%s", err, stderr)
		}
		want := fixtureCompany + "\n---\n# 企業情報 (xAIより):\n# Summary\nAcme makes anvils.\n"
		if got := readFile(t, acme); got != want {
			t.Errorf("note =\n%q\nwant\n%q", got, want)
		}
		assertContains(t, stderr, "appended 企業情報 to Acme", "success notice")
	})

	t.Run("research_person", func(t *testing.T) {
		mustRunVR(t, env, "research", jane)
		assertContains(t, readFile(t, jane), "# 人物情報 (xAIより):", "person section")
	})

	t.Run("research_api_error", func(t *testing.T) {
		_, stderr, err := runVR(t, env, "research", broken)
		if err == nil {
			t.Fatal("expected failure")
		}
		assertContains(t, stderr, "xAI API error", "error notice")
		assertContains(t, stderr, "500", "status in notice")
		if readFile(t, broken) != fixtureBroken {
			t.Error("failed run modified the note")
		}
	})

	t.Run("research_untagged", func(t *testing.T) {
		_, stderr, err := runVR(t, env, "research", plain)
		if err == nil {
			t.Fatal("expected failure")
		}
		assertContains(t, stderr, "#person", "tag notice")
		if readFile(t, plain) != fixtureUntagged {
			t.Error("untagged note modified")
		}
	})

	t.Run("history", func(t *testing.T) {
		stdout := mustRunVR(t, env, "history")
		assertContains(t, stdout, "Companies/Acme.md", "company run listed")
		assertContains(t, stdout, "People/Jane Doe.md", "person run listed")
		assertContains(t, stdout, "request failed: status 500", "failure listed")

		lines := strings.Split(strings.TrimSpace(mustRunVR(t, env, "history", "--limit", "1")), "\n")
		if len(lines) < 1 || len(lines) > 2 {
			t.Fatalf("--limit 1 printed %d lines:\n%s", len(lines), strings.Join(lines, "\n"))
		}
	})

	t.Run("history_raw", func(t *testing.T) {
		var id string
		for _, line := range strings.Split(mustRunVR(t, env, "history"), "\n") {
			if strings.Contains(line, "Companies/Acme.md") {
				fields := strings.Fields(line)
				id = fields[len(fields)-1]
			}
		}
		if id == "" {
			t.Fatal("no run id for Acme")
		}
		raw := mustRunVR(t, env, "history", "--raw", id)
		assertContains(t, raw, "Acme makes anvils.", "archived response")

		archived := filepath.Join(vaultPath, ".vault-research", "responses", id+".json.zst")
		byPath := mustRunVR(t, env, "history", "--raw", archived)
		if byPath != raw {
			t.Errorf("--raw by archive path = %q, want %q", byPath, raw)
		}
	})

	t.Run("help_and_version", func(t *testing.T) {
		assertContains(t, mustRunVR(t, env, "version"), "vault-research", "version")
		assertContains(t, mustRunVR(t, env, "research", "--help"), "Usage: vr research", "command help")
		assertContains(t, mustRunVR(t, env, "config", "set", "--help"), "Usage: vr config set", "sub-subcommand help")

		_, stderr, err := runVR(t, env, "bogus")
		if err == nil {
			t.Error("unknown command succeeded")
		}
		assertContains(t, stderr, "unknown command: bogus", "unknown command")
	})
}
