package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pelletier/go-toml/v2"

	"mediatool/internal/config"
	"mediatool/internal/journal"
	"mediatool/internal/runlock"
	"mediatool/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	library    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries(nil))
	cfg.Logging.Level = "error"
	cfg.Update.VersionURL = ""
	cfg.Archive.FreeSpaceHeadroomBytes = 1
	base := testsupport.BaseDir(cfg)

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	library := filepath.Join(base, "library")
	if err := os.MkdirAll(library, 0o755); err != nil {
		t.Fatalf("mkdir library: %v", err)
	}
	return &cliTestEnv{cfg: cfg, configPath: configPath, library: library}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--config", e.configPath))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRenameCommandRenamesAndRecordsRun(t *testing.T) {
	env := setupCLITestEnv(t)
	src := filepath.Join(env.library, "The.Thing.1982.720p.BluRay.2CH.x265.HEVC-PSA.mkv")
	testsupport.WriteFile(t, src, 64)

	out, err := env.run(t, "rename", env.library)
	if err != nil {
		t.Fatalf("rename: %v\n%s", err, out)
	}
	if _, err := os.Stat(filepath.Join(env.library, "The Thing (1982).8.mkv")); err != nil {
		t.Fatalf("expected renamed file: %v", err)
	}
	if !strings.Contains(out, "Modified") {
		t.Fatalf("summary table missing from output:\n%s", out)
	}

	store, err := journal.Open(env.cfg.JournalPath())
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer store.Close()
	runs, err := store.ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].Action != "rename" || runs[0].Counts.Modified != 1 || !runs[0].Finished() {
		t.Fatalf("unexpected runs %+v", runs)
	}

	history, err := env.run(t, "history", "--run", runs[0].ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(history, "The Thing (1982).8.mkv") {
		t.Fatalf("history missing item:\n%s", history)
	}
}

func TestSimulatedRenameLeavesFiles(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteTree(t, env.library, map[string]int64{
		"Heat.1995.1080p.BluRay.x264-HET.mkv":        32,
		"extras/Alien.1979.720p.BluRay.x264-PSA.mkv": 16,
	})
	before := testsupport.ListTree(t, env.library)

	out, err := env.run(t, "rename", "--simulate", env.library)
	if err != nil {
		t.Fatalf("rename --simulate: %v\n%s", err, out)
	}
	if diff := cmp.Diff(before, testsupport.ListTree(t, env.library)); diff != "" {
		t.Fatalf("simulation changed the library (-before +after):\n%s", diff)
	}
	if !strings.Contains(out, "simulation") {
		t.Fatalf("expected simulation banner:\n%s", out)
	}
}

func TestActionRejectsMissingPath(t *testing.T) {
	env := setupCLITestEnv(t)
	_, err := env.run(t, "convert", filepath.Join(env.library, "missing"))
	if err == nil || !strings.Contains(err.Error(), "missing") {
		t.Fatalf("expected missing path error, got %v", err)
	}
	if _, statErr := os.Stat(env.cfg.JournalPath()); statErr == nil {
		t.Fatal("journal should not be created for a rejected path")
	}
}

func TestActionFailsWhileLocked(t *testing.T) {
	env := setupCLITestEnv(t)
	lock, err := runlock.Acquire(env.cfg.LockPath())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer lock.Release()

	_, err = env.run(t, "extract", env.library)
	if !errors.Is(err, runlock.ErrHeld) {
		t.Fatalf("expected ErrHeld, got %v", err)
	}
}

func TestHistoryWithoutRuns(t *testing.T) {
	env := setupCLITestEnv(t)
	out, err := env.run(t, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "No runs recorded") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(t.TempDir(), "mediatool.toml")

	if _, err := env.run(t, "config", "init", "--path", target); err != nil {
		t.Fatalf("config init: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil || string(data) != config.SampleConfig() {
		t.Fatalf("sample not written: %v", err)
	}
	if _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected refusal to overwrite")
	}
	if _, err := env.run(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestDoctorReportsManagedTools(t *testing.T) {
	env := setupCLITestEnv(t)
	out, err := env.run(t, "doctor", env.library)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	for _, want := range []string{"FFmpeg", "FFprobe", "(managed)", "Trash directory", "Free space"} {
		if !strings.Contains(out, want) {
			t.Fatalf("doctor output missing %q:\n%s", want, out)
		}
	}
}

func TestVersionUsesManagedFFmpeg(t *testing.T) {
	env := setupCLITestEnv(t)
	stubCfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries(map[string]string{
		"ffmpeg": "echo 'ffmpeg version 7.1-static Copyright (c) 2000-2024 the FFmpeg developers'\n",
	}))
	env.cfg.Tools.FFmpegDir = stubCfg.Tools.FFmpegDir
	writeTestConfig(t, env.configPath, env.cfg)

	out, err := env.run(t, "version")
	if err != nil {
		t.Fatalf("version: %v\n%s", err, out)
	}
	if !strings.Contains(out, "ffmpeg 7.1-static") {
		t.Fatalf("unexpected version output:\n%s", out)
	}
}

func TestRunSendsNotification(t *testing.T) {
	var titles []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		titles = append(titles, r.Header.Get("Title"))
	}))
	defer srv.Close()

	env := setupCLITestEnv(t)
	env.cfg.Notifications.NtfyTopic = srv.URL
	writeTestConfig(t, env.configPath, env.cfg)
	testsupport.WriteFile(t, filepath.Join(env.library, "Alien.1979.mkv"), 16)

	if out, err := env.run(t, "rename", env.library); err != nil {
		t.Fatalf("rename: %v\n%s", err, out)
	}
	if len(titles) != 1 || titles[0] != "mediatool - Run Complete" {
		t.Fatalf("unexpected notifications %v", titles)
	}
}

func TestLogsFiltersByRun(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.MkdirAll(env.cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := "INFO run completed run_id=aaa\nINFO run completed run_id=bbb\n"
	if err := os.WriteFile(env.cfg.LogPath(), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := env.run(t, "logs", "--run", "bbb")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.Contains(out, "aaa") || !strings.Contains(out, "run_id=bbb") {
		t.Fatalf("unexpected logs output:\n%s", out)
	}
}

func writeFFmpegStub(t *testing.T, dir, version string) {
	t.Helper()
	bin := filepath.Join(dir, "bin")
	if err := os.MkdirAll(bin, 0o755); err != nil {
		t.Fatal(err)
	}
	script := "#!/bin/sh\necho 'ffmpeg version " + version + " Copyright (c) 2000-2024 the FFmpeg developers'\n"
	if err := os.WriteFile(filepath.Join(bin, "ffmpeg"), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
}

func TestUpdateReadsVersionFromToolDir(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("version: 6.1\n"))
	}))
	defer srv.Close()

	env := setupCLITestEnv(t)
	env.cfg.Update.VersionURL = srv.URL
	writeTestConfig(t, env.configPath, env.cfg)
	writeFFmpegStub(t, env.cfg.Tools.FFmpegDir, "4.0")
	toolDir := filepath.Join(testsupport.BaseDir(env.cfg), "other-ffmpeg")
	writeFFmpegStub(t, toolDir, "6.1")

	out, err := env.run(t, "update", "--simulate", "--tool-dir", toolDir)
	if err != nil {
		t.Fatalf("update: %v\n%s", err, out)
	}
	if !strings.Contains(out, "ffmpeg 6.1 is up to date") {
		t.Fatalf("expected the tool dir install to be compared:\n%s", out)
	}

	out, err = env.run(t, "update", "--simulate")
	if err != nil {
		t.Fatalf("update: %v\n%s", err, out)
	}
	if !strings.Contains(out, "installed 4.0") {
		t.Fatalf("expected the configured install to be compared:\n%s", out)
	}
}
