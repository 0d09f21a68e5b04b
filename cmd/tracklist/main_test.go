package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	"tracklist/internal/config"
	"tracklist/internal/engine"
	"tracklist/internal/media"
)

type cliTestEnv struct {
	baseDir    string
	dataDir    string
	videoDir   string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("TRACKLIST_HOME", "")
	t.Setenv("TRACKLIST_PASSWORD", "")

	env := &cliTestEnv{
		baseDir:    base,
		dataDir:    filepath.Join(base, "data"),
		videoDir:   filepath.Join(base, "videos"),
		configPath: filepath.Join(base, "config.toml"),
	}
	if err := os.MkdirAll(env.videoDir, 0o755); err != nil {
		t.Fatalf("mkdir videos: %v", err)
	}
	content := fmt.Sprintf(
		"data_dir = %q\nsearchdir = [%q]\nplayer = \"mpv\"\ntracker_enabled = false\nautosend = \"off\"\nautosend_at_exit = false\nautoretrieve = \"off\"\n\n[site]\nrequests_per_second = 0\nbreaker_failures = 0\n",
		env.dataDir,
		env.videoDir,
	)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

// seedCatalogue registers ana on the offline site and gives it titles to
// search.
func (env *cliTestEnv) seedCatalogue(t *testing.T, titles ...media.Item) {
	t.Helper()
	if _, _, err := runCLI(t, env, nil, "accounts", "add", "ana", "local"); err != nil {
		t.Fatalf("accounts add: %v", err)
	}
	doc := map[string][]media.Item{"titles": titles}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("encode catalogue: %v", err)
	}
	path := filepath.Join(env.dataDir, "ana.local", "local", "anime.catalogue.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir catalogue: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write catalogue: %v", err)
	}
}

func runCLI(t *testing.T, env *cliTestEnv, opts *engine.Options, args ...string) (string, string, error) {
	t.Helper()
	var engineOpts engine.Options
	if opts != nil {
		engineOpts = *opts
	}
	cmd := buildRootCommand(engineOpts)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func catalogue() []media.Item {
	return []media.Item{
		{ID: "1", Title: "Sousou no Frieren", Aliases: []string{"Frieren"}, Total: 28},
		{ID: "2", Title: "Planetes", Total: 26},
		{ID: "3", Title: "Planet With", Total: 12},
	}
}

func TestAccountsAddListAndDefault(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, nil, "accounts", "add", "ana", "local")
	if err != nil {
		t.Fatalf("accounts add: %v", err)
	}
	if !strings.Contains(out, "Added account ana.local as 1") {
		t.Fatalf("unexpected add output: %q", out)
	}
	if _, _, err := runCLI(t, env, nil, "accounts", "add", "bo", "local", "--default"); err != nil {
		t.Fatalf("accounts add bo: %v", err)
	}

	reg, err := config.LoadAccounts(filepath.Join(env.dataDir, "accounts.dict"))
	if err != nil {
		t.Fatalf("LoadAccounts: %v", err)
	}
	if reg.Default != "2" {
		t.Fatalf("expected bo to be the default, got %q", reg.Default)
	}
	info, err := os.Stat(filepath.Join(env.dataDir, "accounts.dict"))
	if err != nil {
		t.Fatalf("stat accounts: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("accounts file permissions = %o", perm)
	}

	if _, _, err := runCLI(t, env, nil, "accounts", "default", "1"); err != nil {
		t.Fatalf("accounts default: %v", err)
	}
	out, _, err = runCLI(t, env, nil, "accounts", "list")
	if err != nil {
		t.Fatalf("accounts list: %v", err)
	}
	for _, want := range []string{"ana", "bo", "local", "*"} {
		if !strings.Contains(out, want) {
			t.Fatalf("accounts list missing %q:\n%s", want, out)
		}
	}
}

func TestAccountsAddRejectsUnknownSite(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, env, nil, "accounts", "add", "ana", "nowhere")
	if err == nil || !strings.Contains(err.Error(), "unknown site") {
		t.Fatalf("expected unknown site error, got %v", err)
	}
}

func TestCommandsNeedAnAccount(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, env, nil, "list")
	if err == nil || !strings.Contains(err.Error(), "accounts add") {
		t.Fatalf("expected a hint to add an account, got %v", err)
	}
}

func TestAddEpisodeQueueAndSend(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seedCatalogue(t, catalogue()...)

	_, stderr, err := runCLI(t, env, nil, "add", "frieren")
	if err != nil {
		t.Fatalf("add: %v (stderr %q)", err, stderr)
	}
	if !strings.Contains(stderr, "[INFO] Added Sousou no Frieren.") {
		t.Fatalf("unexpected add messages: %q", stderr)
	}

	out, _, err := runCLI(t, env, nil, "episode", "1", "3")
	if err != nil {
		t.Fatalf("episode: %v", err)
	}
	if want := "Sousou no Frieren: 3/28, Watching, score -\n"; out != want {
		t.Fatalf("episode output = %q want %q", out, want)
	}

	out, _, err = runCLI(t, env, nil, "episode", "1", "next")
	if err != nil {
		t.Fatalf("episode next: %v", err)
	}
	if !strings.Contains(out, "4/28") {
		t.Fatalf("expected progress 4, got %q", out)
	}

	out, _, err = runCLI(t, env, nil, "queue")
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if !strings.Contains(out, "add") || !strings.Contains(out, "Sousou no Frieren") {
		t.Fatalf("expected one merged add entry:\n%s", out)
	}

	out, _, err = runCLI(t, env, nil, "list", "--json")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var items []struct {
		ID       string `json:"id"`
		Progress int    `json:"my_progress"`
		Status   string `json:"my_status"`
		Queued   bool   `json:"queued"`
	}
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("decode list: %v\n%s", err, out)
	}
	type row struct {
		ID       string
		Progress int
		Status   string
		Queued   bool
	}
	got := make([]row, 0, len(items))
	for _, it := range items {
		got = append(got, row{it.ID, it.Progress, it.Status, it.Queued})
	}
	if diff := cmp.Diff([]row{{"1", 4, "watching", true}}, got); diff != "" {
		t.Fatalf("list mismatch (-want +got):\n%s", diff)
	}

	_, stderr, err = runCLI(t, env, nil, "send")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.Contains(stderr, "Sent 1 queued changes.") {
		t.Fatalf("unexpected send messages: %q", stderr)
	}
	out, _, err = runCLI(t, env, nil, "queue")
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if !strings.Contains(out, "Queue is empty") {
		t.Fatalf("expected empty queue after send:\n%s", out)
	}
	data, err := os.ReadFile(filepath.Join(env.dataDir, "ana.local", "local", "anime.json"))
	if err != nil {
		t.Fatalf("read site list: %v", err)
	}
	if !strings.Contains(string(data), `"progress": 4`) {
		t.Fatalf("site list not updated:\n%s", data)
	}
}

func TestAddAmbiguousQueryListsCandidates(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seedCatalogue(t, catalogue()...)

	out, _, err := runCLI(t, env, nil, "add", "planet")
	if err == nil || !strings.Contains(err.Error(), "choose one with --id") {
		t.Fatalf("expected ambiguity error, got %v", err)
	}
	if !strings.Contains(out, "Planetes") || !strings.Contains(out, "Planet With") {
		t.Fatalf("expected both candidates listed:\n%s", out)
	}

	if _, _, err := runCLI(t, env, nil, "add", "planet", "--id", "3", "--status", "plan_to_watch"); err != nil {
		t.Fatalf("add --id: %v", err)
	}
	out, _, err = runCLI(t, env, nil, "list", "--status", "plan_to_watch")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "Planet With") || strings.Contains(out, "Planetes") {
		t.Fatalf("unexpected filtered list:\n%s", out)
	}
}

func TestRejectedEditIsReportedOnce(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seedCatalogue(t, catalogue()...)
	if _, _, err := runCLI(t, env, nil, "add", "planetes"); err != nil {
		t.Fatalf("add: %v", err)
	}

	_, stderr, err := runCLI(t, env, nil, "episode", "2", "99")
	if err == nil {
		t.Fatal("expected an error past the total")
	}
	if !alreadyReported(err) {
		t.Fatalf("expected the error to be marked as reported: %v", err)
	}
	if !strings.Contains(stderr, "[WARN] OutOfRange: setting episode 99 of 2") {
		t.Fatalf("unexpected messages: %q", stderr)
	}
	if strings.Count(stderr, "OutOfRange") != 1 {
		t.Fatalf("expected a single report: %q", stderr)
	}
}

func TestStatusCompletesAndScoreShown(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seedCatalogue(t, catalogue()...)
	if _, _, err := runCLI(t, env, nil, "add", "planet", "--id", "3"); err != nil {
		t.Fatalf("add: %v", err)
	}

	out, _, err := runCLI(t, env, nil, "status", "3", "completed")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if want := "Planet With: 12/12, Completed, score -\n"; out != want {
		t.Fatalf("status output = %q want %q", out, want)
	}
	out, _, err = runCLI(t, env, nil, "score", "3", "8")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !strings.Contains(out, "score 8") {
		t.Fatalf("unexpected score output %q", out)
	}
	out, _, err = runCLI(t, env, nil, "info", "3")
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	for _, want := range []string{"Planet With (3)", "Completed", "Finished:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("info missing %q:\n%s", want, out)
		}
	}
}

func TestMediatypeFlagIsRemembered(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seedCatalogue(t)

	if _, _, err := runCLI(t, env, nil, "-m", "manga", "list"); err != nil {
		t.Fatalf("list manga: %v", err)
	}
	uc, err := config.LoadUserConfig(filepath.Join(env.dataDir, "ana.local"))
	if err != nil {
		t.Fatalf("LoadUserConfig: %v", err)
	}
	if uc.Mediatype != "manga" {
		t.Fatalf("expected manga to be remembered, got %q", uc.Mediatype)
	}
	out, _, err := runCLI(t, env, nil, "mediatypes")
	if err != nil {
		t.Fatalf("mediatypes: %v", err)
	}
	if !strings.Contains(out, "reading") {
		t.Fatalf("expected manga statuses:\n%s", out)
	}
}

func TestPlayAndNewEpisodes(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seedCatalogue(t, catalogue()...)
	if _, _, err := runCLI(t, env, nil, "add", "frieren"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, _, err := runCLI(t, env, nil, "episode", "1", "3"); err != nil {
		t.Fatalf("episode: %v", err)
	}
	for _, name := range []string{"[Group] Frieren - 03.mkv", "[Group] Frieren - 04.mkv"} {
		if err := os.WriteFile(filepath.Join(env.videoDir, name), nil, 0o644); err != nil {
			t.Fatalf("write video: %v", err)
		}
	}

	var mu sync.Mutex
	var launched []string
	opts := &engine.Options{Launcher: func(_ context.Context, player, path string) error {
		mu.Lock()
		defer mu.Unlock()
		launched = append(launched, player+" "+filepath.Base(path))
		return nil
	}}
	_, stderr, err := runCLI(t, env, opts, "play", "1")
	if err != nil {
		t.Fatalf("play: %v (stderr %q)", err, stderr)
	}
	mu.Lock()
	got := launched
	mu.Unlock()
	if diff := cmp.Diff([]string{"mpv [Group] Frieren - 04.mkv"}, got); diff != "" {
		t.Fatalf("launcher calls (-want +got):\n%s", diff)
	}

	out, _, err := runCLI(t, env, nil, "neweps")
	if err != nil {
		t.Fatalf("neweps: %v", err)
	}
	if !strings.Contains(out, "Sousou no Frieren") || !strings.Contains(out, "new") {
		t.Fatalf("expected Frieren flagged as new:\n%s", out)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(env.baseDir, "sample", "config.json")

	out, _, err := runCLI(t, env, nil, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("unexpected init output %q", out)
	}
	if _, _, err := runCLI(t, env, nil, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}

	cmd := buildRootCommand(engine.Options{})
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stdout)
	cmd.SetArgs([]string{"--config", target, "config", "validate"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(stdout.String(), "Configuration valid") {
		t.Fatalf("unexpected validate output %q", stdout.String())
	}
}

func TestConfigShowPrintsEffectiveValues(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, nil, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	for _, want := range []string{"data_dir", env.dataDir, "mpv", "[site]", "[notifications]"} {
		if !strings.Contains(out, want) {
			t.Fatalf("config show output missing %q:\n%s", want, out)
		}
	}
}

func TestChooseResult(t *testing.T) {
	results := catalogue()
	if _, err := chooseResult(nil, ""); err == nil {
		t.Fatal("expected an error without results")
	}
	if _, err := chooseResult(results, ""); err == nil {
		t.Fatal("expected an ambiguity error")
	}
	got, err := chooseResult(results, "2")
	if err != nil || got.Title != "Planetes" {
		t.Fatalf("chooseResult by id = %+v, %v", got, err)
	}
	if _, err := chooseResult(results, "9"); err == nil {
		t.Fatal("expected an error for an unknown id")
	}
	got, err = chooseResult(results[:1], "")
	if err != nil || got.ID != "1" {
		t.Fatalf("single result = %+v, %v", got, err)
	}
}

func TestDoctorReportsChecks(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("PATH", env.baseDir)

	out, _, err := runCLI(t, env, nil, "doctor")
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	for _, want := range []string{"[OK] Data directory:", "[OK] Search directory 1:", "[WARN] Player:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("doctor output missing %q:\n%s", want, out)
		}
	}
}

func TestLogsShowsLatestSession(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, env, nil, "logs")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if !strings.Contains(stdout, "No log entries available") {
		t.Fatalf("expected empty notice, got %q", stdout)
	}

	logDir := filepath.Join(env.dataDir, "logs")
	older := `{"level":"info","msg":"old session"}` + "\n"
	newer := `{"level":"info","msg":"first","component":"engine"}` + "\n" +
		`{"level":"warn","msg":"second","component":"queue","event_type":"send_failed"}` + "\n"
	if err := os.WriteFile(filepath.Join(logDir, "tracklist-20261015T080000.log"), []byte(older), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	if err := os.WriteFile(filepath.Join(logDir, "tracklist-20261016T080000.log"), []byte(newer), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	stdout, _, err = runCLI(t, env, nil, "logs", "-n", "1")
	if err != nil {
		t.Fatalf("logs -n 1: %v", err)
	}
	if want := "WARN  [queue] second event_type=send_failed\n"; stdout != want {
		t.Fatalf("logs output = %q, want %q", stdout, want)
	}

	stdout, _, err = runCLI(t, env, nil, "logs", "-n", "0", "--raw")
	if err != nil {
		t.Fatalf("logs --raw: %v", err)
	}
	if stdout != newer {
		t.Fatalf("raw output = %q, want %q", stdout, newer)
	}
}

func TestTestNotifySendsToTopic(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, env, nil, "test-notify")
	if err != nil {
		t.Fatalf("test-notify without topic: %v", err)
	}
	if !strings.Contains(stdout, "Notifications not configured") {
		t.Fatalf("unexpected output %q", stdout)
	}

	var mu sync.Mutex
	var titles []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		titles = append(titles, r.Header.Get("Title"))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	f, err := os.OpenFile(env.configPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open config: %v", err)
	}
	fmt.Fprintf(f, "\n[notifications]\nntfy_topic = %q\n", server.URL)
	_ = f.Close()

	stdout, _, err = runCLI(t, env, nil, "test-notify")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	if !strings.Contains(stdout, "Test notification sent") {
		t.Fatalf("unexpected output %q", stdout)
	}
	mu.Lock()
	defer mu.Unlock()
	if diff := cmp.Diff([]string{"Tracklist - Test"}, titles); diff != "" {
		t.Fatalf("notification titles mismatch (-want +got):\n%s", diff)
	}
}
