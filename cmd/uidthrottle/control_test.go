package main

import (
	"encoding/csv"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mercator-hq/uidthrottle/pkg/cli"
	"mercator-hq/uidthrottle/pkg/control"
	"mercator-hq/uidthrottle/pkg/identity"
	"mercator-hq/uidthrottle/pkg/throttle"
)

func newTestControlServer(t *testing.T, capacity int) (*control.Plane, string) {
	t.Helper()

	var table *throttle.Table
	if capacity > 0 {
		var err error
		table, err = throttle.NewTable(capacity, discardLogger())
		if err != nil {
			t.Fatalf("NewTable() error = %v", err)
		}
	}
	slots := identity.NewAllocator(capacity)
	engine := throttle.NewEngine(table, slots, &throttle.Config{Window: time.Second}, discardLogger())
	plane := control.NewPlane(engine, slots, control.Options{Logger: discardLogger()})

	srv := httptest.NewServer(control.NewHandler(plane))
	t.Cleanup(srv.Close)
	return plane, srv.URL + "/v1/ratelimit"
}

func TestSetCommand(t *testing.T) {
	plane, url := newTestControlServer(t, 4)

	out, err := execute(t, "set", "--server", url, "1000", "4096")
	if err != nil {
		t.Fatalf("set error = %v", err)
	}
	if !strings.Contains(out, "uid 1000 rate set to 4096") {
		t.Errorf("output = %q", out)
	}

	entries := plane.Entries()
	if len(entries) != 1 || entries[0].UID != 1000 || entries[0].RateLimit != 4096 {
		t.Errorf("Entries() = %+v", entries)
	}
}

func TestSetCommand_Errors(t *testing.T) {
	_, url := newTestControlServer(t, 1)
	_, disabledURL := newTestControlServer(t, 0)

	closed := httptest.NewServer(nil)
	closedURL := closed.URL
	closed.Close()

	tests := []struct {
		name     string
		args     []string
		wantCode int
	}{
		{name: "non-numeric uid", args: []string{"set", "--server", url, "abc", "1"}, wantCode: cli.ExitUsage},
		{name: "non-numeric rate", args: []string{"set", "--server", url, "1", "fast"}, wantCode: cli.ExitUsage},
		{name: "wrong arg count", args: []string{"set", "--server", url, "1"}, wantCode: cli.ExitFailure},
		{name: "first uid takes the only slot", args: []string{"set", "--server", url, "--", "7", "1"}, wantCode: cli.ExitOK},
		{name: "slots exhausted", args: []string{"set", "--server", url, "8", "1"}, wantCode: cli.ExitUsage},
		{name: "throttling disabled", args: []string{"set", "--server", disabledURL, "1", "1"}, wantCode: cli.ExitUnavailable},
		{name: "daemon down", args: []string{"set", "--server", closedURL, "1", "1"}, wantCode: cli.ExitUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if got := cli.ExitCode(err); got != tt.wantCode {
				t.Errorf("ExitCode(%v) = %d, want %d", err, got, tt.wantCode)
			}
		})
	}
}

func TestResetCommand(t *testing.T) {
	plane, url := newTestControlServer(t, 4)

	for _, args := range [][]string{{"set", "--server", url, "1", "10"}, {"set", "--server", url, "2", "20"}} {
		if _, err := execute(t, args...); err != nil {
			t.Fatalf("%v error = %v", args, err)
		}
	}

	out, err := execute(t, "reset", "--server", url)
	if err != nil {
		t.Fatalf("reset error = %v", err)
	}
	if !strings.Contains(out, "All rate limits disabled") {
		t.Errorf("output = %q", out)
	}
	for _, e := range plane.Entries() {
		if e.RateLimit >= 0 {
			t.Errorf("uid %d rate = %d after reset, want negative", e.UID, e.RateLimit)
		}
	}
}

func TestListCommand(t *testing.T) {
	_, url := newTestControlServer(t, 4)
	if _, err := execute(t, "set", "--server", url, "1000", "4096"); err != nil {
		t.Fatalf("set error = %v", err)
	}
	if _, err := execute(t, "set", "--server", url, "2000", "100"); err != nil {
		t.Fatalf("set error = %v", err)
	}

	t.Run("text", func(t *testing.T) {
		out, err := execute(t, "list", "--server", url)
		if err != nil {
			t.Fatalf("list error = %v", err)
		}
		lines := strings.Split(strings.TrimSpace(out), "\n")
		if len(lines) != 2 {
			t.Fatalf("lines = %q, want 2", lines)
		}
		if !strings.HasPrefix(lines[0], "1000 4096 ts ") || !strings.HasPrefix(lines[1], "2000 100 ts ") {
			t.Errorf("lines = %q", lines)
		}
		if !strings.Contains(lines[0], "/ W 1s last wr 0") {
			t.Errorf("line = %q, want window and remaining request", lines[0])
		}
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, "list", "--server", url, "--format", "json")
		if err != nil {
			t.Fatalf("list error = %v", err)
		}
		var list control.ListResponse
		if err := json.Unmarshal([]byte(out), &list); err != nil {
			t.Fatalf("output is not JSON: %v\n%s", err, out)
		}
		if !list.Enabled || list.Window != "1s" || len(list.Entries) != 2 {
			t.Errorf("list = %+v", list)
		}
	})

	t.Run("csv", func(t *testing.T) {
		out, err := execute(t, "list", "--server", url, "-f", "csv")
		if err != nil {
			t.Fatalf("list error = %v", err)
		}
		records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
		if err != nil {
			t.Fatalf("output is not CSV: %v", err)
		}
		if len(records) != 3 || records[0][0] != "uid" || records[2][1] != "100" {
			t.Errorf("records = %q", records)
		}
	})

	t.Run("bad format", func(t *testing.T) {
		_, err := execute(t, "list", "--server", url, "--format", "xml")
		if cli.ExitCode(err) != cli.ExitUsage {
			t.Errorf("error = %v, want usage error", err)
		}
	})
}

func TestResolveControlURL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := "server:\n  listen_address: 0.0.0.0:9300\ncontrol:\n  http:\n    path: /admin/ratelimit\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	t.Cleanup(func() { cfgFile, serverURL = "", "" })

	cfgFile, serverURL = path, ""
	got, tlsCfg, err := resolveControlURL()
	if err != nil {
		t.Fatalf("resolveControlURL() error = %v", err)
	}
	if want := "http://127.0.0.1:9300/admin/ratelimit"; got != want {
		t.Errorf("resolveControlURL() = %q, want %q", got, want)
	}
	if tlsCfg != nil {
		t.Error("resolveControlURL() returned TLS config without server.tls")
	}

	serverURL = "http://example.test/v1/ratelimit"
	got, _, err = resolveControlURL()
	if err != nil || got != serverURL {
		t.Errorf("resolveControlURL() = %q, %v, want --server value", got, err)
	}
}

func TestResolveControlURL_TLS(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := "server:\n  listen_address: 127.0.0.1:9443\n  tls:\n    enabled: true\n    cert_file: c.pem\n    key_file: k.pem\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Cleanup(func() { cfgFile, serverURL = "", "" })

	cfgFile, serverURL = path, ""
	got, tlsCfg, err := resolveControlURL()
	if err != nil {
		t.Fatalf("resolveControlURL() error = %v", err)
	}
	if want := "https://127.0.0.1:9443/v1/ratelimit"; got != want {
		t.Errorf("resolveControlURL() = %q, want %q", got, want)
	}
	if tlsCfg == nil {
		t.Error("resolveControlURL() returned no TLS config")
	}

	badCA := "server:\n  tls:\n    enabled: true\n    cert_file: c.pem\n    key_file: k.pem\n    ca_file: " + filepath.Join(dir, "missing.pem") + "\n"
	if err := os.WriteFile(path, []byte(badCA), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, _, err := resolveControlURL(); cli.ExitCode(err) != cli.ExitUsage {
		t.Errorf("resolveControlURL() with missing CA: exit code %d, want %d", cli.ExitCode(err), cli.ExitUsage)
	}
}
