package app

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quadmon/pkg/app/config"
	"quadmon/pkg/raspberry"

	"github.com/womat/debug"
)

func TestMain(m *testing.M) {
	debug.SetDebug(os.Stderr, debug.Standard)
	os.Exit(m.Run())
}

func newTestApp(t *testing.T, webservices map[string]bool) *App {
	t.Helper()

	c := config.NewConfig()
	c.Encoder.Backend = raspberry.BackendEmulator
	c.Encoder.Emulator.EdgeRate = 0
	c.LockFile = filepath.Join(t.TempDir(), "quadmon.lock")
	if err := c.LoadConfig(); err != nil {
		t.Fatal(err)
	}
	for k, v := range webservices {
		c.Webserver.Webservices[k] = v
	}

	a, err := New(c)
	if err != nil {
		t.Fatal(err)
	}
	if err = a.init(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func get(t *testing.T, a *App, path string) (int, string) {
	t.Helper()

	resp, err := a.web.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, string(b)
}

// rotate emits n clockwise edges and waits for one report.
func rotate(t *testing.T, a *App, n int) {
	t.Helper()

	e := a.source.(*raspberry.Emulator)

	// the emulator drops edges if its buffer is full
	for sent := 0; sent < n; {
		k := n - sent
		if k > 256 {
			k = 256
		}
		e.Step(k)
		sent += k

		deadline := time.Now().Add(time.Second)
		for a.monitor.Stats().Edges < uint64(sent) {
			if time.Now().After(deadline) {
				t.Fatalf("expected %v edges, got %v", sent, a.monitor.Stats().Edges)
			}
			time.Sleep(time.Millisecond)
		}
	}

	tick := make(chan time.Time, 1)
	tick <- time.Now()
	close(tick)
	a.reporter.Run(tick)
}

func TestHandleVersion(t *testing.T) {
	a := newTestApp(t, nil)

	code, body := get(t, a, "/version")
	if code != http.StatusOK {
		t.Fatalf("expected status 200, got %v", code)
	}

	var v map[string]string
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		t.Fatal(err)
	}
	if v["description"] != MODULE || v["version"] != VERSION {
		t.Errorf("unexpected version %v", v)
	}
}

func TestHandleData_NoReport(t *testing.T) {
	a := newTestApp(t, nil)

	for _, path := range []string{"/data", "/speed"} {
		if code, _ := get(t, a, path); code != http.StatusNoContent {
			t.Errorf("%v: expected status 204, got %v", path, code)
		}
	}
}

func TestHandleData_OneRotation(t *testing.T) {
	a := newTestApp(t, nil)
	rotate(t, a, 1632)

	if _, body := get(t, a, "/speed"); body != "rotations/s = 1.000 CW" {
		t.Errorf("unexpected speed %q", body)
	}

	_, body := get(t, a, "/data")
	var r report
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		t.Fatal(err)
	}
	if r.Pulses != 1632 || r.RotationsPerSecond != 1 || r.Direction != "CW" || r.Window != 1 {
		t.Errorf("unexpected report %+v", r)
	}

	_, body = get(t, a, "/history")
	var h []report
	if err := json.Unmarshal([]byte(body), &h); err != nil {
		t.Fatal(err)
	}
	if len(h) != 1 {
		t.Errorf("expected 1 report in history, got %v", len(h))
	}
}

func TestHandleData_Idle(t *testing.T) {
	a := newTestApp(t, nil)
	rotate(t, a, 0)

	if _, body := get(t, a, "/speed"); body != "rotations/s = 0.000" {
		t.Errorf("unexpected speed %q", body)
	}

	_, body := get(t, a, "/data")
	var r map[string]interface{}
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		t.Fatal(err)
	}
	if _, ok := r["Direction"]; ok {
		t.Errorf("expected no direction while idle, got %v", r["Direction"])
	}
}

func TestHandleHealth(t *testing.T) {
	a := newTestApp(t, nil)
	rotate(t, a, 8)

	_, body := get(t, a, "/health")
	var h struct {
		Backend string
		Edges   uint64
	}
	if err := json.Unmarshal([]byte(body), &h); err != nil {
		t.Fatal(err)
	}
	if h.Backend != raspberry.BackendEmulator || h.Edges != 8 {
		t.Errorf("unexpected health %+v", h)
	}
}

func TestRoutes_Disabled(t *testing.T) {
	a := newTestApp(t, map[string]bool{"history": false})

	if code, _ := get(t, a, "/history"); code != http.StatusNotFound {
		t.Errorf("expected status 404, got %v", code)
	}
}

func TestInit_Locked(t *testing.T) {
	a := newTestApp(t, nil)

	c := *a.config
	b, err := New(&c)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	if err = b.init(); err == nil {
		t.Error("expected an error, the lock file is held")
	}
}
