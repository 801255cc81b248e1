package stream

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"cemhyd/internal/hydration"
	"cemhyd/internal/phase"
)

func report(cycle int) hydration.CycleReport {
	var r hydration.CycleReport
	r.State.Cycle = cycle
	r.State.AlphaMass = 0.1 * float64(cycle)
	r.State.PH = 13
	r.Counts[phase.Porosity] = 700
	r.Counts[phase.CSH] = 300
	return r
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatal(err)
	}
	var f Frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatal(err)
	}
	return f
}

func TestNewFrame(t *testing.T) {
	r := report(4)
	r.Final = true
	r.State.Curing = hydration.SelfDesiccating
	f := NewFrame(r)
	if f.Type != "cycle" || f.Cycle != 4 || !f.Final || f.Curing != "self-desiccating" {
		t.Fatalf("frame %+v", f)
	}
	if len(f.Counts) != 2 || f.Counts["CSH"] != 300 {
		t.Fatalf("counts %v", f.Counts)
	}
}

func TestLateClientGetsLatestFrame(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	ctx := context.Background()
	if err := hub.ObserveCycle(ctx, report(1)); err != nil {
		t.Fatal(err)
	}
	if err := hub.ObserveCycle(ctx, report(2)); err != nil {
		t.Fatal(err)
	}
	conn := dial(t, srv)
	if f := read(t, conn); f.Cycle != 2 {
		t.Fatalf("late client got cycle %d", f.Cycle)
	}
}

func TestBroadcastReachesEveryClient(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	ctx := context.Background()

	// The first frame is sent before anyone connects so that receiving it
	// proves a client is registered.
	if err := hub.ObserveCycle(ctx, report(1)); err != nil {
		t.Fatal(err)
	}
	a, b := dial(t, srv), dial(t, srv)
	read(t, a)
	read(t, b)
	if hub.Clients() != 2 {
		t.Fatalf("%d clients registered", hub.Clients())
	}

	if err := hub.ObserveCycle(ctx, report(5)); err != nil {
		t.Fatal(err)
	}
	for _, conn := range []*websocket.Conn{a, b} {
		if f := read(t, conn); f.Cycle != 5 || f.Counts["POROSITY"] != 700 {
			t.Fatalf("frame %+v", f)
		}
	}
}

func TestDisconnectedClientIsDropped(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	ctx := context.Background()
	if err := hub.ObserveCycle(ctx, report(1)); err != nil {
		t.Fatal(err)
	}
	conn := dial(t, srv)
	read(t, conn)
	conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for hub.Clients() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("closed client still registered")
		}
		if err := hub.ObserveCycle(ctx, report(2)); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCloseDisconnectsClients(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	if err := hub.ObserveCycle(context.Background(), report(1)); err != nil {
		t.Fatal(err)
	}
	conn := dial(t, srv)
	read(t, conn)
	hub.Close()
	if hub.Clients() != 0 {
		t.Fatal("clients left after Close")
	}
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatal(err)
	}
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("got %v, want a normal close", err)
	}
}
