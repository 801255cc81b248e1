package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"cemhyd/internal/config"
	"cemhyd/internal/core"
	"cemhyd/internal/hydration"
	"cemhyd/internal/logging"
	"cemhyd/internal/metrics"
	"cemhyd/internal/report"
	"cemhyd/internal/stream"
)

const shutdownTimeout = 5 * time.Second

// sinks owns the report outputs attached to a run. Close releases them in
// reverse order.
type sinks struct {
	log     *slog.Logger
	runID   int64
	closers []func()
}

// attachSinks opens every configured output and registers it as an observer
// of m.
func attachSinks(ctx context.Context, m *hydration.Model, cfg *config.Config, log *slog.Logger) (*sinks, error) {
	s := &sinks{log: log}
	out := cfg.Output

	if out.Database != "" {
		db, err := report.Open(ctx, out.Database)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() { db.Close() })
		run, err := db.BeginRun(ctx, cfg.Input.Size, cfg.Model)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.runID = run
		m.Observe(db)
		log.Info("recording run", "database", out.Database, "run", run)
	}

	if out.MetricsAddr != "" {
		rec := metrics.New()
		mux := http.NewServeMux()
		mux.Handle("/metrics", rec.Handler())
		if err := s.serve("metrics", out.MetricsAddr, mux); err != nil {
			s.Close()
			return nil, err
		}
		m.Observe(rec)
	}

	if out.StreamAddr != "" {
		hub := stream.NewHub(log)
		mux := http.NewServeMux()
		mux.Handle("/stream", hub)
		if err := s.serve("stream", out.StreamAddr, mux); err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, hub.Close)
		m.Observe(&throttled{next: hub, th: core.NewThrottle(out.StreamRate)})
	}

	if out.EventDir != "" {
		el := logging.NewEventLog(out.EventDir)
		if el == nil {
			s.Close()
			return nil, fmt.Errorf("cannot open event log in %s", out.EventDir)
		}
		s.closers = append(s.closers, el.Close)
		m.Observe(&milestones{events: el})
	}
	return s, nil
}

func (s *sinks) serve(name, addr string, h http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%s listener: %w", name, err)
	}
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("server stopped", "server", name, "err", err)
		}
	}()
	s.log.Info("serving", "server", name, "addr", ln.Addr().String())
	s.closers = append(s.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return nil
}

// Close shuts every sink down. Safe to call more than once.
func (s *sinks) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// throttled forwards at most the throttle's rate of cycle reports to next.
// The final report always passes.
type throttled struct {
	next hydration.Observer
	th   *core.Throttle
}

func (t *throttled) ObserveCycle(ctx context.Context, r hydration.CycleReport) error {
	if !r.Final && !t.th.Allow() {
		return nil
	}
	return t.next.ObserveCycle(ctx, r)
}

// milestones writes run events to the JSONL event log: the set point, the
// switch to self-desiccation, loss of pore connectivity along an axis, and
// the final measurement.
type milestones struct {
	events    *logging.EventLog
	started   bool
	set       bool
	curing    hydration.Curing
	connected [3]bool
}

func (ms *milestones) ObserveCycle(_ context.Context, r hydration.CycleReport) error {
	st := r.State
	base := func(event string) map[string]any {
		return map[string]any{
			"event":      event,
			"cycle":      st.Cycle,
			"time_hours": st.Time,
			"alpha":      st.AlphaMass,
		}
	}
	if !ms.started {
		ms.started = true
		ms.curing = st.Curing
		ms.connected = [3]bool{true, true, true}
		ev := base("start")
		ev["curing"] = st.Curing.String()
		ms.events.Log(ev)
	}
	if st.Set && !ms.set {
		ms.set = true
		ev := base("set")
		ev["set_cycle"] = st.SetCycle
		ms.events.Log(ev)
	}
	if st.Curing != ms.curing {
		ms.curing = st.Curing
		ev := base("curing")
		ev["curing"] = st.Curing.String()
		ms.events.Log(ev)
	}
	if r.Pores != nil {
		for k, c := range st.PoreConnected {
			if ms.connected[k] && !c {
				ev := base("depercolated")
				ev["axis"] = core.Axes[k].String()
				ms.events.Log(ev)
			}
			ms.connected[k] = c
		}
	}
	if r.Final {
		ev := base("finished")
		ev["heat"] = st.Heat
		ev["temperature"] = st.Temperature
		ms.events.Log(ev)
	}
	return nil
}
