package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/chronologos/roomwatch/internal/client"
	"github.com/chronologos/roomwatch/internal/config"
	"github.com/chronologos/roomwatch/internal/events"
	"github.com/chronologos/roomwatch/internal/logging"
	"github.com/chronologos/roomwatch/internal/metrics"
	"github.com/chronologos/roomwatch/internal/monitor"
	"github.com/chronologos/roomwatch/internal/status"
)

const shutdownTimeout = 5 * time.Second

// runMonitors starts one client per configured room and blocks until every
// client has finished or ctx is cancelled. Gift events are written to out,
// one "gift <room>" line each; logs go to errOut.
func runMonitors(ctx context.Context, cfg config.Config, out, errOut io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	log := logging.New(errOut, logging.Options{Level: level, Color: cfg.Log.Color})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	bus := events.NewBus()
	bus.On(events.EventGift, func(ev events.Event) {
		log.Info("gift", "room", ev.RoomID, "text", ev.Text)
		fmt.Fprintf(out, "gift %d\n", ev.RoomID)
	})
	busCtx, stopBus := context.WithCancel(context.Background())
	busDone := make(chan struct{})
	go func() {
		bus.Run(busCtx)
		close(busDone)
	}()
	defer func() {
		stopBus()
		<-busDone
	}()

	clients := make([]*client.Client, 0, len(cfg.Rooms))
	for _, room := range cfg.Rooms {
		it, err := monitor.New(room.Kind, room.Area, countingSink(bus, m, string(room.Kind)))
		if err != nil {
			return err
		}
		clients = append(clients, client.New(cfg.ClientConfig(room), it,
			client.WithLogger(log),
			client.WithMetrics(m),
		))
	}

	if cfg.MetricsAddr != "" {
		lister := func() []client.Status {
			list := make([]client.Status, len(clients))
			for i, c := range clients {
				list[i] = c.Status()
			}
			return list
		}
		go func() {
			if err := status.Serve(ctx, cfg.MetricsAddr, status.Handler(reg, lister), log); err != nil {
				log.Error("status server failed", "err", err)
			}
		}()
	}

	finished := make(chan int64, len(clients))
	for _, c := range clients {
		done := c.Connect(ctx)
		go func() {
			if room, ok := <-done; ok {
				finished <- room
			}
		}()
	}
	log.Info("watching", "rooms", len(clients), "server", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))

	return waitFinished(ctx, log, clients, finished)
}

// waitFinished collects completions. On ctx cancellation every client is
// closed and given shutdownTimeout to report back.
func waitFinished(ctx context.Context, log *slog.Logger, clients []*client.Client, finished <-chan int64) error {
	remaining := len(clients)
	for remaining > 0 {
		select {
		case room := <-finished:
			remaining--
			log.Info("monitor finished", "room", room, "remaining", remaining)
		case <-ctx.Done():
			for _, c := range clients {
				c.Close()
			}
			timeout := time.After(shutdownTimeout)
			for remaining > 0 {
				select {
				case <-finished:
					remaining--
				case <-timeout:
					return fmt.Errorf("%d monitors did not stop within %s", remaining, shutdownTimeout)
				}
			}
			return nil
		}
	}
	return nil
}

// countingSink counts each event before handing it to the bus.
func countingSink(bus *events.Bus, m *metrics.Metrics, kind string) events.Sink {
	return events.SinkFunc(func(ev events.Event) {
		m.Event(kind, ev.Name)
		bus.Emit(ev)
	})
}
