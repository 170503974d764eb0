package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/silexa/hostctl/internal/activity"
	"github.com/silexa/hostctl/internal/hostd"
	"github.com/silexa/hostctl/internal/ids"
)

var monitorFlags struct {
	addr     string
	interval time.Duration
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Serve /metrics and poll every host's idle time (spec.md §4.I)",
	RunE: func(cmd *cobra.Command, args []string) error {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: monitorFlags.addr, Handler: mux}

		go func() {
			current.log.Info("metrics server listening", "addr", monitorFlags.addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				current.log.Error("metrics server stopped", "error", err)
			}
		}()

		m := &activity.Monitor{Lister: providerHostLister{}, Log: current.log}
		m.Run(cmd.Context(), monitorFlags.interval)
		return srv.Close()
	},
}

func init() {
	monitorCmd.Flags().StringVar(&monitorFlags.addr, "addr", ":9090", "address to serve /metrics on")
	monitorCmd.Flags().DurationVar(&monitorFlags.interval, "interval", 30*time.Second, "poll interval")
	rootCmd.AddCommand(monitorCmd)
}

// providerHostLister adapts the configured providers to activity.HostLister,
// rebuilding the *hostd.Host set on every call so a host created or
// destroyed between polls is picked up without restarting the monitor.
type providerHostLister struct{}

func (providerHostLister) Hosts() map[ids.HostID]*hostd.Host {
	out := make(map[ids.HostID]*hostd.Host)
	for _, p := range current.providers {
		store, err := storeFor(p)
		if err != nil {
			continue
		}
		records, err := p.ListHosts(context.Background(), false)
		if err != nil {
			current.log.Warn("list hosts for idle monitor failed", "provider", p.Name(), "error", err)
			continue
		}
		for _, record := range records {
			conn, err := p.GetConnector(context.Background(), record.Certified.HostID)
			if err != nil {
				continue
			}
			out[record.Certified.HostID] = hostdHost(record.Certified.HostID, conn, store)
		}
	}
	return out
}
