/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Command ntpcored wires the clock-filter/selection core into a runnable
// daemon: one peertask goroutine per configured peer (plus one
// refclock.Task per local reference clock), a coordinator aggregating
// their snapshots into survivor sets, and an HTTP stats endpoint. Every
// collaborator named as out-of-scope in SPEC_FULL.md §1 (NTS, kernel
// timestamping, clock discipline) is absent; wireudp.Socket is a minimal
// stand-in for the wire codec, sufficient to make the daemon runnable end
// to end without pretending to be a complete reference client.
package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/daemon"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/facebook/ntpcore/internal/clock"
	"github.com/facebook/ntpcore/internal/config"
	"github.com/facebook/ntpcore/internal/coordinator"
	"github.com/facebook/ntpcore/internal/peertask"
	"github.com/facebook/ntpcore/internal/refclock"
	"github.com/facebook/ntpcore/internal/statsserver"
	"github.com/facebook/ntpcore/internal/stats"
	"github.com/facebook/ntpcore/internal/wireudp"
	"github.com/facebook/ntpcore/ntp/peer"
	"github.com/facebook/ntpcore/ntp/protocol"
)

var (
	configFlag  string
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "ntpcored",
	Short: "NTP clock-filter and selection daemon",
	RunE: func(_ *cobra.Command, _ []string) error {
		log.SetLevel(log.InfoLevel)
		if verboseFlag {
			log.SetLevel(log.DebugLevel)
		}
		return run(configFlag)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configFlag, "config", "c", "/etc/ntpcored/config.yaml", "path to daemon configuration")
	rootCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "verbose logging")
}

// systemView is the single-writer system snapshot (SPEC_FULL.md §5)
// peertask.Task reads through the peertask.SystemView interface.
type systemView struct {
	leap                   protocol.LeapIndicator
	systemPoll             protocol.NtpDuration
	systemPrecisionSeconds float64
}

func (v *systemView) Leap() protocol.LeapIndicator     { return v.leap }
func (v *systemView) SystemPoll() protocol.NtpDuration { return v.systemPoll }
func (v *systemView) SystemPrecisionSeconds() float64  { return v.systemPrecisionSeconds }

func run(path string) error {
	cfg, err := config.ReadConfig(path)
	if err != nil {
		return err
	}

	clk := clock.System{}
	counters := stats.NewCounters()
	coord := coordinator.New(counters)
	ourID := protocol.ReferenceId(0)

	sysView := &systemView{
		leap:                   protocol.LeapNoWarning,
		systemPoll:             protocol.DurationFromExponent(protocol.MinPollExponent),
		systemPrecisionSeconds: cfg.SystemPrecision.Seconds(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return coord.Run(ctx) })

	peerStatsByID := make(map[string]*stats.PeerStats, len(cfg.Peers))
	for _, pc := range cfg.Peers {
		pc := pc
		sock, err := wireudp.Dial(pc.Address, clk)
		if err != nil {
			return fmt.Errorf("dialing peer %s: %w", pc.Address, err)
		}
		p := peer.New(protocol.ReferenceId(0), ourID)
		p.Burst = pc.Burst
		peerStats, err := stats.NewPeerStats(pc.Address)
		if err != nil {
			return fmt.Errorf("building stats for peer %s: %w", pc.Address, err)
		}
		peerStatsByID[pc.Address] = peerStats
		task := peertask.NewTask(pc.Address, p, sock, clk, sysView, peerStats, coord.Send(), counters)
		eg.Go(func() error {
			// Only a clock failure is fatal to the daemon; any other exit
			// ends this peer's task alone.
			err := task.Run(ctx)
			if err != nil && ctx.Err() == nil && !errors.Is(err, clock.ErrUnavailable) {
				log.WithField("peer", pc.Address).WithError(err).Info("peer task exited")
				return nil
			}
			return err
		})
	}

	for _, rc := range cfg.Refclocks {
		rc := rc
		src, err := refclock.Open(rc.Device, rc.BaudRate, rc.Stratum)
		if err != nil {
			return fmt.Errorf("opening refclock %s: %w", rc.Device, err)
		}
		p := peer.New(protocol.ReferenceId(0), ourID)
		task := refclock.NewTask(rc.Device, src, p, clk, coord.Send())
		task.SystemLeap = sysView.leap
		task.SystemPrecisionSeconds = sysView.systemPrecisionSeconds
		eg.Go(func() error { return task.Run(ctx) })
	}

	if cfg.MetricsAddr != "" {
		server := statsserver.New(counters, coord, peerStatsByID)
		eg.Go(func() error { return server.ListenAndServe(cfg.MetricsAddr) })
	}

	eg.Go(func() error {
		time.Sleep(2 * time.Second)
		if supported, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
			log.WithError(err).Warn("sd_notify failed")
		} else if !supported {
			log.Debug("sd_notify not supported")
		}
		return nil
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
