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

package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/shirou/gopsutil/load"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/facebook/ntpcore/internal/statsserver"
)

func init() {
	RootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current survivor set and selection counters",
	Long:  "Print ntpcored's current truechimer survivor set, like `ntpq -p`, plus host load for on-call triage.",
	RunE: func(_ *cobra.Command, _ []string) error {
		ConfigureVerbosity()
		return statusRun(rootAddrFlag)
	},
}

func statusRun(addr string) error {
	colorEnabled := term.IsTerminal(int(os.Stdout.Fd()))
	color.NoColor = !colorEnabled

	survivors, err := statsserver.FetchSurvivors(addr)
	if err != nil {
		return fmt.Errorf("fetching survivors from %s: %w", addr, err)
	}
	counters, err := statsserver.FetchCounters(addr)
	if err != nil {
		return fmt.Errorf("fetching counters from %s: %w", addr, err)
	}
	quality, err := statsserver.FetchQuality(addr)
	if err != nil {
		return fmt.Errorf("fetching quality from %s: %w", addr, err)
	}

	sort.Slice(survivors, func(i, j int) bool { return survivors[i].Metric < survivors[j].Metric })

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"peer", "metric (s)", "score", "offset stddev (s)"})
	for i, s := range survivors {
		label := s.ID
		if i == 0 {
			label = color.GreenString("%s (selected)", s.ID)
		}
		scoreCol, stddevCol := "n/a", "n/a"
		if q, ok := quality[s.ID]; ok && q.HasSamples {
			scoreCol = fmt.Sprintf("%.6f", q.Score)
			stddevCol = fmt.Sprintf("%.6f", q.OffsetStddev)
		}
		table.Append([]string{label, fmt.Sprintf("%.6f", s.Metric.Seconds()), scoreCol, stddevCol})
	}
	table.Render()

	fmt.Printf("selection rounds: %d, no-quorum rounds: %d, accepted samples: %d\n",
		counters["selection.rounds"], counters["selection.no_quorum"], counters["accepted"])

	if avg, err := load.Avg(); err != nil {
		log.WithError(err).Debug("host load average unavailable")
	} else {
		fmt.Printf("host load: %.2f %.2f %.2f\n", avg.Load1, avg.Load5, avg.Load15)
	}
	return nil
}
