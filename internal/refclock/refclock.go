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

// Package refclock models a serial/PPS-attached local reference clock
// (e.g. a GPS receiver emitting NMEA sentences) as a synthetic stratum-0
// peer, per SPEC_FULL.md §12. It is not present in the distilled spec's
// filter/selection core, but every real NTP daemon needs at least one
// local time source to anchor a cold-start selection round.
//
// A refclock has no round-trip exchange, so it bypasses SampleBuilder
// entirely: its samples are injected directly into clock_filter with
// offset zero and a small fixed dispersion reflecting receiver accuracy.
package refclock

import (
	"bufio"
	"fmt"
	"strings"

	serial "go.bug.st/serial"

	"github.com/facebook/ntpcore/internal/clock"
	"github.com/facebook/ntpcore/ntp/filter"
	"github.com/facebook/ntpcore/ntp/protocol"
)

// nmeaFixPrefixes are the sentence types this reader treats as carrying a
// time fix. Sentences of other types are read and discarded.
var nmeaFixPrefixes = []string{"$GPRMC", "$GNRMC", "$GPZDA", "$GNZDA"}

// Source is a serial-attached local reference clock.
type Source struct {
	device     string
	port       serial.Port
	reader     *bufio.Reader
	stratum    uint8
	dispersion protocol.NtpDuration
}

// Open opens device at baud and wraps it as a refclock Source reporting
// stratum (normally 0, so it outranks every network peer in the survivor
// metric). The refclock Task does not run AcceptForSelection.
func Open(device string, baud int, stratum uint8) (*Source, error) {
	mode := &serial.Mode{BaudRate: baud}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("refclock: opening %s: %w", device, err)
	}
	return &Source{
		device:     device,
		port:       port,
		reader:     bufio.NewReader(port),
		stratum:    stratum,
		dispersion: protocol.DurationFromSeconds(0.001),
	}, nil
}

// Stratum reports the configured stratum of this reference clock.
func (s *Source) Stratum() uint8 { return s.stratum }

// Close releases the serial port.
func (s *Source) Close() error { return s.port.Close() }

// ErrNoFix is returned by ReadSample when a line was read but did not
// carry a recognized time-fix sentence; callers should simply retry.
type ErrNoFix struct{ Sentence string }

func (e ErrNoFix) Error() string {
	return fmt.Sprintf("refclock: %q is not a recognized fix sentence", e.Sentence)
}

// ReadSample blocks for the next line from the device and, if it is a
// recognized fix sentence, returns a FilterSample timestamped by clk. A
// refclock is definitionally correct about elapsed time relative to
// itself, so Offset is always zero; only Dispersion bounds the
// uncertainty of the fix.
func (s *Source) ReadSample(clk clock.Clock) (filter.Sample, error) {
	line, err := s.reader.ReadString('\n')
	if err != nil {
		return filter.Sample{}, fmt.Errorf("refclock: reading %s: %w", s.device, err)
	}
	line = strings.TrimSpace(line)
	if !isFixSentence(line) {
		return filter.Sample{}, ErrNoFix{Sentence: line}
	}

	now, err := clk.Now()
	if err != nil {
		return filter.Sample{}, clock.ErrUnavailable
	}
	return filter.Sample{
		Offset:     protocol.DurationZero,
		Delay:      protocol.DurationZero,
		Dispersion: s.dispersion,
		Time:       now,
	}, nil
}

func isFixSentence(line string) bool {
	for _, prefix := range nmeaFixPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
