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

// Package wireudp is a minimal default implementation of the "consumed
// from the socket abstraction" collaborator named in SPEC_FULL.md §6. The
// wire-format codec is explicitly out of scope for the clock-filter core
// itself, but cmd/ntpcored needs some concrete peertask.Socket to be a
// runnable daemon; this is the smallest one that round-trips a real NTP
// v4 client packet over UDP. NTS, extension fields, and authentication
// are not implemented.
package wireudp

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"github.com/facebook/ntpcore/internal/clock"
	"github.com/facebook/ntpcore/ntp/protocol"
)

const packetLen = 48

// wireHeader is the on-the-wire layout of an NTP v4 header, in the field
// order and sizes of RFC 5905 Figure 8.
type wireHeader struct {
	LiVnMode       uint8
	Stratum        uint8
	Poll           int8
	Precision      int8
	RootDelay      uint32
	RootDispersion uint32
	ReferenceID    uint32
	ReferenceTime  uint64
	OriginTime     uint64
	ReceiveTime    uint64
	TransmitTime   uint64
}

const ntpVersion = 4

// Socket is a connected client-mode NTP association over UDP, implementing
// peertask.Socket.
type Socket struct {
	conn   *net.UDPConn
	clk    clock.Clock
	origin protocol.NtpTimestamp
}

// Dial resolves addr (host or host:port, default port 123) and connects a
// UDP socket to it.
func Dial(addr string, clk clock.Clock) (*Socket, error) {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "123")
	}
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("wireudp: resolving %s: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("wireudp: dialing %s: %w", addr, err)
	}
	return &Socket{conn: conn, clk: clk}, nil
}

// Send transmits a client-mode request and returns the local send
// timestamp, which becomes the origin timestamp the server will echo back.
func (s *Socket) Send(ctx context.Context) (protocol.NtpTimestamp, error) {
	now, err := s.clk.Now()
	if err != nil {
		return 0, clock.ErrUnavailable
	}
	s.origin = now

	h := wireHeader{
		LiVnMode:     (uint8(protocol.LeapNoWarning) << 6) | (ntpVersion << 3) | uint8(protocol.ModeClient),
		Poll:         protocol.MinPollExponent,
		Precision:    -20,
		TransmitTime: uint64(now),
	}
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, h); err != nil {
		return 0, fmt.Errorf("wireudp: encoding request: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetWriteDeadline(deadline)
	}
	if _, err := s.conn.Write(buf.Bytes()); err != nil {
		return 0, fmt.Errorf("wireudp: writing request: %w", err)
	}
	return now, nil
}

// Receive blocks for the next datagram and returns its parsed header plus
// the local receive timestamp (T4).
func (s *Socket) Receive(ctx context.Context) (protocol.Header, protocol.NtpTimestamp, error) {
	var raw [packetLen]byte
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetReadDeadline(deadline)
	} else {
		_ = s.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	}

	n, err := s.conn.Read(raw[:])
	destination, clkErr := s.clk.Now()
	if clkErr != nil {
		return protocol.Header{}, 0, clock.ErrUnavailable
	}
	if err != nil {
		return protocol.Header{}, destination, fmt.Errorf("wireudp: reading response: %w", err)
	}
	if n < packetLen {
		return protocol.Header{}, destination, fmt.Errorf("wireudp: short response (%d bytes)", n)
	}

	var h wireHeader
	if err := binary.Read(bytes.NewReader(raw[:packetLen]), binary.BigEndian, &h); err != nil {
		return protocol.Header{}, destination, fmt.Errorf("wireudp: decoding response: %w", err)
	}
	if h.OriginTime != uint64(s.origin) {
		return protocol.Header{}, destination, fmt.Errorf("wireudp: response origin timestamp does not match our last request")
	}

	parsed := protocol.Header{
		Leap:               protocol.LeapIndicator((h.LiVnMode >> 6) & 0x03),
		Mode:               protocol.AssociationMode(h.LiVnMode & 0x07),
		Stratum:            h.Stratum,
		Poll:               h.Poll,
		Precision:          h.Precision,
		RootDelay:          shortFixedToDuration(h.RootDelay),
		RootDispersion:     shortFixedToDuration(h.RootDispersion),
		ReferenceID:        protocol.ReferenceId(h.ReferenceID),
		ReferenceTimestamp: protocol.NtpTimestamp(h.ReferenceTime),
		OriginTimestamp:    protocol.NtpTimestamp(h.OriginTime),
		ReceiveTimestamp:   protocol.NtpTimestamp(h.ReceiveTime),
		TransmitTimestamp:  protocol.NtpTimestamp(h.TransmitTime),
	}
	return parsed, destination, nil
}

// Close releases the underlying UDP socket.
func (s *Socket) Close() error {
	return s.conn.Close()
}

// shortFixedToDuration widens a wire Q16.16 short-format fixed-point value
// (used only for RootDelay/RootDispersion) into the core's Q32.32
// NtpDuration representation.
func shortFixedToDuration(v uint32) protocol.NtpDuration {
	return protocol.NtpDuration(int64(v) << 16)
}
