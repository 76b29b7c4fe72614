// Package transport opens the byte streams the protocol runs over: a
// serial port to real hardware, or a TCP socket to the emulator.
package transport

import (
	"fmt"
	"io"
	"net"
	"time"
)

// Stream is one open duplex link. Reads may return partial frames;
// framing is the protocol layer's job.
type Stream = io.ReadWriteCloser

// DialTCP connects to an emulator endpoint like "localhost:9000".
func DialTCP(addr string, timeout time.Duration) (Stream, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetNoDelay(true)
	}
	return conn, nil
}
