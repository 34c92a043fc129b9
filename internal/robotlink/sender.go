package robotlink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"

	"github.com/banshee-data/tablepose/internal/timeutil"
)

// ErrSenderClosed is returned by Send after Close.
var ErrSenderClosed = errors.New("robot link sender closed")

// Sender delivers encoded packets to the robot.
type Sender interface {
	Send(packet []byte) error
}

// SenderStats counts queued, written and lost packets.
type SenderStats struct {
	Sent        uint64
	Dropped     uint64
	WriteErrors uint64
}

// AsyncSender queues packets and writes them to an underlying connection
// from its own goroutine. When the queue is full the packet is dropped and
// counted; drops and write failures are reported on the ops stream once per
// log interval.
type AsyncSender struct {
	name        string
	conn        io.WriteCloser
	channel     chan []byte
	clock       timeutil.Clock
	logInterval time.Duration

	sent        atomic.Uint64
	dropped     atomic.Uint64
	writeErrors atomic.Uint64

	mu      sync.RWMutex
	closed  bool
	started atomic.Bool
	stopped chan struct{}
}

// NewAsyncSender wraps conn. name identifies the link in logs, e.g.
// "udp 192.168.0.50:4210".
func NewAsyncSender(name string, conn io.WriteCloser, queueSize int, logInterval time.Duration, clock timeutil.Clock) *AsyncSender {
	if queueSize <= 0 {
		queueSize = 64
	}
	if logInterval <= 0 {
		logInterval = 10 * time.Second
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &AsyncSender{
		name:        name,
		conn:        conn,
		channel:     make(chan []byte, queueSize),
		clock:       clock,
		logInterval: logInterval,
		stopped:     make(chan struct{}),
	}
}

// DialUDP opens a connected UDP socket to the robot.
func DialUDP(addr string, port int) (io.WriteCloser, string, error) {
	target := net.JoinHostPort(addr, fmt.Sprint(port))
	udpAddr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve robot address: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create robot connection: %w", err)
	}
	return conn, "udp " + target, nil
}

// SerialOpener opens a serial port; serial.Open in production.
type SerialOpener func(path string, mode *serial.Mode) (serial.Port, error)

// OpenSerial opens the robot's serial port with opts. A nil opener uses
// serial.Open.
func OpenSerial(path string, opts PortOptions, opener SerialOpener) (io.WriteCloser, string, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, "", fmt.Errorf("serial options: %w", err)
	}
	if opener == nil {
		opener = serial.Open
	}
	port, err := opener(path, mode)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open serial port %s: %w", path, err)
	}
	return port, fmt.Sprintf("serial %s@%d", path, mode.BaudRate), nil
}

// Start runs the writer goroutine until ctx is done or Close is called.
func (s *AsyncSender) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go s.run(ctx)
	diagf("forwarding robot packets to %s", s.name)
}

func (s *AsyncSender) run(ctx context.Context) {
	defer close(s.stopped)

	var lastDropped, lastErrors uint64
	var lastError error
	ticker := s.clock.NewTicker(s.logInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case packet, ok := <-s.channel:
			if !ok {
				return
			}
			if _, err := s.conn.Write(packet); err != nil {
				s.writeErrors.Add(1)
				lastError = err
				continue
			}
			s.sent.Add(1)
			tracef("%s: sent %d bytes", s.name, len(packet))
		case <-ticker.C():
			dropped, errs := s.dropped.Load(), s.writeErrors.Load()
			if dropped > lastDropped {
				opsf("%s: dropped %d packets (queue full)", s.name, dropped-lastDropped)
			}
			if errs > lastErrors {
				opsf("%s: %d packet writes failed (latest: %v)", s.name, errs-lastErrors, lastError)
			}
			lastDropped, lastErrors = dropped, errs
		}
	}
}

// Send queues a copy of packet without blocking.
func (s *AsyncSender) Send(packet []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSenderClosed
	}

	packetCopy := make([]byte, len(packet))
	copy(packetCopy, packet)

	select {
	case s.channel <- packetCopy:
	default:
		s.dropped.Add(1)
	}
	return nil
}

// Stats returns the sender counters.
func (s *AsyncSender) Stats() SenderStats {
	return SenderStats{
		Sent:        s.sent.Load(),
		Dropped:     s.dropped.Load(),
		WriteErrors: s.writeErrors.Load(),
	}
}

// Close stops accepting packets, waits for a started writer to drain the
// queue and closes the connection.
func (s *AsyncSender) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.channel)
	s.mu.Unlock()

	if s.started.Load() {
		<-s.stopped
	}
	return s.conn.Close()
}
