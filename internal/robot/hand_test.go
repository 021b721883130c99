package robot

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"
)

// fakePort records written lines and can reply to the identify handshake.
type fakePort struct {
	mu      sync.Mutex
	written []string
	reply   string
	replied bool
	closed  bool
	failAll bool
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAll {
		return 0, fmt.Errorf("write error")
	}
	p.written = append(p.written, strings.TrimSuffix(string(b), "\n"))
	return len(b), nil
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reply == "" || p.replied {
		return 0, fmt.Errorf("nothing to read")
	}
	p.replied = true
	return copy(b, p.reply), nil
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePort) lines() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.written))
	copy(out, p.written)
	return out
}

func (p *fakePort) waitLines(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if lines := p.lines(); len(lines) >= n {
			return lines
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d lines, got %v", n, p.lines())
	return nil
}

func newTestHand(port *fakePort) *Hand {
	h := NewHand(DefaultConfig(), nil)
	h.openPort = func(name string, baud int) (Port, error) { return port, nil }
	h.pacing = time.Millisecond
	return h
}

func TestSendPreservesOrder(t *testing.T) {
	port := &fakePort{}
	h := newTestHand(port)
	require.NoError(t, h.Connect("/dev/ttyUSB0"))
	defer h.Close()

	h.Send("saludar")
	h.Send("dibujar")
	h.Send("reposo")

	assert.Equal(t, []string{"saludar", "dibujar", "reposo"}, port.waitLines(t, 3))
}

func TestWriterPacesMessages(t *testing.T) {
	port := &fakePort{}
	h := newTestHand(port)

	var mu sync.Mutex
	var slept []time.Duration
	h.sleep = func(d time.Duration) {
		mu.Lock()
		slept = append(slept, d)
		mu.Unlock()
	}
	h.pacing = messagePacing

	require.NoError(t, h.Connect("/dev/ttyUSB0"))
	defer h.Close()

	h.Send("a")
	h.Send("b")
	port.waitLines(t, 2)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, slept)
	assert.Equal(t, messagePacing, slept[0])
}

func TestSendWhileDisconnectedIsDropped(t *testing.T) {
	h := newTestHand(&fakePort{})

	h.Send("nada")
	assert.Zero(t, h.QueueLen())
	assert.Error(t, h.SendDirect("nada"))
}

func TestSendDirectBypassesQueue(t *testing.T) {
	port := &fakePort{}
	h := newTestHand(port)
	require.NoError(t, h.Connect("/dev/ttyUSB0"))
	defer h.Close()

	require.NoError(t, h.SendDirect("urgente"))
	assert.Contains(t, port.lines(), "urgente")
}

func TestCloseClosesPort(t *testing.T) {
	port := &fakePort{}
	h := newTestHand(port)
	require.NoError(t, h.Connect("/dev/ttyUSB0"))

	require.NoError(t, h.Close())
	assert.True(t, port.closed)
	assert.False(t, h.Connected())

	// Idempotent.
	assert.NoError(t, h.Close())
}

func TestAutoDetectByDescription(t *testing.T) {
	port := &fakePort{}
	h := newTestHand(port)
	h.listPorts = func() ([]*enumerator.PortDetails, error) {
		return []*enumerator.PortDetails{
			{Name: "/dev/ttyS0", Product: "Motherboard UART"},
			{Name: "/dev/ttyUSB0", Product: "CH340 serial converter"},
		}, nil
	}

	require.NoError(t, h.Connect(""))
	defer h.Close()
	assert.Equal(t, "/dev/ttyUSB0", h.PortName())
}

func TestAutoDetectHandshakeFallback(t *testing.T) {
	silent := &fakePort{}
	robot := &fakePort{reply: identifyReply + "\n"}

	h := NewHand(DefaultConfig(), nil)
	h.pacing = time.Millisecond
	h.config.Timeout = 100 * time.Millisecond
	h.openPort = func(name string, baud int) (Port, error) {
		if name == "/dev/ttyACM1" {
			return robot, nil
		}
		return silent, nil
	}
	h.listPorts = func() ([]*enumerator.PortDetails, error) {
		return []*enumerator.PortDetails{
			{Name: "/dev/ttyACM0", Product: "Some Modem"},
			{Name: "/dev/ttyACM1", Product: "Unknown Device"},
		}, nil
	}

	require.NoError(t, h.Connect(""))
	defer h.Close()

	assert.Equal(t, "/dev/ttyACM1", h.PortName())
	// The probe port that did not answer was released.
	assert.True(t, silent.closed)
}

func TestAutoDetectNoPorts(t *testing.T) {
	h := newTestHand(&fakePort{})
	h.listPorts = func() ([]*enumerator.PortDetails, error) {
		return nil, nil
	}
	assert.Error(t, h.Connect(""))
}

func TestWriteFailureIsNotFatal(t *testing.T) {
	port := &fakePort{failAll: true}
	h := newTestHand(port)
	require.NoError(t, h.Connect("/dev/ttyUSB0"))
	defer h.Close()

	h.Send("fallará")

	deadline := time.Now().Add(time.Second)
	for h.QueueLen() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Zero(t, h.QueueLen())
	assert.True(t, h.Connected())
}
