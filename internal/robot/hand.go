// Package robot drives the robotic hand over a serial link: auto-detected
// port, FIFO message queue and a paced background writer.
package robot

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"
)

// Paced delay between consecutive serial messages so the device keeps up.
const messagePacing = 500 * time.Millisecond

const joinTimeout = 3 * time.Second

// identifyCommand and identifyReply form the handshake used to probe ports
// whose USB description does not match any configured identifier.
const (
	identifyCommand = "IDENTIFICAR"
	identifyReply   = "MANO_ROBOTICA"
)

// Port is the serial connection used by the hand. serial.Port satisfies it;
// tests substitute an in-memory fake.
type Port interface {
	io.ReadWriteCloser
}

// Config holds the serial link settings.
type Config struct {
	Port        string
	BaudRate    int
	Timeout     time.Duration
	Identifiers []string
}

// DefaultConfig returns the standard Arduino link settings.
func DefaultConfig() Config {
	return Config{
		BaudRate:    9600,
		Timeout:     2 * time.Second,
		Identifiers: []string{"Arduino", "CH340", "USB Serial"},
	}
}

// Hand manages the robotic hand connection and its outgoing message queue.
type Hand struct {
	logger *zap.Logger
	config Config

	mu         sync.Mutex
	cond       *sync.Cond
	queue      []string
	port       Port
	portName   string
	connected  bool
	stopping   bool
	writerDone chan struct{}

	pacing time.Duration
	sleep  func(time.Duration)

	openPort  func(name string, baud int) (Port, error)
	listPorts func() ([]*enumerator.PortDetails, error)
}

// NewHand creates a hand controller. Call Connect before sending.
func NewHand(config Config, logger *zap.Logger) *Hand {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hand{
		logger:    logger,
		config:    config,
		pacing:    messagePacing,
		sleep:     time.Sleep,
		openPort:  openSerialPort,
		listPorts: enumerator.GetDetailedPortsList,
	}
	h.cond = sync.NewCond(&h.mu)
	return h
}

func openSerialPort(name string, baud int) (Port, error) {
	return serial.Open(name, &serial.Mode{BaudRate: baud})
}

// Connect opens the configured port, or auto-detects one, and starts the
// writer. A portOverride skips detection.
func (h *Hand) Connect(portOverride string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.connected {
		return nil
	}

	name := portOverride
	if name == "" {
		name = h.config.Port
	}

	var port Port
	var err error
	if name != "" {
		port, err = h.openPort(name, h.config.BaudRate)
	} else {
		name, port, err = h.autoDetect()
	}
	if err != nil {
		return fmt.Errorf("connect robotic hand: %w", err)
	}

	h.port = port
	h.portName = name
	h.connected = true
	h.startWriterLocked()
	h.logger.Info("robotic hand connected", zap.String("port", name))
	return nil
}

// autoDetect matches enumerated ports against the configured identifier
// list first, then probes the remaining ports with the identify handshake.
func (h *Hand) autoDetect() (string, Port, error) {
	ports, err := h.listPorts()
	if err != nil {
		return "", nil, fmt.Errorf("enumerate serial ports: %w", err)
	}
	if len(ports) == 0 {
		return "", nil, fmt.Errorf("no serial ports present")
	}

	var unmatched []string
	for _, p := range ports {
		if h.matchesIdentifier(p.Product) {
			port, err := h.openPort(p.Name, h.config.BaudRate)
			if err != nil {
				h.logger.Warn("matched port failed to open",
					zap.String("port", p.Name), zap.Error(err))
				continue
			}
			return p.Name, port, nil
		}
		unmatched = append(unmatched, p.Name)
	}

	for _, name := range unmatched {
		port, err := h.openPort(name, h.config.BaudRate)
		if err != nil {
			continue
		}
		if h.handshake(port) {
			return name, port, nil
		}
		port.Close()
	}

	return "", nil, fmt.Errorf("no robotic hand found among %d ports", len(ports))
}

func (h *Hand) matchesIdentifier(product string) bool {
	for _, id := range h.config.Identifiers {
		if id != "" && strings.Contains(strings.ToLower(product), strings.ToLower(id)) {
			return true
		}
	}
	return false
}

// handshake writes the identify command and checks for the expected reply
// within the configured timeout.
func (h *Hand) handshake(port Port) bool {
	if _, err := port.Write([]byte(identifyCommand + "\n")); err != nil {
		return false
	}

	reply := make(chan bool, 1)
	go func() {
		buf := make([]byte, 64)
		n, err := port.Read(buf)
		reply <- err == nil && strings.Contains(string(buf[:n]), identifyReply)
	}()

	timeout := h.config.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	select {
	case ok := <-reply:
		return ok
	case <-time.After(timeout):
		return false
	}
}

// Connected reports whether a port is open.
func (h *Hand) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected
}

// PortName returns the connected port, or "" when disconnected.
func (h *Hand) PortName() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.portName
}

// Send enqueues a message for the paced writer. Non-blocking; dropped with
// a log when disconnected.
func (h *Hand) Send(message string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.connected {
		h.logger.Debug("robotic hand disconnected, dropping message",
			zap.String("message", message))
		return
	}
	h.queue = append(h.queue, message)
	h.cond.Signal()
}

// SendDirect writes a message immediately, bypassing the queue and pacing.
func (h *Hand) SendDirect(message string) error {
	h.mu.Lock()
	port := h.port
	connected := h.connected
	h.mu.Unlock()

	if !connected {
		return fmt.Errorf("robotic hand not connected")
	}
	return writeLine(port, message)
}

// ClearQueue drops all pending messages.
func (h *Hand) ClearQueue() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.queue = nil
}

// QueueLen returns the number of pending messages.
func (h *Hand) QueueLen() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queue)
}

// Close drops pending messages, joins the writer with a bounded timeout and
// closes the port.
func (h *Hand) Close() error {
	h.mu.Lock()
	if !h.connected {
		h.mu.Unlock()
		return nil
	}
	h.connected = false
	h.queue = nil
	done := h.writerDone
	h.writerDone = nil
	h.stopping = true
	h.cond.Broadcast()
	h.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-time.After(joinTimeout):
			h.logger.Warn("serial writer did not stop in time")
		}
	}

	h.mu.Lock()
	port := h.port
	h.port = nil
	h.portName = ""
	h.mu.Unlock()

	if port != nil {
		return port.Close()
	}
	return nil
}

func (h *Hand) startWriterLocked() {
	h.stopping = false
	done := make(chan struct{})
	h.writerDone = done
	go h.writer(done)
}

// writer pops messages in order, writing each and pacing between them.
// Write failures are logged and the message dropped; the link is retried
// with the next message.
func (h *Hand) writer(done chan struct{}) {
	defer close(done)
	for {
		h.mu.Lock()
		for len(h.queue) == 0 && !h.stopping {
			h.cond.Wait()
		}
		if h.stopping {
			h.mu.Unlock()
			return
		}
		message := h.queue[0]
		h.queue = h.queue[1:]
		port := h.port
		h.mu.Unlock()

		if err := writeLine(port, message); err != nil {
			h.logger.Warn("serial write failed",
				zap.String("message", message), zap.Error(err))
		}
		h.sleep(h.pacing)
	}
}

func writeLine(port Port, message string) error {
	if port == nil {
		return fmt.Errorf("port closed")
	}
	_, err := port.Write([]byte(message + "\n"))
	return err
}
