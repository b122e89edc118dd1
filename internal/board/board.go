// Package board mirrors the overall task completion rate onto a
// microcontroller display attached over a serial link.
//
// The wire protocol is a single ASCII line per update, "P<percent>\n",
// answered by the board with one acknowledgement line.
//
// Import rules:
//   - CAN import: internal/constants, internal/errors
//   - MUST NOT import: internal/tracker, internal/server, internal/cli
package board

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.bug.st/serial"

	"github.com/mrz1836/taskclock/internal/constants"
	tcerrors "github.com/mrz1836/taskclock/internal/errors"
)

// maxAckLen bounds how much is read while waiting for the acknowledgement line.
const maxAckLen = 256

// Notifier receives completion-rate updates.
type Notifier interface {
	NotifyCompletion(ctx context.Context, percent int) error
}

// NopNotifier discards every update. It is used when the board is disabled.
type NopNotifier struct{}

// NotifyCompletion implements Notifier.
func (NopNotifier) NotifyCompletion(context.Context, int) error { return nil }

// port is the part of serial.Port the notifier uses.
type port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetReadTimeout(t time.Duration) error
}

// Options configures a SerialNotifier. Unset fields take the package
// defaults, except SettleDelay and RetryDelay where zero means no wait.
type Options struct {
	Port          string
	BaudRate      int
	ReadTimeout   time.Duration
	SettleDelay   time.Duration
	ResponseDelay time.Duration
	Retries       int
	RetryDelay    time.Duration
}

func (o Options) withDefaults() Options {
	if o.Port == "" {
		o.Port = constants.DefaultBoardPort
	}
	if o.BaudRate <= 0 {
		o.BaudRate = constants.DefaultBoardBaudRate
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = constants.DefaultBoardReadTimeout
	}
	if o.SettleDelay < 0 {
		o.SettleDelay = 0
	}
	if o.ResponseDelay <= 0 {
		o.ResponseDelay = constants.DefaultBoardResponseDelay
	}
	if o.Retries <= 0 {
		o.Retries = constants.DefaultBoardRetries
	}
	if o.RetryDelay < 0 {
		o.RetryDelay = 0
	}
	return o
}

// SerialNotifier writes completion updates to the display board.
// Updates are serialized; only one open of the port is in flight at a time.
type SerialNotifier struct {
	opts   Options
	logger zerolog.Logger

	mu sync.Mutex

	listPorts func() ([]string, error)
	open      func(name string, baud int) (port, error)
}

// NewSerialNotifier creates a SerialNotifier for the configured port.
func NewSerialNotifier(opts Options, logger zerolog.Logger) *SerialNotifier {
	return &SerialNotifier{
		opts:      opts.withDefaults(),
		logger:    logger.With().Str("component", "board").Logger(),
		listPorts: serial.GetPortsList,
		open:      openSerial,
	}
}

func openSerial(name string, baud int) (port, error) {
	return serial.Open(name, &serial.Mode{BaudRate: baud})
}

// NotifyCompletion sends percent, clamped to 0..100, to the board.
// A port that is not present fails immediately with ErrBoardUnavailable;
// open, write and acknowledgement failures are retried.
func (n *SerialNotifier) NotifyCompletion(ctx context.Context, percent int) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	ports, err := n.listPorts()
	if err != nil {
		return fmt.Errorf("failed to list serial ports: %w: %w", tcerrors.ErrBoardUnavailable, err)
	}
	n.logger.Debug().Strs("ports", ports).Msg("serial ports listed")
	if !slices.Contains(ports, n.opts.Port) {
		return fmt.Errorf("port %s: %w", n.opts.Port, tcerrors.ErrBoardUnavailable)
	}

	percent = max(0, min(100, percent))
	command := fmt.Sprintf("P%d\n", percent)

	var lastErr error
	for attempt := 1; attempt <= n.opts.Retries; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, n.opts.RetryDelay); err != nil {
				return err
			}
		}

		reply, err := n.send(ctx, command)
		if err == nil {
			n.logger.Info().
				Int("completion_rate", percent).
				Str("reply", reply).
				Msg("completion rate sent to board")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = err
		n.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("retries", n.opts.Retries).
			Msg("board communication failed")
	}

	return fmt.Errorf("failed to notify board after %d attempts: %w", n.opts.Retries, lastErr)
}

// send performs one open-settle-write-read exchange and returns the reply.
func (n *SerialNotifier) send(ctx context.Context, command string) (string, error) {
	p, err := n.open(n.opts.Port, n.opts.BaudRate)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", n.opts.Port, err)
	}
	defer func() { _ = p.Close() }()

	if err := p.SetReadTimeout(n.opts.ReadTimeout); err != nil {
		return "", fmt.Errorf("failed to set read timeout: %w", err)
	}

	if err := sleep(ctx, n.opts.SettleDelay); err != nil {
		return "", err
	}

	if _, err := p.Write([]byte(command)); err != nil {
		return "", fmt.Errorf("failed to write %q: %w", strings.TrimSpace(command), err)
	}

	if err := sleep(ctx, n.opts.ResponseDelay); err != nil {
		return "", err
	}

	reply, err := readLine(p)
	if err != nil {
		return "", fmt.Errorf("failed to read acknowledgement: %w", err)
	}
	if reply == "" {
		return "", tcerrors.ErrBoardNoResponse
	}
	return reply, nil
}

// readLine reads up to the first newline. A zero-byte read means the port's
// read timeout elapsed.
func readLine(p port) (string, error) {
	var line []byte
	buf := make([]byte, 64)
	for len(line) < maxAckLen {
		n, err := p.Read(buf)
		if err != nil {
			return "", err
		}
		if n == 0 {
			break
		}
		line = append(line, buf[:n]...)
		if i := slices.Index(line, '\n'); i >= 0 {
			line = line[:i]
			break
		}
	}
	return strings.TrimSpace(string(line)), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
