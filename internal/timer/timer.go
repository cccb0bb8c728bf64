// Package timer implements the key repeat timer on a Linux timerfd.
package timer

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"wlchewing/internal/ime"
)

// Timer posts an ime.RepeatEvent to the session loop on every expiry.
type Timer struct {
	file   *os.File
	events chan<- ime.Event
	log    *slog.Logger

	mu         sync.Mutex
	generation uint64

	closed atomic.Bool
	wg     sync.WaitGroup
}

var _ ime.Timer = (*Timer)(nil)

// New creates a disarmed timer that sends to events.
func New(events chan<- ime.Event, log *slog.Logger) (*Timer, error) {
	if log == nil {
		log = slog.Default()
	}
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("timerfd_create: %w", err)
	}
	return &Timer{
		file:   os.NewFile(uintptr(fd), "repeat-timer"),
		events: events,
		log:    log,
	}, nil
}

// Start reads expirations until ctx is done or the timer is closed.
func (t *Timer) Start(ctx context.Context) {
	t.wg.Add(1)
	go t.readLoop(ctx)
}

func (t *Timer) readLoop(ctx context.Context) {
	defer t.wg.Done()
	raw, err := t.file.SyscallConn()
	if err != nil {
		t.log.Error("repeat timer unavailable", "error", err)
		return
	}
	for {
		ev, ticks, err := t.read(raw)
		if err != nil {
			if !t.closed.Load() {
				t.log.Error("repeat timer read failed", "error", err)
			}
			return
		}
		// expirations missed while the loop was busy are coalesced
		if ticks == 0 {
			continue
		}
		select {
		case t.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// read waits for an expiry and consumes it together with the generation
// it belongs to. Both happen under mu, so an expiry of an earlier arming
// is never reported with the generation of a later one.
func (t *Timer) read(raw syscall.RawConn) (ime.RepeatEvent, uint64, error) {
	var (
		ev    ime.RepeatEvent
		ticks uint64
		rerr  error
		buf   [8]byte
	)
	err := raw.Read(func(fd uintptr) bool {
		t.mu.Lock()
		defer t.mu.Unlock()
		n, err := unix.Read(int(fd), buf[:])
		switch {
		case err == unix.EAGAIN:
			return false
		case err != nil:
			rerr = fmt.Errorf("timerfd read: %w", err)
		case n == len(buf):
			ticks = binary.NativeEndian.Uint64(buf[:])
			ev.Generation = t.generation
		}
		return true
	})
	if err != nil {
		return ev, 0, err
	}
	return ev, ticks, rerr
}

// Arm fires first after delay and then every interval. A zero delay fires
// as soon as possible.
func (t *Timer) Arm(generation uint64, delay, interval time.Duration) error {
	if delay <= 0 {
		delay = time.Nanosecond
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.generation = generation
	return t.settime(delay, interval)
}

func (t *Timer) Disarm() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.settime(0, 0)
}

func (t *Timer) settime(delay, interval time.Duration) error {
	its := unix.ItimerSpec{
		Value:    unix.NsecToTimespec(delay.Nanoseconds()),
		Interval: unix.NsecToTimespec(interval.Nanoseconds()),
	}
	raw, err := t.file.SyscallConn()
	if err != nil {
		return fmt.Errorf("timerfd: %w", err)
	}
	var serr error
	if err := raw.Control(func(fd uintptr) {
		serr = unix.TimerfdSettime(int(fd), 0, &its, nil)
	}); err != nil {
		return fmt.Errorf("timerfd: %w", err)
	}
	if serr != nil {
		return fmt.Errorf("timerfd_settime: %w", serr)
	}
	return nil
}

// Close stops the reader and releases the descriptor.
func (t *Timer) Close() error {
	t.closed.Store(true)
	err := t.file.Close()
	t.wg.Wait()
	return err
}
