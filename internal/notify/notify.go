// Package notify carries user-visible outcome messages from mutation
// coordinators to whatever surface renders them.
package notify

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Level classifies a notification.
type Level uint8

const (
	// LevelSuccess reports a settled mutation that succeeded.
	LevelSuccess Level = iota + 1
	// LevelError reports a settled mutation that failed.
	LevelError
)

// String returns the level's display name.
func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Notification is one transient user-visible message.
type Notification struct {
	ID        string
	Level     Level
	Message   string
	CreatedAt time.Time
}

// Notifier receives exactly one notification per settled mutation attempt.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// newNotification stamps a message with an id and timestamp.
func newNotification(level Level, message string) Notification {
	return Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: time.Now(),
	}
}

// Logger is a Notifier that writes notifications to a zap logger.
type Logger struct {
	logger *zap.Logger
}

// NewLogger creates a zap-backed Notifier.
func NewLogger(logger *zap.Logger) *Logger {
	return &Logger{logger: logger.Named("notify")}
}

// Success implements Notifier.
func (l *Logger) Success(message string) {
	n := newNotification(LevelSuccess, message)
	l.logger.Info("Notification",
		zap.String("id", n.ID),
		zap.String("level", n.Level.String()),
		zap.String("message", n.Message))
}

// Error implements Notifier.
func (l *Logger) Error(message string) {
	n := newNotification(LevelError, message)
	l.logger.Warn("Notification",
		zap.String("id", n.ID),
		zap.String("level", n.Level.String()),
		zap.String("message", n.Message))
}

// Channel is a Notifier that buffers notifications for a consumer such as
// the CLI or tests. Delivery never blocks the mutation path; when the
// buffer is full the oldest notification is evicted.
type Channel struct {
	ch chan Notification
}

// NewChannel creates a channel-backed Notifier with the given buffer size.
func NewChannel(buffer int) *Channel {
	return &Channel{ch: make(chan Notification, buffer)}
}

// Success implements Notifier.
func (c *Channel) Success(message string) {
	c.push(newNotification(LevelSuccess, message))
}

// Error implements Notifier.
func (c *Channel) Error(message string) {
	c.push(newNotification(LevelError, message))
}

func (c *Channel) push(n Notification) {
	for {
		select {
		case c.ch <- n:
			return
		default:
			// Evict the oldest so the newest outcome is never lost.
			select {
			case <-c.ch:
			default:
			}
		}
	}
}

// Notifications exposes the buffered notifications.
func (c *Channel) Notifications() <-chan Notification {
	return c.ch
}

// Multi fans every notification out to several notifiers.
type Multi struct {
	notifiers []Notifier
}

// NewMulti creates a fan-out Notifier.
func NewMulti(notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers}
}

// Success implements Notifier.
func (m *Multi) Success(message string) {
	for _, n := range m.notifiers {
		n.Success(message)
	}
}

// Error implements Notifier.
func (m *Multi) Error(message string) {
	for _, n := range m.notifiers {
		n.Error(message)
	}
}
