// Package twbus is the message bus execution contexts use to tell each
// other the project changed: an in-process broadcast with a websocket
// bridge so that browser tabs, editors and other processes share it.
package twbus

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gotailwindcss/windpress/twvfs"
)

// Channel is the name every windpress message travels on.
const Channel = "windpress"

// Tasks carried by messages.
const (
	// TaskVFSUpdated carries a replacement project as an encoded VFS in
	// Payload.
	TaskVFSUpdated = "vfs.updated"
	// TaskContentSaved tells the project was saved: design systems reload
	// and intellisense caches are dropped.
	TaskContentSaved = "content.saved"
	// TaskCacheGenerate asks the cache builder to run, Data holds the
	// build options.
	TaskCacheGenerate = "cache.generate"
)

// Message is what the bus carries. Data and Payload are used by tasks as
// they need.
type Message struct {
	Channel string          `json:"channel,omitempty"`
	Source  string          `json:"source"`
	Target  string          `json:"target,omitempty"`
	Task    string          `json:"task"`
	Data    json.RawMessage `json:"data,omitempty"`
	Payload string          `json:"payload,omitempty"`
}

// VFSUpdated returns the message announcing vol as the new project.
func VFSUpdated(source string, vol *twvfs.Volume) (Message, error) {
	enc, err := vol.Encode()
	if err != nil {
		return Message{}, err
	}
	return Message{Channel: Channel, Source: source, Task: TaskVFSUpdated, Payload: enc}, nil
}

// Volume decodes the project of a TaskVFSUpdated message.
func (m Message) Volume() (*twvfs.Volume, error) {
	return twvfs.DecodeVolume(m.Payload)
}

// For reports whether m is addressed to name: untargeted messages are for
// everyone.
func (m Message) For(name string) bool {
	return m.Target == "" || m.Target == name
}

type subscriber struct {
	ch     chan Message
	origin int
}

// Bus broadcasts messages to its subscribers. It is safe for concurrent
// use. Publishing never blocks: a subscriber whose buffer is full misses
// the message and a warning is logged.
type Bus struct {
	logger *slog.Logger

	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
	closed bool
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger.
func WithLogger(lg *slog.Logger) Option { return func(b *Bus) { b.logger = lg } }

// New returns an empty bus.
func New(opts ...Option) *Bus {
	b := &Bus{logger: slog.Default(), subs: make(map[int]*subscriber)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish sends m to every subscriber. Messages for another channel are
// dropped.
func (b *Bus) Publish(m Message) {
	b.publish(m, 0)
}

func (b *Bus) publish(m Message, origin int) {
	if m.Channel == "" {
		m.Channel = Channel
	}
	if m.Channel != Channel {
		b.logger.Debug("bus message for another channel dropped", "channel", m.Channel, "task", m.Task)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for id, s := range b.subs {
		if origin != 0 && s.origin == origin {
			continue
		}
		select {
		case s.ch <- m:
		default:
			b.logger.Warn("bus subscriber is behind, message dropped", "subscriber", id, "task", m.Task)
		}
	}
}

// Subscribe returns a channel receiving the messages published from now
// on, and the function ending the subscription.
func (b *Bus) Subscribe(buffer int) (<-chan Message, func()) {
	return b.subscribe(buffer, 0)
}

func (b *Bus) subscribe(buffer, origin int) (<-chan Message, func()) {
	if buffer < 1 {
		buffer = 16
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	ch := make(chan Message, buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[id] = &subscriber{ch: ch, origin: origin}
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if s, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(s.ch)
			}
		})
	}
}

// newOrigin reserves an id for a bridge so it does not receive its own
// messages back.
func (b *Bus) newOrigin() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	return b.nextID
}

// Len returns the number of subscribers.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close ends every subscription.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, s := range b.subs {
		close(s.ch)
		delete(b.subs, id)
	}
}
