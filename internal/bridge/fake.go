package bridge

import "sync"

// Published is one message recorded by FakeTransport.
type Published struct {
	Topic    string
	Payload  []byte
	Retained bool
}

// FakeTransport records publishes and lets tests deliver inbound messages.
type FakeTransport struct {
	mu sync.Mutex

	handlers  map[string]func([]byte)
	published []Published
	closed    bool

	// SubscribeError, if set, is returned by Subscribe.
	SubscribeError error
	// PublishError, if set, is returned by Publish.
	PublishError error
}

func NewFakeTransport() *FakeTransport {
	return &FakeTransport{handlers: make(map[string]func([]byte))}
}

func (f *FakeTransport) Subscribe(topic string, handler func([]byte)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SubscribeError != nil {
		return f.SubscribeError
	}
	f.handlers[topic] = handler
	return nil
}

func (f *FakeTransport) Publish(topic string, payload []byte, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.published = append(f.published, Published{Topic: topic, Payload: payload, Retained: retained})
	return nil
}

func (f *FakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Deliver simulates a broker message on topic. It reports whether anyone was subscribed.
func (f *FakeTransport) Deliver(topic string, payload []byte) bool {
	f.mu.Lock()
	h := f.handlers[topic]
	f.mu.Unlock()
	if h == nil {
		return false
	}
	h(payload)
	return true
}

// Messages returns a copy of everything published so far.
func (f *FakeTransport) Messages() []Published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Published(nil), f.published...)
}

// Closed reports whether Close was called.
func (f *FakeTransport) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
