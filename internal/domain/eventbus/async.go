package eventbus

import (
	"sync"

	evbus "github.com/asaskevich/EventBus"
)

// AsyncEventBus delivers events through a bounded worker pool so slow
// subscribers never stall an invocation.
type AsyncEventBus struct {
	bus      evbus.Bus
	workers  int
	workChan chan asyncEvent
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type asyncEvent struct {
	topic string
	args  []interface{}
}

// NewAsyncEventBus creates an asynchronous bus with the given worker count.
func NewAsyncEventBus(workers int) *AsyncEventBus {
	if workers <= 0 {
		workers = 4
	}
	return &AsyncEventBus{
		bus:      evbus.New(),
		workers:  workers,
		workChan: make(chan asyncEvent, 256),
		stopChan: make(chan struct{}),
	}
}

// Start launches the delivery workers.
func (b *AsyncEventBus) Start() {
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.worker()
	}
}

// Stop shuts down delivery and waits for in-flight events.
func (b *AsyncEventBus) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopChan)
	})
	b.wg.Wait()
}

func (b *AsyncEventBus) worker() {
	defer b.wg.Done()

	for {
		select {
		case <-b.stopChan:
			return
		case event := <-b.workChan:
			func() {
				defer func() {
					// a panicking subscriber must not kill the worker
					_ = recover()
				}()
				b.bus.Publish(event.topic, event.args...)
			}()
		}
	}
}

// PublishAsync queues an event; when the buffer is full the event is dropped
// rather than blocking the publisher.
func (b *AsyncEventBus) PublishAsync(topic string, args ...interface{}) {
	select {
	case b.workChan <- asyncEvent{topic: topic, args: args}:
	default:
	}
}

// Subscribe registers a handler for a topic.
func (b *AsyncEventBus) Subscribe(topic string, fn interface{}) error {
	return b.bus.Subscribe(topic, fn)
}

// Unsubscribe removes a handler for a topic.
func (b *AsyncEventBus) Unsubscribe(topic string, fn interface{}) error {
	return b.bus.Unsubscribe(topic, fn)
}

// HasCallback reports whether the topic has subscribers.
func (b *AsyncEventBus) HasCallback(topic string) bool {
	return b.bus.HasCallback(topic)
}
