// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package event

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	EventQueueSize      = 20
	AsyncQueueSize      = 1000
	AsyncWorkerPoolSize = 4
)

const (
	subscriberKindInMemory = "in-memory"
	subscriberKindRemote   = "remote"
)

type EventType string

type EventSubscriberId int

type EventHandlerFunc func(Event)

type Event struct {
	Timestamp time.Time
	Data      any
	Type      EventType
}

func NewEvent(eventType EventType, eventData any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      eventData,
	}
}

type asyncEvent struct {
	eventType EventType
	event     Event
}

// EventBus fans out state transitions to in-process and remote subscribers
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType]map[EventSubscriberId]Subscriber
	lastSubId   EventSubscriberId
	metrics     *eventMetrics
	logger      *slog.Logger

	stopMu     sync.RWMutex
	stopOpMu   sync.Mutex
	stopped    bool
	stopCh     chan struct{}
	asyncQueue chan asyncEvent
	asyncWg    sync.WaitGroup
	// tracks SubscribeFunc handler goroutines
	handlerWg sync.WaitGroup
	handlerMu sync.RWMutex
}

// NewEventBus creates an EventBus and starts its async worker pool
func NewEventBus(
	promRegistry prometheus.Registerer,
	logger *slog.Logger,
) *EventBus {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	e := &EventBus{
		subscribers: make(map[EventType]map[EventSubscriberId]Subscriber),
		logger:      logger.With("component", "event"),
	}
	if promRegistry != nil {
		e.initMetrics(promRegistry)
	}
	e.startWorkers()
	return e
}

func (e *EventBus) startWorkers() {
	e.stopMu.Lock()
	e.asyncQueue = make(chan asyncEvent, AsyncQueueSize)
	e.stopCh = make(chan struct{})
	e.stopped = false
	queue := e.asyncQueue
	stopCh := e.stopCh
	e.stopMu.Unlock()
	for range AsyncWorkerPoolSize {
		e.asyncWg.Add(1)
		go e.asyncWorker(queue, stopCh)
	}
}

func (e *EventBus) asyncWorker(queue <-chan asyncEvent, stopCh <-chan struct{}) {
	defer e.asyncWg.Done()
	for {
		select {
		case <-stopCh:
			return
		case ae := <-queue:
			e.Publish(ae.eventType, ae.event)
		}
	}
}

// Subscriber receives events from the bus. In-memory channels and network
// clients share this interface. Close must be idempotent.
type Subscriber interface {
	Deliver(Event) error
	Close()
}

// channelSubscriber backs Subscribe. Deliver never blocks: events are
// dropped when the buffer is full.
type channelSubscriber struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
	logger *slog.Logger
}

func newChannelSubscriber(buffer int, logger *slog.Logger) *channelSubscriber {
	return &channelSubscriber{
		ch:     make(chan Event, buffer),
		logger: logger,
	}
}

func (c *channelSubscriber) Deliver(evt Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	select {
	case c.ch <- evt:
	default:
		if c.logger != nil {
			c.logger.Warn(
				"subscriber queue full, dropping event",
				"type", evt.Type,
			)
		}
	}
	return nil
}

func (c *channelSubscriber) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.ch)
}

func subscriberKind(sub Subscriber) string {
	if _, ok := sub.(*channelSubscriber); ok {
		return subscriberKindInMemory
	}
	return subscriberKindRemote
}

// add registers a subscriber under a new id. The caller must hold mu.
func (e *EventBus) add(eventType EventType, sub Subscriber) EventSubscriberId {
	e.lastSubId++
	subId := e.lastSubId
	evtTypeSubs, ok := e.subscribers[eventType]
	if !ok {
		evtTypeSubs = make(map[EventSubscriberId]Subscriber)
		e.subscribers[eventType] = evtTypeSubs
	}
	evtTypeSubs[subId] = sub
	if e.metrics != nil {
		e.metrics.subscribers.WithLabelValues(
			string(eventType),
			subscriberKind(sub),
		).Inc()
	}
	return subId
}

// Subscribe returns a buffered channel receiving events of the given type
func (e *EventBus) Subscribe(
	eventType EventType,
) (EventSubscriberId, <-chan Event) {
	chSub := newChannelSubscriber(EventQueueSize, e.logger)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.add(eventType, chSub), chSub.ch
}

// SubscribeFunc runs handlerFunc for each event of the given type on a
// dedicated goroutine. A panicking handler is logged and keeps receiving.
func (e *EventBus) SubscribeFunc(
	eventType EventType,
	handlerFunc EventHandlerFunc,
) EventSubscriberId {
	// Stop must not wait on handlerWg between Subscribe and Add
	e.handlerMu.RLock()
	defer e.handlerMu.RUnlock()
	subId, evtCh := e.Subscribe(eventType)
	e.handlerWg.Add(1)
	go func() {
		defer e.handlerWg.Done()
		for evt := range evtCh {
			e.runHandler(handlerFunc, evt)
		}
	}()
	return subId
}

func (e *EventBus) runHandler(handlerFunc EventHandlerFunc, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error(
				"event handler panic",
				"type", evt.Type,
				"panic", r,
			)
		}
	}()
	handlerFunc(evt)
}

// RegisterSubscriber adds an externally implemented subscriber, such as a
// network client, and returns its id
func (e *EventBus) RegisterSubscriber(
	eventType EventType,
	sub Subscriber,
) EventSubscriberId {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.add(eventType, sub)
}

// Unsubscribe removes and closes a subscriber. Unknown ids are ignored.
func (e *EventBus) Unsubscribe(eventType EventType, subId EventSubscriberId) {
	e.mu.Lock()
	evtTypeSubs, ok := e.subscribers[eventType]
	if !ok {
		e.mu.Unlock()
		return
	}
	sub, ok := evtTypeSubs[subId]
	if !ok {
		e.mu.Unlock()
		return
	}
	delete(evtTypeSubs, subId)
	if len(evtTypeSubs) == 0 {
		delete(e.subscribers, eventType)
	}
	if e.metrics != nil {
		e.metrics.subscribers.WithLabelValues(
			string(eventType),
			subscriberKind(sub),
		).Dec()
	}
	e.mu.Unlock()
	sub.Close()
}

// Publish delivers an event synchronously to every subscriber of its type.
// Subscribers that fail or panic are unsubscribed.
func (e *EventBus) Publish(eventType EventType, evt Event) {
	type subItem struct {
		id  EventSubscriberId
		sub Subscriber
	}
	e.mu.RLock()
	subList := make([]subItem, 0, len(e.subscribers[eventType]))
	for id, sub := range e.subscribers[eventType] {
		subList = append(subList, subItem{id: id, sub: sub})
	}
	e.mu.RUnlock()
	for _, item := range subList {
		if err := deliver(item.sub, evt); err != nil {
			e.Unsubscribe(eventType, item.id)
			if e.metrics != nil {
				e.metrics.deliveryErrors.WithLabelValues(
					string(eventType),
					subscriberKind(item.sub),
				).Inc()
			}
			e.logger.Debug(
				"event delivery error",
				"type", eventType,
				"subscriber_id", item.id,
				"error", err,
			)
		}
	}
	if e.metrics != nil {
		e.metrics.eventsTotal.WithLabelValues(string(eventType)).Inc()
	}
}

func deliver(sub Subscriber, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber deliver panic: %v", r)
		}
	}()
	return sub.Deliver(evt)
}

// PublishAsync queues an event for delivery by the worker pool. It returns
// false when the bus is stopping or the queue is full, in which case the
// event is dropped. Ordering between async events is not guaranteed.
func (e *EventBus) PublishAsync(eventType EventType, evt Event) bool {
	e.stopMu.RLock()
	defer e.stopMu.RUnlock()
	if e.stopped {
		return false
	}
	select {
	case e.asyncQueue <- asyncEvent{eventType: eventType, event: evt}:
		return true
	default:
		e.logger.Warn(
			"async event queue full, dropping event",
			"type", eventType,
		)
		if e.metrics != nil {
			e.metrics.deliveryErrors.WithLabelValues(
				string(eventType),
				"async-dropped",
			).Inc()
		}
		return false
	}
}

// Stop closes all subscribers and waits for handler goroutines to exit.
// The bus remains usable afterwards with a fresh worker pool.
func (e *EventBus) Stop() {
	e.shutdown(true)
}

// Close is like Stop but does not restart the worker pool. Async publishes
// fail afterwards.
func (e *EventBus) Close() {
	e.shutdown(false)
}

func (e *EventBus) shutdown(restart bool) {
	e.stopOpMu.Lock()
	defer e.stopOpMu.Unlock()

	e.stopMu.Lock()
	wasStopped := e.stopped
	e.stopped = true
	if !wasStopped {
		close(e.stopCh)
	}
	e.stopMu.Unlock()
	e.asyncWg.Wait()

	e.mu.Lock()
	subsCopy := e.subscribers
	e.subscribers = make(map[EventType]map[EventSubscriberId]Subscriber)
	e.mu.Unlock()
	for _, evtTypeSubs := range subsCopy {
		for _, sub := range evtTypeSubs {
			sub.Close()
		}
	}
	if e.metrics != nil {
		e.metrics.subscribers.Reset()
	}

	e.handlerMu.Lock()
	e.handlerWg.Wait()
	e.handlerMu.Unlock()

	if restart {
		e.startWorkers()
	}
}
