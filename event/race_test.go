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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// These run many iterations to surface races between publishing and
// closing subscribers. They must complete without panics or deadlocks.

func TestPublishUnsubscribeRace(t *testing.T) {
	typ := EventType("race.test")
	for range 500 {
		eb := NewEventBus(nil, nil)
		subId, ch := eb.Subscribe(typ)
		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer wg.Done()
			for j := range 10 {
				eb.Publish(typ, NewEvent(typ, j))
			}
		}()
		go func() {
			defer wg.Done()
			eb.Unsubscribe(typ, subId)
			eb.Stop()
		}()
		go func() {
			defer wg.Done()
			for range ch {
			}
		}()
		wg.Wait()
		eb.Close()
	}
}

func TestSubscribeFuncStopRace(t *testing.T) {
	typ := EventType("race.subscribefunc")
	for range 500 {
		eb := NewEventBus(nil, nil)
		var wg sync.WaitGroup
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				eb.SubscribeFunc(typ, func(Event) {})
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			eb.Stop()
		}()
		wg.Wait()
		eb.Close()
	}
}

func TestPublishDoesNotBlockOnFullChannel(t *testing.T) {
	eb := NewEventBus(nil, nil)
	defer eb.Close()
	typ := EventType("full.test")
	_, ch := eb.Subscribe(typ)
	for range EventQueueSize {
		eb.Publish(typ, NewEvent(typ, "fill"))
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		eb.Publish(typ, NewEvent(typ, "overflow"))
	}()
	require.Eventually(t, func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)
	require.Len(t, ch, EventQueueSize)
}

func TestUnsubscribeDuringPublishStorm(t *testing.T) {
	typ := EventType("storm.test")
	for range 200 {
		eb := NewEventBus(nil, nil)
		subId, ch := eb.Subscribe(typ)
		for range EventQueueSize {
			eb.Publish(typ, NewEvent(typ, "fill"))
		}
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 50 {
				eb.Publish(typ, NewEvent(typ, "storm"))
			}
		}()
		go func() {
			defer wg.Done()
			eb.Unsubscribe(typ, subId)
		}()
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("Unsubscribe and Publish deadlocked")
		}
		for range ch {
		}
		eb.Close()
	}
}
