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

package api

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/blinklabs-io/tally/event"
	"github.com/blinklabs-io/tally/governance"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	streamQueueSize = 64
	writeTimeout    = 10 * time.Second
)

var errStreamBehind = errors.New("event stream client is too slow")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// streamSubscriber queues bus events for one websocket client. A client
// that falls a full queue behind is dropped by the bus.
type streamSubscriber struct {
	mu     sync.Mutex
	ch     chan event.Event
	closed bool
}

func newStreamSubscriber() *streamSubscriber {
	return &streamSubscriber{
		ch: make(chan event.Event, streamQueueSize),
	}
}

func (s *streamSubscriber) Deliver(evt event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	select {
	case s.ch <- evt:
		return nil
	default:
		return errStreamBehind
	}
}

func (s *streamSubscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// handleEvents streams every governance event to a websocket client until
// either side goes away
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	eventBus := s.node.EventBus()
	if eventBus == nil {
		writeError(w, http.StatusServiceUnavailable, "event bus unavailable")
		return
	}
	// Subscribe before the handshake so the client sees every later event
	sub := newStreamSubscriber()
	subIds := make(map[event.EventType]event.EventSubscriberId, len(governance.EventTypes))
	for _, evtType := range governance.EventTypes {
		subIds[evtType] = eventBus.RegisterSubscriber(evtType, sub)
	}
	defer func() {
		for evtType, subId := range subIds {
			eventBus.Unsubscribe(evtType, subId)
		}
		sub.Close()
	}()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	s.logger.Debug("event stream opened", "remote", r.RemoteAddr)

	// The client never sends data, but reading is needed to notice a close
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	done := s.done()
	for {
		select {
		case <-readDone:
			return
		case <-done:
			s.closeStream(conn, websocket.CloseGoingAway, "server shutting down")
			return
		case evt, ok := <-sub.ch:
			if !ok {
				s.closeStream(conn, websocket.CloseGoingAway, "event stream closed")
				return
			}
			msg := EventMessage{
				ID:        uuid.NewString(),
				Type:      string(evt.Type),
				Timestamp: evt.Timestamp,
				Data:      evt.Data,
			}
			//nolint:errcheck
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				s.logger.Debug("event stream write failed", "error", err)
				return
			}
		}
	}
}

func (s *Server) closeStream(conn *websocket.Conn, code int, text string) {
	//nolint:errcheck
	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text),
		time.Now().Add(time.Second),
	)
}
