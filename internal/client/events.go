package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"

	"github.com/alfredjeanlab/hands/internal/events"
)

// EventStream reads broadcasts from the server's SSE endpoint. It lets watch
// follow a meeting without direct access to NATS.
type EventStream struct {
	client    *resty.Client
	meetingID string

	mu      sync.Mutex
	cancels map[int]func()
	next    int
}

var _ events.Subscriber = (*EventStream)(nil)

// NewEventStream streams from baseURL. A non-empty meetingID limits the
// stream to that meeting's broadcasts.
func NewEventStream(baseURL, token, meetingID string) *EventStream {
	// No client timeout: a stream stays open until it is cancelled.
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "text/event-stream").
		SetHeader("Cache-Control", "no-cache").
		SetLogger(slogLogger{})
	if token != "" {
		c.SetAuthToken(token)
	}
	return &EventStream{client: c, meetingID: meetingID, cancels: make(map[int]func())}
}

// Subscribe opens one stream filtered to topic. The channel closes when
// cancel is called or the server ends the stream.
func (s *EventStream) Subscribe(topic string) (<-chan []byte, func(), error) {
	ctx, stop := context.WithCancel(context.Background())
	req := s.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetQueryParam("topics", topic)
	if s.meetingID != "" {
		req.SetQueryParam("meeting", s.meetingID)
	}
	resp, err := req.Get("/v1/events/stream")
	if err != nil {
		stop()
		return nil, nil, fmt.Errorf("opening event stream: %w", err)
	}
	body := resp.RawBody()
	if resp.StatusCode() != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(body, 4096))
		_ = body.Close()
		stop()
		return nil, nil, &APIError{StatusCode: resp.StatusCode(), Message: strings.TrimSpace(string(msg))}
	}

	out := make(chan []byte)
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		defer close(out)
		defer body.Close()
		_ = readSSE(body, func(data []byte) bool {
			select {
			case out <- data:
				return true
			case <-ctx.Done():
				return false
			}
		})
	}()

	s.mu.Lock()
	id := s.next
	s.next++
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			stop()
			<-exited
			s.mu.Lock()
			delete(s.cancels, id)
			s.mu.Unlock()
		})
	}
	s.cancels[id] = cancel
	s.mu.Unlock()
	return out, cancel, nil
}

// Close cancels every open subscription.
func (s *EventStream) Close() error {
	s.mu.Lock()
	cancels := make([]func(), 0, len(s.cancels))
	for _, c := range s.cancels {
		cancels = append(cancels, c)
	}
	s.mu.Unlock()
	for _, c := range cancels {
		c()
	}
	return nil
}

// readSSE calls emit with the data of each event in r until r ends or emit
// returns false. Multi-line data is joined with newlines; comments and other
// fields are ignored.
func readSSE(r io.Reader, emit func([]byte) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	var (
		data    []byte
		hasData bool
	)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "data:"):
			if hasData {
				data = append(data, '\n')
			}
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")...)
			hasData = true
		case line == "" && hasData:
			if !emit(data) {
				return nil
			}
			data, hasData = nil, false
		}
	}
	return scanner.Err()
}
