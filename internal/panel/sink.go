package panel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// LastCalledKey caches the latest roster in Redis.
	LastCalledKey = "panel:last_called"
	// EventsChannel carries roster updates between replicas.
	EventsChannel = "panel:events"
)

// ErrSinkDisabled is returned by sinks whose endpoint is not configured.
var ErrSinkDisabled = errors.New("panel sink disabled")

// ErrNothingToSend is returned when an update carries nothing for the sink.
var ErrNothingToSend = errors.New("nothing to send")

// Sink receives panel updates.
type Sink interface {
	Name() string
	Push(ctx context.Context, update Update) error
}

// NewHTTPClient returns a traced client bounded by timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// WebhookSink posts the roster to <base>/call.
type WebhookSink struct {
	baseURL string
	client  *http.Client
}

// NewWebhookSink builds the roster sink. An empty baseURL disables it.
func NewWebhookSink(baseURL string, client *http.Client) *WebhookSink {
	return &WebhookSink{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (s *WebhookSink) Name() string { return "webhook" }

func (s *WebhookSink) Push(ctx context.Context, update Update) error {
	if s.baseURL == "" {
		return ErrSinkDisabled
	}
	roster := update.Roster
	if roster == nil {
		roster = []Entry{}
	}
	return postJSON(ctx, s.client, s.baseURL+"/call", roster)
}

// DeviceSink posts {nome, guiche} to the physical device on real calls.
type DeviceSink struct {
	url    string
	client *http.Client
}

// NewDeviceSink builds the device sink. An empty url disables it.
func NewDeviceSink(url string, client *http.Client) *DeviceSink {
	return &DeviceSink{url: url, client: client}
}

func (s *DeviceSink) Name() string { return "device" }

func (s *DeviceSink) Push(ctx context.Context, update Update) error {
	if s.url == "" {
		return ErrSinkDisabled
	}
	if update.Latest == nil {
		return ErrNothingToSend
	}
	return postJSON(ctx, s.client, s.url, update.Latest)
}

// HubSink broadcasts the roster to local WebSocket clients.
type HubSink struct {
	hub *Hub
}

func NewHubSink(hub *Hub) *HubSink {
	return &HubSink{hub: hub}
}

func (s *HubSink) Name() string { return "websocket" }

func (s *HubSink) Push(_ context.Context, update Update) error {
	payload, err := MarshalRoster(update.Roster)
	if err != nil {
		return err
	}
	s.hub.Broadcast(payload)
	return nil
}

// RedisSink caches the roster and publishes it for every replica's hub.
type RedisSink struct {
	client *redis.Client
}

func NewRedisSink(client *redis.Client) *RedisSink {
	return &RedisSink{client: client}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Push(ctx context.Context, update Update) error {
	payload, err := MarshalRoster(update.Roster)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, LastCalledKey, payload, 0)
	pipe.Publish(ctx, EventsChannel, payload)
	_, err = pipe.Exec(ctx)
	return err
}

// Cached returns the roster stored by the last push, if any.
func (s *RedisSink) Cached(ctx context.Context) ([]Entry, bool, error) {
	raw, err := s.client.Get(ctx, LastCalledKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var roster []Entry
	if err := json.Unmarshal(raw, &roster); err != nil {
		return nil, false, err
	}
	return roster, true, nil
}

// MarshalRoster encodes a roster, rendering nil as an empty array.
func MarshalRoster(roster []Entry) ([]byte, error) {
	if roster == nil {
		roster = []Entry{}
	}
	return json.Marshal(roster)
}

func postJSON(ctx context.Context, client *http.Client, url string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("panel endpoint %s responded %d", url, resp.StatusCode)
	}
	return nil
}
