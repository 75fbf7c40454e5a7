package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// StatusError is returned when the server answers with a non-200 status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("broker returned status %d", e.Code)
	}
	return fmt.Sprintf("broker returned status %d: %s", e.Code, e.Message)
}

// Temporary reports whether retrying the request might succeed.
func (e *StatusError) Temporary() bool {
	return e.Code >= http.StatusInternalServerError
}

// TopicInfo describes one topic as listed by the server.
type TopicInfo struct {
	Name    string `json:"name"`
	Records int    `json:"records"`
}

// brokerPool hands out broker addresses round-robin.
type brokerPool struct {
	mu        sync.Mutex
	addresses []string
	index     int
}

func (p *brokerPool) next() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.addresses) == 0 {
		return "localhost:8080"
	}
	broker := p.addresses[p.index]
	p.index = (p.index + 1) % len(p.addresses)
	return broker
}

func endpoint(broker, path string) string {
	if !strings.Contains(broker, "://") {
		broker = "http://" + broker
	}
	return strings.TrimRight(broker, "/") + path
}

func topicPath(prefix, topic string) string {
	return prefix + url.PathEscape(topic)
}

// checkStatus turns a non-200 response into a *StatusError.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(body))}
}

// ListTopics fetches the topic list from broker.
func ListTopics(client *http.Client, broker string) ([]TopicInfo, error) {
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Get(endpoint(broker, "/topics"))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	var infos []TopicInfo
	if err := json.NewDecoder(resp.Body).Decode(&infos); err != nil {
		return nil, fmt.Errorf("failed to decode topics: %w", err)
	}
	return infos, nil
}
