package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// LastSentHeader is the response header holding the last ordinal returned.
const LastSentHeader = "X-Eventlog-Last-Sent"

// ConsumerConfig holds configuration for the consumer
type ConsumerConfig struct {
	BrokerAddresses []string      // List of broker addresses
	Timeout         time.Duration // Request timeout
	StartOrdinal    int           // Position of topics not yet read or sought
}

// DefaultConsumerConfig returns default consumer configuration
func DefaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		BrokerAddresses: []string{"localhost:8080"},
		Timeout:         30 * time.Second,
		StartOrdinal:    1,
	}
}

// Consumer reads records from topics. Positions live only in the consumer;
// the server keeps no per-reader state.
type Consumer struct {
	config     *ConsumerConfig
	httpClient *http.Client
	brokers    *brokerPool

	mu        sync.Mutex
	positions map[string]int // topic -> next ordinal to read
}

// FetchResult is one window of records.
type FetchResult struct {
	Topic   string
	Records []json.RawMessage
	Last    int // ordinal of the last record in Records, or from-1 when empty
}

// NewConsumer creates a new consumer instance
func NewConsumer(config *ConsumerConfig) *Consumer {
	if config == nil {
		config = DefaultConsumerConfig()
	}
	if config.StartOrdinal < 1 {
		config.StartOrdinal = 1
	}

	return &Consumer{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		brokers:   &brokerPool{addresses: config.BrokerAddresses},
		positions: make(map[string]int),
	}
}

// Fetch reads the window of topic starting at ordinal from. It does not move
// the consumer's position.
func (c *Consumer) Fetch(topic string, from int) (*FetchResult, error) {
	url := endpoint(c.brokers.next(), topicPath("/get/", topic)) + "?from=" + strconv.Itoa(from)

	resp, err := c.httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", topic, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	result := &FetchResult{Topic: topic, Last: from - 1}
	if err := json.NewDecoder(resp.Body).Decode(&result.Records); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}
	if h := resp.Header.Get(LastSentHeader); h != "" {
		last, err := strconv.Atoi(h)
		if err != nil {
			return nil, fmt.Errorf("invalid %s header %q", LastSentHeader, h)
		}
		result.Last = last
	} else {
		result.Last = from + len(result.Records) - 1
	}
	return result, nil
}

// Poll reads the next window of topic from the consumer's position and
// advances the position past the records returned.
func (c *Consumer) Poll(topic string) (*FetchResult, error) {
	from := c.Position(topic)
	result, err := c.Fetch(topic, from)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.positions[topic] <= result.Last {
		c.positions[topic] = result.Last + 1
	}
	c.mu.Unlock()
	return result, nil
}

// Seek sets the next ordinal Poll reads from topic.
func (c *Consumer) Seek(topic string, ordinal int) error {
	if ordinal < 1 {
		return fmt.Errorf("invalid ordinal %d", ordinal)
	}
	c.mu.Lock()
	c.positions[topic] = ordinal
	c.mu.Unlock()
	return nil
}

// Position returns the next ordinal Poll reads from topic.
func (c *Consumer) Position(topic string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	pos, ok := c.positions[topic]
	if !ok {
		pos = c.config.StartOrdinal
		c.positions[topic] = pos
	}
	return pos
}

// Topics lists the topics known to the next broker.
func (c *Consumer) Topics() ([]TopicInfo, error) {
	return ListTopics(c.httpClient, c.brokers.next())
}
