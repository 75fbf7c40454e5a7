package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ProducerConfig holds configuration for the producer
type ProducerConfig struct {
	BrokerAddresses []string      // List of broker addresses
	Timeout         time.Duration // Request timeout
	RetryAttempts   int           // Number of retry attempts
	RetryBackoff    time.Duration // Delay before the first retry, grows linearly
}

// DefaultProducerConfig returns default producer configuration
func DefaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		BrokerAddresses: []string{"localhost:8080"},
		Timeout:         30 * time.Second,
		RetryAttempts:   3,
		RetryBackoff:    100 * time.Millisecond,
	}
}

// Producer appends records to topics over HTTP.
type Producer struct {
	config     *ProducerConfig
	httpClient *http.Client
	brokers    *brokerPool
}

// ProduceResponse represents the response from a put request
type ProduceResponse struct {
	Topic   string `json:"topic"`
	Ordinal int    `json:"ordinal"`
}

// NewProducer creates a new producer instance
func NewProducer(config *ProducerConfig) *Producer {
	if config == nil {
		config = DefaultProducerConfig()
	}

	return &Producer{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		brokers: &brokerPool{addresses: config.BrokerAddresses},
	}
}

// Send encodes v as JSON and appends it to topic.
func (p *Producer) Send(topic string, v any) (*ProduceResponse, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	return p.SendRaw(topic, data)
}

// SendRaw appends data, which must hold exactly one JSON value, to topic.
// Transport failures and 5xx answers are retried; 4xx answers are not.
func (p *Producer) SendRaw(topic string, data []byte) (*ProduceResponse, error) {
	path := topicPath("/put/", topic)

	var lastErr error
	for attempt := 0; attempt <= p.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			// Linear backoff
			time.Sleep(time.Duration(attempt) * p.config.RetryBackoff)
		}

		resp, err := p.post(endpoint(p.brokers.next(), path), data)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var se *StatusError
		if errors.As(err, &se) && !se.Temporary() {
			return nil, err
		}
	}

	return nil, fmt.Errorf("failed to send record after %d attempts: %w",
		p.config.RetryAttempts+1, lastErr)
}

func (p *Producer) post(url string, data []byte) (*ProduceResponse, error) {
	resp, err := p.httpClient.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var produceResp ProduceResponse
	if err := json.NewDecoder(resp.Body).Decode(&produceResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &produceResp, nil
}

// Topics lists the topics known to the next broker.
func (p *Producer) Topics() ([]TopicInfo, error) {
	return ListTopics(p.httpClient, p.brokers.next())
}
