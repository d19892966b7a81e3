package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nutriplan/validation-service/internal/core/ports"
	"github.com/rabbitmq/amqp091-go"
)

// ClientProfileEvent is a message published by the practice-management
// service whenever a client's restriction, preference, medical or lab data
// changes. Any such mutation must invalidate the cached tag set.
type ClientProfileEvent struct {
	ClientID  string `json:"client_id"`
	EventType string `json:"event_type"` // e.g. restrictions_updated, preferences_updated
}

// ClientEventsConsumer consumes client profile mutation events from
// RabbitMQ and invalidates the validation engine's tag cache. Runs in a
// background goroutine within the service pod; in multi-replica
// deployments each replica keeps its own consumer, since every process
// owns an independent cache.
type ClientEventsConsumer struct {
	conn           *amqp091.Connection
	channel        *amqp091.Channel
	queueName      string
	engine         ports.ValidationService
	connMutex      sync.RWMutex
	reconnectCh    chan bool
	stopReconnect  chan bool
	maxRetries     int
	retryDelay     time.Duration
	consumingCtx   context.Context
	consumingMutex sync.Mutex
	isConsuming    bool
}

// NewClientEventsConsumer creates a consumer bound to the client events queue
func NewClientEventsConsumer(rabbitMQURL string, queueName string, engine ports.ValidationService) (*ClientEventsConsumer, error) {
	if queueName == "" {
		queueName = "client_profile_events"
	}

	consumer := &ClientEventsConsumer{
		queueName:     queueName,
		engine:        engine,
		maxRetries:    3,
		retryDelay:    1 * time.Second,
		reconnectCh:   make(chan bool, 1),
		stopReconnect: make(chan bool),
	}

	if err := consumer.connect(rabbitMQURL); err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	go consumer.handleReconnection(rabbitMQURL)

	return consumer, nil
}

// connect establishes connection to RabbitMQ
func (c *ClientEventsConsumer) connect(rabbitMQURL string) error {
	var err error
	for i := 0; i < c.maxRetries; i++ {
		c.conn, err = amqp091.Dial(rabbitMQURL)
		if err == nil {
			break
		}
		log.Printf("Failed to connect to RabbitMQ (attempt %d/%d): %v", i+1, c.maxRetries, err)
		if i < c.maxRetries-1 {
			time.Sleep(c.retryDelay)
		}
	}

	if err != nil {
		return err
	}

	c.channel, err = c.conn.Channel()
	if err != nil {
		c.conn.Close()
		return err
	}

	// Declare queue (idempotent)
	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)

	if err != nil {
		c.channel.Close()
		c.conn.Close()
		return err
	}

	log.Println("Client events consumer connected to RabbitMQ successfully")
	return nil
}

// handleReconnection handles automatic reconnection to RabbitMQ
func (c *ClientEventsConsumer) handleReconnection(rabbitMQURL string) {
	for {
		select {
		case <-c.reconnectCh:
			log.Println("Attempting to reconnect to RabbitMQ...")
			c.connMutex.Lock()
			if c.conn != nil && !c.conn.IsClosed() {
				c.conn.Close()
			}
			if c.channel != nil && !c.channel.IsClosed() {
				c.channel.Close()
			}
			c.connMutex.Unlock()

			if err := c.connect(rabbitMQURL); err != nil {
				log.Printf("Reconnection failed: %v", err)
				time.Sleep(5 * time.Second)
				c.reconnectCh <- true
			} else {
				c.consumingMutex.Lock()
				if c.consumingCtx != nil && c.consumingCtx.Err() == nil && !c.isConsuming {
					go c.StartConsuming(c.consumingCtx)
				}
				c.consumingMutex.Unlock()
			}
		case <-c.stopReconnect:
			return
		}
	}
}

// StartConsuming starts consuming messages from the queue in a background
// goroutine. Only one consumer per process instance.
func (c *ClientEventsConsumer) StartConsuming(ctx context.Context) error {
	c.consumingMutex.Lock()
	if c.isConsuming {
		c.consumingMutex.Unlock()
		log.Println("Client events consumer is already running, skipping duplicate start")
		return nil
	}
	c.isConsuming = true
	c.consumingCtx = ctx
	c.consumingMutex.Unlock()

	c.connMutex.RLock()
	channel := c.channel
	conn := c.conn
	c.connMutex.RUnlock()

	if channel == nil || channel.IsClosed() || conn == nil || conn.IsClosed() {
		c.consumingMutex.Lock()
		c.isConsuming = false
		c.consumingMutex.Unlock()
		return fmt.Errorf("RabbitMQ connection is closed")
	}

	// One unacknowledged message at a time
	if err := channel.Qos(1, 0, false); err != nil {
		c.consumingMutex.Lock()
		c.isConsuming = false
		c.consumingMutex.Unlock()
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	consumerTag := fmt.Sprintf("client-events-consumer-%d", time.Now().UnixNano())
	msgs, err := channel.Consume(
		c.queueName, // queue
		consumerTag, // consumer tag
		false,       // auto-ack (manual ack after invalidation)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		c.consumingMutex.Lock()
		c.isConsuming = false
		c.consumingMutex.Unlock()
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	log.Printf("Client events consumer started (tag: %s), waiting for messages on queue: %s", consumerTag, c.queueName)

	go func() {
		defer func() {
			c.consumingMutex.Lock()
			c.isConsuming = false
			c.consumingMutex.Unlock()
		}()

		for {
			select {
			case <-ctx.Done():
				log.Println("Client events consumer context cancelled")
				return
			case msg, ok := <-msgs:
				if !ok {
					log.Println("Client events channel closed, attempting reconnection...")
					c.reconnectCh <- true
					return
				}
				c.processMessage(msg)
			}
		}
	}()

	return nil
}

// processMessage invalidates the cache entry named by one event.
// Invalidation is idempotent, so redelivered messages are harmless.
func (c *ClientEventsConsumer) processMessage(msg amqp091.Delivery) {
	var event ClientProfileEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		log.Printf("Failed to unmarshal client profile event: %v", err)
		// Invalid message format - reject and don't requeue
		msg.Nack(false, false)
		return
	}

	clientID, err := uuid.Parse(event.ClientID)
	if err != nil {
		log.Printf("Client profile event has invalid client_id %q: %v", event.ClientID, err)
		msg.Nack(false, false)
		return
	}

	c.engine.InvalidateClientCache(clientID)
	log.Printf("Invalidated client tag cache: client_id=%s, event_type=%s", clientID, event.EventType)

	if err := msg.Ack(false); err != nil {
		log.Printf("Failed to ack client profile event: %v", err)
	}
}

// Close closes the RabbitMQ connection
func (c *ClientEventsConsumer) Close() error {
	close(c.stopReconnect)
	c.connMutex.Lock()
	defer c.connMutex.Unlock()

	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
