// Package emitter publishes detected poses to an MQTT broker
package emitter

import (
	"context"
	"errors"
	"fmt"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/swdee/go-poseoverlay/result"
	"log"
	"sync"
	"time"
)

// publishTimeout is how long to wait for the broker to acknowledge a message
const publishTimeout = 2 * time.Second

// Config holds the broker settings
type Config struct {
	// Broker address such as tcp://localhost:1883
	Broker string
	// ClientID defaults to a random UUID when empty
	ClientID    string
	TopicPrefix string
	InstanceID  string
	QoS         byte
}

// publisher is the part of the MQTT client used for publishing
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Stats are the emitter counters
type Stats struct {
	Published uint64
	Errors    uint64
	Connected bool
}

// MQTTEmitter publishes each frame's poses as JSON to
// <prefix>/<instance>/poses
type MQTTEmitter struct {
	cfg    Config
	topic  string
	client mqtt.Client
	pub    publisher

	mu        sync.Mutex
	published uint64
	errors    uint64
	connected bool
	wg        sync.WaitGroup
}

// NewMQTTEmitter returns an emitter that is not yet connected
func NewMQTTEmitter(cfg Config) *MQTTEmitter {

	if cfg.ClientID == "" {
		cfg.ClientID = "poseoverlay-" + uuid.New().String()
	}

	return &MQTTEmitter{
		cfg:   cfg,
		topic: fmt.Sprintf("%s/%s/poses", cfg.TopicPrefix, cfg.InstanceID),
	}
}

// Topic returns the topic poses are published to
func (e *MQTTEmitter) Topic() string {
	return e.topic
}

// ClientID returns the MQTT client identifier
func (e *MQTTEmitter) ClientID() string {
	return e.cfg.ClientID
}

// Connect establishes the broker connection.  The client reconnects
// automatically once connected
func (e *MQTTEmitter) Connect(ctx context.Context) error {

	if e.cfg.Broker == "" {
		return errors.New("mqtt broker not set")
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(e.cfg.Broker)
	opts.SetClientID(e.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		e.setConnected(true)
		log.Printf("MQTT connected to %s as %s", e.cfg.Broker, e.cfg.ClientID)
	}

	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		e.setConnected(false)
		log.Printf("MQTT connection lost, reconnecting: %v", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()

	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("mqtt connection cancelled: %w", ctx.Err())
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}

	e.client = client
	e.pub = client
	e.setConnected(true)

	return nil
}

func (e *MQTTEmitter) setConnected(c bool) {
	e.mu.Lock()
	e.connected = c
	e.mu.Unlock()
}

// Emit publishes the poses of the result.  It does not wait for the broker
// so it is safe to use as a scheduler result hook, failures are counted and
// logged
func (e *MQTTEmitter) Emit(res *result.DetectionResult) {

	if res == nil || e.pub == nil {
		return
	}

	payload, err := Marshal(e.cfg.InstanceID, res)

	if err != nil {
		e.fail(fmt.Errorf("failed to marshal poses: %w", err))
		return
	}

	token := e.pub.Publish(e.topic, e.cfg.QoS, false, payload)

	e.wg.Add(1)

	go func() {
		defer e.wg.Done()

		if !token.WaitTimeout(publishTimeout) {
			e.fail(errors.New("publish timeout"))
			return
		}

		if err := token.Error(); err != nil {
			e.fail(fmt.Errorf("publish failed: %w", err))
			return
		}

		e.mu.Lock()
		e.published++
		e.mu.Unlock()
	}()
}

// fail counts and logs a publish failure
func (e *MQTTEmitter) fail(err error) {

	e.mu.Lock()
	e.errors++
	n := e.errors
	e.mu.Unlock()

	// avoid flooding the log when the broker is down
	if n == 1 || n%100 == 0 {
		log.Printf("MQTT emit error (%d total): %v", n, err)
	}
}

// Stats returns the emitter counters
func (e *MQTTEmitter) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Stats{
		Published: e.published,
		Errors:    e.errors,
		Connected: e.connected,
	}
}

// Close waits for pending publishes and disconnects
func (e *MQTTEmitter) Close() {

	e.wg.Wait()

	if e.client != nil && e.client.IsConnected() {
		e.client.Disconnect(250)
	}

	e.setConnected(false)
}
