// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MQTTConfig describes the broker connection and topic mapping.
type MQTTConfig struct {
	Broker   string
	ClientID string
	QoS      byte
	Topics   map[Topic]string
}

type mqttSubscription struct {
	topic   Topic
	name    string
	handler mqtt.MessageHandler
	onError func(error)
}

// MQTTChannel implements Channel on top of a paho client. Retained messages
// give each new subscriber the latest value right away.
type MQTTChannel struct {
	client mqtt.Client
	cfg    MQTTConfig
	logger zerolog.Logger

	mu     sync.Mutex
	subs   map[int]*mqttSubscription
	nextID int
}

// NewMQTTChannel wraps an existing client. Use DialMQTT to get a client whose
// connection events are routed to the channel's subscribers.
func NewMQTTChannel(client mqtt.Client, cfg MQTTConfig, logger zerolog.Logger) *MQTTChannel {
	return &MQTTChannel{
		client: client,
		cfg:    cfg,
		logger: logger,
		subs:   make(map[int]*mqttSubscription),
	}
}

// ClientID appends a short random suffix so several viewers can share a
// configured id without kicking each other off the broker.
func ClientID(base string) string {
	return base + "-" + uuid.NewString()[:8]
}

// DialMQTT connects to the broker. Lost connections are reported to every
// live subscription as ErrTransport, and subscriptions are restored after
// paho reconnects.
func DialMQTT(cfg MQTTConfig, logger zerolog.Logger) (*MQTTChannel, error) {
	ch := NewMQTTChannel(nil, cfg, logger)

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(ClientID(cfg.ClientID)).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second).
		SetConnectionLostHandler(ch.connectionLost).
		SetOnConnectHandler(ch.resubscribe)

	ch.client = mqtt.NewClient(opts)
	token := ch.client.Connect()
	if !token.WaitTimeout(10*time.Second) {
		return nil, fmt.Errorf("%w: timed out connecting to %s", ErrTransport, cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: connect to %s: %v", ErrTransport, cfg.Broker, err)
	}
	logger.Info().Str("broker", cfg.Broker).Msg("connected to MQTT broker")
	return ch, nil
}

// Subscribe implements Channel.
func (c *MQTTChannel) Subscribe(topic Topic, onSnapshot func(Snapshot), onError func(error)) (Unsubscribe, error) {
	name, ok := c.cfg.Topics[topic]
	if !ok {
		return nil, fmt.Errorf("no MQTT topic configured for %q", topic)
	}

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		// the payload outlives the callback
		payload := append([]byte(nil), msg.Payload()...)
		c.logger.Debug().Str("topic", msg.Topic()).Bytes("payload", payload).Msg("snapshot")
		onSnapshot(Snapshot{Topic: topic, Payload: payload, ReceivedAt: time.Now()})
	}

	token := c.client.Subscribe(name, c.cfg.QoS, handler)
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: subscribe %s: %v", ErrTransport, name, err)
	}
	c.logger.Info().Str("topic", name).Msg("subscribed")

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = &mqttSubscription{topic: topic, name: name, handler: handler, onError: onError}
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { c.unsubscribe(id) })
	}, nil
}

func (c *MQTTChannel) unsubscribe(id int) {
	c.mu.Lock()
	sub, ok := c.subs[id]
	delete(c.subs, id)
	c.mu.Unlock()
	if !ok {
		return
	}

	token := c.client.Unsubscribe(sub.name)
	token.Wait()
	if err := token.Error(); err != nil {
		c.logger.Warn().Err(err).Str("topic", sub.name).Msg("unsubscribe failed")
		return
	}
	c.logger.Info().Str("topic", sub.name).Msg("unsubscribed")
}

// Publish sends payload on topic as a retained message, so a viewer that
// connects later still gets the latest value.
func (c *MQTTChannel) Publish(topic Topic, payload []byte) error {
	name, ok := c.cfg.Topics[topic]
	if !ok {
		return fmt.Errorf("no MQTT topic configured for %q", topic)
	}

	token := c.client.Publish(name, c.cfg.QoS, true, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: publish %s: %v", ErrTransport, name, err)
	}
	return nil
}

// Close disconnects from the broker.
func (c *MQTTChannel) Close() {
	c.client.Disconnect(250)
}

func (c *MQTTChannel) snapshotSubs() []*mqttSubscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	subs := make([]*mqttSubscription, 0, len(c.subs))
	for _, sub := range c.subs {
		subs = append(subs, sub)
	}
	return subs
}

func (c *MQTTChannel) connectionLost(_ mqtt.Client, err error) {
	c.logger.Error().Err(err).Msg("MQTT connection lost")
	for _, sub := range c.snapshotSubs() {
		if sub.onError != nil {
			sub.onError(fmt.Errorf("%w: %s: %v", ErrTransport, sub.name, err))
		}
	}
}

func (c *MQTTChannel) resubscribe(client mqtt.Client) {
	subs := c.snapshotSubs()
	if len(subs) == 0 {
		return
	}
	// Waiting on a token inside the OnConnect callback can deadlock paho.
	go func() {
		for _, sub := range subs {
			token := client.Subscribe(sub.name, c.cfg.QoS, sub.handler)
			token.Wait()
			if err := token.Error(); err != nil {
				c.logger.Error().Err(err).Str("topic", sub.name).Msg("resubscribe failed")
				if sub.onError != nil {
					sub.onError(fmt.Errorf("%w: resubscribe %s: %v", ErrTransport, sub.name, err))
				}
				continue
			}
			c.logger.Info().Str("topic", sub.name).Msg("resubscribed")
		}
	}()
}
