// Package notify fans queued reminders out to an MQTT broker so dispatchers
// outside the console can pick them up.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/moto-fleet/internal/models"
)

// QoS is the delivery guarantee of published reminders (at least once).
const QoS byte = 1

const connectTimeout = 10 * time.Second

// Publisher is the part of an MQTT client the notifier needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTNotifier publishes each notification as JSON to
// {prefix}/{fleet}/notifications.
type MQTTNotifier struct {
	client Publisher
	prefix string
}

// NewMQTTNotifier wraps an already connected client.
func NewMQTTNotifier(client Publisher, prefix string) *MQTTNotifier {
	return &MQTTNotifier{client: client, prefix: prefix}
}

// Connect dials broker and returns a connected client.
func Connect(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connect to %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", broker, err)
	}
	log.WithField("broker", broker).Info("Connected to MQTT broker")
	return client, nil
}

// Topic returns the notification topic of a fleet.
func (n *MQTTNotifier) Topic(fleetID string) string {
	return fmt.Sprintf("%s/%s/notifications", n.prefix, fleetID)
}

// Publish sends every notification in batch, stopping at the first failure.
func (n *MQTTNotifier) Publish(ctx context.Context, fleetID string, batch []models.Notification) error {
	topic := n.Topic(fleetID)
	for _, note := range batch {
		payload, err := json.Marshal(note)
		if err != nil {
			return fmt.Errorf("encode notification %s: %w", note.ID, err)
		}
		token := n.client.Publish(topic, QoS, false, payload)
		select {
		case <-token.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish %s to %s: %w", note.ID, topic, err)
		}
	}
	log.WithFields(log.Fields{"topic": topic, "count": len(batch)}).Debug("Published notifications")
	return nil
}

// NopNotifier drops every batch. It is used when no broker is configured.
type NopNotifier struct{}

// Publish does nothing.
func (NopNotifier) Publish(context.Context, string, []models.Notification) error { return nil }
