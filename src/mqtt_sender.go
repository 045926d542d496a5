package main

import (
	"context"
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/ryansname/visimos/src/affect"
	"github.com/ryansname/visimos/src/config"
	"github.com/ryansname/visimos/src/mood"
)

// MQTTMessage represents an outgoing MQTT message
type MQTTMessage struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}

// MQTTSender wraps a channel for sending MQTT messages with helper methods
type MQTTSender struct {
	ch  chan<- MQTTMessage
	cfg config.MQTTConfig
}

// NewMQTTSender creates a new MQTTSender wrapping the given channel
func NewMQTTSender(ch chan<- MQTTMessage, cfg config.MQTTConfig) *MQTTSender {
	return &MQTTSender{ch: ch, cfg: cfg}
}

// Send queues a raw message. QoS 0 messages are dropped rather than block.
func (s *MQTTSender) Send(msg MQTTMessage) {
	if msg.QoS == 0 {
		trySend(s.ch, msg)
		return
	}
	s.ch <- msg
}

func (s *MQTTSender) sendJSON(topic string, v any, qos byte, retain bool) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.Send(MQTTMessage{Topic: topic, Payload: payload, QoS: qos, Retain: retain})
	return nil
}

// PublishFrame sends one render frame.
func (s *MQTTSender) PublishFrame(f affect.RenderFrame) error {
	return s.sendJSON(s.cfg.Topic("frame"), f, 0, false)
}

// PublishTelemetry sends the periodic summary and the retained mood state.
func (s *MQTTSender) PublishTelemetry(t Telemetry) error {
	if err := s.sendJSON(s.cfg.Topic("telemetry"), t, 0, false); err != nil {
		return err
	}
	s.Send(MQTTMessage{Topic: s.cfg.Topic("mood"), Payload: []byte(t.Mood), QoS: 1, Retain: true})
	return nil
}

// PublishEvent announces an advisory utterance.
func (s *MQTTSender) PublishEvent(u Utterance) error {
	return s.sendJSON(s.cfg.Topic("event"), u, 1, false)
}

// Say asks an external speech service to voice an utterance.
func (s *MQTTSender) Say(u Utterance) {
	s.Send(MQTTMessage{Topic: s.cfg.Topic("speech/say"), Payload: []byte(u.Text), QoS: 1})
}

// Available marks the orb online.
func (s *MQTTSender) Available() {
	s.Send(MQTTMessage{Topic: s.cfg.Topic("availability"), Payload: []byte("online"), QoS: 1, Retain: true})
}

// CreateMoodSensor registers the mood as a Home Assistant enum sensor via MQTT discovery
func (s *MQTTSender) CreateMoodSensor(deviceID string) error {
	type haDeviceConfig struct {
		Identifiers  []string `json:"identifiers"`
		Name         string   `json:"name"`
		Manufacturer string   `json:"manufacturer,omitempty"`
		Model        string   `json:"model,omitempty"`
	}

	type haSensorConfig struct {
		Name              string         `json:"name"`
		DeviceClass       string         `json:"device_class"`
		StateTopic        string         `json:"state_topic"`
		AvailabilityTopic string         `json:"availability_topic"`
		Options           []string       `json:"options"`
		UniqueId          string         `json:"unique_id"`
		Icon              string         `json:"icon,omitempty"`
		Device            haDeviceConfig `json:"device"`
	}

	options := make([]string, 0, len(mood.All()))
	for _, m := range mood.All() {
		options = append(options, m.String())
	}

	cfg := haSensorConfig{
		Name:              "Mood",
		DeviceClass:       "enum",
		StateTopic:        s.cfg.Topic("mood"),
		AvailabilityTopic: s.cfg.Topic("availability"),
		Options:           options,
		UniqueId:          deviceID + "_mood",
		Icon:              "mdi:emoticon-outline",
		Device: haDeviceConfig{
			Identifiers:  []string{deviceID},
			Name:         "Visimos",
			Manufacturer: "Custom",
			Model:        "Soft Soul",
		},
	}

	return s.sendJSON("homeassistant/sensor/"+deviceID+"_mood/config", cfg, 2, true)
}

// mqttSenderWorker publishes outgoing messages, queueing reliable ones until
// a client is connected. QoS 0 traffic is not worth replaying and is dropped
// while disconnected.
func mqttSenderWorker(
	ctx context.Context,
	outgoingChan <-chan MQTTMessage,
	clientChan <-chan mqtt.Client,
	logger zerolog.Logger,
) {
	var client mqtt.Client
	var messageQueue []MQTTMessage

	publish := func(msg MQTTMessage) {
		token := client.Publish(msg.Topic, msg.QoS, msg.Retain, msg.Payload)
		if msg.QoS == 0 {
			return
		}
		if !token.WaitTimeout(5 * time.Second) {
			logger.Warn().Str("topic", msg.Topic).Msg("publish timed out")
			return
		}
		if token.Error() != nil {
			logger.Error().Err(token.Error()).Str("topic", msg.Topic).Msg("Failed to publish")
		}
	}

	for {
		select {
		case newClient := <-clientChan:
			client = newClient

			if client != nil && client.IsConnected() {
				queuedCount := len(messageQueue)
				for _, msg := range messageQueue {
					publish(msg)
				}
				messageQueue = nil
				if queuedCount > 0 {
					logger.Info().Int("count", queuedCount).Msg("MQTT sender processed queued messages")
				}
			}

		case msg := <-outgoingChan:
			if client != nil && client.IsConnected() {
				publish(msg)
			} else if msg.QoS > 0 {
				messageQueue = append(messageQueue, msg)
				logger.Debug().Int("queued", len(messageQueue)).Msg("MQTT sender queued message")
			}

		case <-ctx.Done():
			return
		}
	}
}

// mqttPublisherWorker turns engine output into MQTT messages. Frames are
// throttled to at most one per minGap.
func mqttPublisherWorker(
	ctx context.Context,
	sender *MQTTSender,
	minGap time.Duration,
	frames <-chan affect.RenderFrame,
	telemetry <-chan Telemetry,
	utterances <-chan Utterance,
	logger zerolog.Logger,
) {
	sender.Available()
	var lastFrame time.Time

	for {
		select {
		case f := <-frames:
			now := time.Now()
			if now.Sub(lastFrame) < minGap {
				continue
			}
			lastFrame = now
			if err := sender.PublishFrame(f); err != nil {
				logger.Warn().Err(err).Msg("frame publish failed")
			}

		case t := <-telemetry:
			if err := sender.PublishTelemetry(t); err != nil {
				logger.Warn().Err(err).Msg("telemetry publish failed")
			}

		case u := <-utterances:
			if err := sender.PublishEvent(u); err != nil {
				logger.Warn().Err(err).Msg("event publish failed")
			}
			sender.Say(u)

		case <-ctx.Done():
			return
		}
	}
}
