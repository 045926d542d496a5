package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/ryansname/visimos/src/affect"
	"github.com/ryansname/visimos/src/config"
)

// InboundMessage is a message received on one of the orb's command topics.
type InboundMessage struct {
	Topic   string
	Payload []byte
}

// mqttWorker manages the MQTT connection and forwards inbound messages to a channel
func mqttWorker(
	ctx context.Context,
	cfg config.MQTTConfig,
	clientID string,
	topics []string,
	msgChan chan<- InboundMessage,
	clientChan chan<- mqtt.Client,
	logger zerolog.Logger,
) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL())
	opts.SetClientID(clientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetWill(cfg.Topic("availability"), "offline", 1, true)

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		logger.Warn().Err(err).Msg("MQTT connection lost")
	})

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		logger.Info().Str("broker", cfg.BrokerURL()).Msg("Connected to MQTT broker")

		// Hand the new client to the sender worker
		select {
		case clientChan <- client:
		case <-ctx.Done():
			return
		}

		for _, topic := range topics {
			token := client.Subscribe(topic, 0, func(client mqtt.Client, msg mqtt.Message) {
				in := InboundMessage{Topic: msg.Topic(), Payload: append([]byte(nil), msg.Payload()...)}
				select {
				case msgChan <- in:
				case <-ctx.Done():
				default:
					logger.Warn().Str("topic", in.Topic).Msg("inbound queue full, dropping message")
				}
			})

			if token.Wait() && token.Error() != nil {
				logger.Error().Err(token.Error()).Str("topic", topic).Msg("Failed to subscribe")
			} else {
				logger.Debug().Str("topic", topic).Msg("Subscribed")
			}
		}
	})

	client := mqtt.NewClient(opts)

	logger.Info().Str("broker", cfg.BrokerURL()).Msg("Connecting to MQTT broker...")
	token := client.Connect()
	select {
	case <-token.Done():
		if token.Error() != nil {
			logger.Error().Err(token.Error()).Msg("Failed to connect to MQTT broker")
			return
		}
	case <-ctx.Done():
	}

	<-ctx.Done()

	if client.IsConnected() {
		client.Publish(cfg.Topic("availability"), 1, true, "offline").WaitTimeout(time.Second)
		client.Disconnect(250)
		logger.Info().Msg("Disconnected from MQTT broker")
	}
}

// SignalPayload is what external analyzers publish on the signal topic.
type SignalPayload struct {
	Energy   *float64 `json:"energy"`
	Centroid float64  `json:"centroid"`
}

// InteractionPayload is a gesture injected over MQTT or the websocket.
type InteractionPayload struct {
	Kind              affect.InteractionKind `json:"kind"`
	X                 float64                `json:"x"`
	Y                 float64                `json:"y"`
	GestureDurationMs float64                `json:"gestureDurationMs"`
	SwipeDeltaPx      float64                `json:"swipeDeltaPx"`
}

// Event converts the payload after validating its kind and position.
func (p InteractionPayload) Event() (affect.InteractionEvent, error) {
	switch p.Kind {
	case affect.Press, affect.Drag, affect.Release, affect.Swipe, affect.Cancel:
	default:
		return affect.InteractionEvent{}, fmt.Errorf("unknown interaction kind %q", p.Kind)
	}
	if !(p.X >= 0 && p.X <= 1 && p.Y >= 0 && p.Y <= 1) {
		return affect.InteractionEvent{}, fmt.Errorf("position (%g, %g) outside the unit square", p.X, p.Y)
	}
	if math.IsNaN(p.GestureDurationMs) || math.IsInf(p.GestureDurationMs, 0) || math.IsNaN(p.SwipeDeltaPx) || math.IsInf(p.SwipeDeltaPx, 0) {
		return affect.InteractionEvent{}, fmt.Errorf("non-finite gesture timing")
	}
	return affect.InteractionEvent{
		Kind:              p.Kind,
		Pos:               affect.Vec2{X: p.X, Y: p.Y},
		GestureDurationMs: p.GestureDurationMs,
		SwipeDeltaPx:      p.SwipeDeltaPx,
	}, nil
}

// inboundTopics are the command topics under the configured prefix.
type inboundTopics struct {
	Signal      string
	Interaction string
	Reset       string
}

func newInboundTopics(cfg config.MQTTConfig) inboundTopics {
	return inboundTopics{
		Signal:      cfg.Topic("signal"),
		Interaction: cfg.Topic("interaction"),
		Reset:       cfg.Topic("reset"),
	}
}

func (t inboundTopics) List() []string {
	return []string{t.Signal, t.Interaction, t.Reset}
}

// orbControl is what inbound routing needs from the orb.
type orbControl interface {
	Interact(source string, ev affect.InteractionEvent)
	ResetMemory()
}

// sampleSink accepts external signal samples; *signal.Mailbox satisfies it.
type sampleSink interface {
	Put(s affect.Sample)
}

// routeInbound applies one inbound message.
func routeInbound(msg InboundMessage, topics inboundTopics, orb orbControl, sink sampleSink) error {
	switch msg.Topic {
	case topics.Signal:
		var p SignalPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("signal payload: %w", err)
		}
		if p.Energy == nil {
			return fmt.Errorf("signal payload: missing energy")
		}
		// Out of range samples still go through; the engine treats them as no signal
		sink.Put(affect.Sample{Energy: *p.Energy, Centroid: p.Centroid})

	case topics.Interaction:
		var p InteractionPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("interaction payload: %w", err)
		}
		ev, err := p.Event()
		if err != nil {
			return err
		}
		orb.Interact("mqtt", ev)

	case topics.Reset:
		v := strings.ToLower(strings.TrimSpace(string(msg.Payload)))
		if v != "" && v != "reset" && v != "press" && v != "on" {
			return fmt.Errorf("reset payload %q", v)
		}
		orb.ResetMemory()

	default:
		return fmt.Errorf("unexpected topic %s", msg.Topic)
	}
	return nil
}

// inboundWorker routes inbound MQTT messages to the orb.
func inboundWorker(
	ctx context.Context,
	msgChan <-chan InboundMessage,
	topics inboundTopics,
	orb orbControl,
	sink sampleSink,
	logger zerolog.Logger,
) {
	for {
		select {
		case msg := <-msgChan:
			if err := routeInbound(msg, topics, orb, sink); err != nil {
				logger.Warn().Err(err).Str("topic", msg.Topic).Msg("ignoring inbound message")
			}
		case <-ctx.Done():
			return
		}
	}
}
