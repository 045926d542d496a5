package main

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryansname/visimos/src/affect"
	"github.com/ryansname/visimos/src/config"
)

// fakeOrb records what adapters ask of the orb.
type fakeOrb struct {
	mu      sync.Mutex
	events  []affect.InteractionEvent
	sources []string
	resets  int
	status  OrbStatus
}

func (f *fakeOrb) Interact(source string, ev affect.InteractionEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	f.sources = append(f.sources, source)
}

func (f *fakeOrb) ResetMemory() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
}

func (f *fakeOrb) Status(ctx context.Context) (OrbStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status, nil
}

func (f *fakeOrb) Events() []affect.InteractionEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]affect.InteractionEvent(nil), f.events...)
}

func (f *fakeOrb) Resets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resets
}

type recordSink struct {
	samples []affect.Sample
}

func (r *recordSink) Put(s affect.Sample) { r.samples = append(r.samples, s) }

func testMQTTConfig() config.MQTTConfig {
	return config.Default().MQTT
}

func TestRouteInbound(t *testing.T) {
	topics := newInboundTopics(testMQTTConfig())
	require.Equal(t, []string{"visimos/signal", "visimos/interaction", "visimos/reset"}, topics.List())

	t.Run("signal sample goes to the sink", func(t *testing.T) {
		orb, sink := &fakeOrb{}, &recordSink{}
		err := routeInbound(InboundMessage{Topic: topics.Signal, Payload: []byte(`{"energy": 120.5, "centroid": 33}`)}, topics, orb, sink)
		require.NoError(t, err)
		assert.Equal(t, []affect.Sample{{Energy: 120.5, Centroid: 33}}, sink.samples)
	})

	t.Run("signal without energy is rejected", func(t *testing.T) {
		orb, sink := &fakeOrb{}, &recordSink{}
		err := routeInbound(InboundMessage{Topic: topics.Signal, Payload: []byte(`{"centroid": 33}`)}, topics, orb, sink)
		assert.Error(t, err)
		assert.Empty(t, sink.samples)
	})

	t.Run("interaction is forwarded", func(t *testing.T) {
		orb, sink := &fakeOrb{}, &recordSink{}
		payload := `{"kind": "swipe", "x": 0.2, "y": 0.7, "gestureDurationMs": 140, "swipeDeltaPx": 150}`
		err := routeInbound(InboundMessage{Topic: topics.Interaction, Payload: []byte(payload)}, topics, orb, sink)
		require.NoError(t, err)
		require.Len(t, orb.Events(), 1)
		assert.Equal(t, affect.InteractionEvent{
			Kind:              affect.Swipe,
			Pos:               affect.Vec2{X: 0.2, Y: 0.7},
			GestureDurationMs: 140,
			SwipeDeltaPx:      150,
		}, orb.Events()[0])
		assert.Equal(t, []string{"mqtt"}, orb.sources)
	})

	t.Run("unknown interaction kind is rejected", func(t *testing.T) {
		orb, sink := &fakeOrb{}, &recordSink{}
		err := routeInbound(InboundMessage{Topic: topics.Interaction, Payload: []byte(`{"kind": "pinch"}`)}, topics, orb, sink)
		assert.Error(t, err)
		assert.Empty(t, orb.Events())
	})

	t.Run("positions outside the unit square are rejected", func(t *testing.T) {
		for _, payload := range []string{
			`{"kind": "press", "x": 1e300, "y": 0.5}`,
			`{"kind": "drag", "x": 0.5, "y": -0.01}`,
		} {
			orb := &fakeOrb{}
			assert.Error(t, routeInbound(InboundMessage{Topic: topics.Interaction, Payload: []byte(payload)}, topics, orb, &recordSink{}))
			assert.Empty(t, orb.Events())
		}
	})

	t.Run("cancel is forwarded", func(t *testing.T) {
		orb := &fakeOrb{}
		require.NoError(t, routeInbound(InboundMessage{Topic: topics.Interaction, Payload: []byte(`{"kind": "cancel"}`)}, topics, orb, &recordSink{}))
		require.Len(t, orb.Events(), 1)
		assert.Equal(t, affect.Cancel, orb.Events()[0].Kind)
	})

	t.Run("malformed json is rejected", func(t *testing.T) {
		orb, sink := &fakeOrb{}, &recordSink{}
		err := routeInbound(InboundMessage{Topic: topics.Interaction, Payload: []byte(`{`)}, topics, orb, sink)
		assert.Error(t, err)
	})

	t.Run("reset accepts button payloads", func(t *testing.T) {
		orb, sink := &fakeOrb{}, &recordSink{}
		for _, payload := range []string{"", "PRESS", "reset", " on "} {
			require.NoError(t, routeInbound(InboundMessage{Topic: topics.Reset, Payload: []byte(payload)}, topics, orb, sink))
		}
		assert.Equal(t, 4, orb.Resets())

		assert.Error(t, routeInbound(InboundMessage{Topic: topics.Reset, Payload: []byte("off")}, topics, orb, sink))
		assert.Equal(t, 4, orb.Resets())
	})

	t.Run("unknown topic", func(t *testing.T) {
		assert.Error(t, routeInbound(InboundMessage{Topic: "elsewhere"}, topics, &fakeOrb{}, &recordSink{}))
	})
}

func TestMQTTSender(t *testing.T) {
	cfg := testMQTTConfig()

	t.Run("telemetry publishes summary and retained mood", func(t *testing.T) {
		ch := make(chan MQTTMessage, 4)
		s := NewMQTTSender(ch, cfg)
		require.NoError(t, s.PublishTelemetry(Telemetry{Mood: "glowing", Visits: 4}))

		require.Len(t, ch, 2)
		summary := <-ch
		assert.Equal(t, "visimos/telemetry", summary.Topic)
		var decoded Telemetry
		require.NoError(t, json.Unmarshal(summary.Payload, &decoded))
		assert.Equal(t, 4, decoded.Visits)

		mood := <-ch
		assert.Equal(t, MQTTMessage{Topic: "visimos/mood", Payload: []byte("glowing"), QoS: 1, Retain: true}, mood)
	})

	t.Run("frames drop rather than block", func(t *testing.T) {
		ch := make(chan MQTTMessage, 1)
		s := NewMQTTSender(ch, cfg)
		require.NoError(t, s.PublishFrame(affect.RenderFrame{Radius: 10}))
		require.NoError(t, s.PublishFrame(affect.RenderFrame{Radius: 20}))
		assert.Len(t, ch, 1)
	})

	t.Run("say publishes the text", func(t *testing.T) {
		ch := make(chan MQTTMessage, 1)
		NewMQTTSender(ch, cfg).Say(newUtterance(UtterPresence, orbEpoch))
		msg := <-ch
		assert.Equal(t, "visimos/speech/say", msg.Topic)
		assert.Equal(t, "I am here.", string(msg.Payload))
	})

	t.Run("mood sensor discovery", func(t *testing.T) {
		ch := make(chan MQTTMessage, 1)
		require.NoError(t, NewMQTTSender(ch, cfg).CreateMoodSensor("visimos"))
		msg := <-ch
		assert.Equal(t, "homeassistant/sensor/visimos_mood/config", msg.Topic)
		assert.True(t, msg.Retain)

		var disc map[string]any
		require.NoError(t, json.Unmarshal(msg.Payload, &disc))
		assert.Equal(t, "enum", disc["device_class"])
		assert.Equal(t, "visimos/mood", disc["state_topic"])
		assert.Equal(t, "visimos_mood", disc["unique_id"])
		assert.Len(t, disc["options"], 4)
	})
}

func TestMQTTPublisherThrottlesFrames(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan MQTTMessage, 16)
	frames := make(chan affect.RenderFrame)
	telemetry := make(chan Telemetry)
	utterances := make(chan Utterance)
	go mqttPublisherWorker(ctx, NewMQTTSender(out, testMQTTConfig()), time.Hour, frames, telemetry, utterances, zerolog.Nop())

	next := func() MQTTMessage {
		t.Helper()
		select {
		case m := <-out:
			return m
		case <-time.After(2 * time.Second):
			require.FailNow(t, "nothing published")
			return MQTTMessage{}
		}
	}

	assert.Equal(t, "visimos/availability", next().Topic)

	frames <- affect.RenderFrame{Radius: 1}
	assert.Equal(t, "visimos/frame", next().Topic)

	// Inside the gap, dropped
	frames <- affect.RenderFrame{Radius: 2}

	utterances <- newUtterance(UtterGreet, orbEpoch)
	assert.Equal(t, "visimos/event", next().Topic)
	assert.Equal(t, "visimos/speech/say", next().Topic)
	assert.Empty(t, out)
}
