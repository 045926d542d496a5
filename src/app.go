package main

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ryansname/visimos/src/affect"
	"github.com/ryansname/visimos/src/config"
	"github.com/ryansname/visimos/src/scheduler"
	"github.com/ryansname/visimos/src/signal"
)

// startWorkers builds the orb and launches every enabled worker. Only
// failures that make the configuration unusable are returned; missing
// optional devices degrade with a warning.
func startWorkers(ctx context.Context, cancel context.CancelFunc, cfg *config.Config) error {
	terminal := cfg.Render.Mode == config.ModeTerminal

	var webLn net.Listener
	if cfg.Web.Enabled {
		ln, err := net.Listen("tcp", cfg.Web.Addr)
		if err != nil {
			return fmt.Errorf("web listener: %w", err)
		}
		webLn = ln
	}

	console := cfg.Console.Enabled
	if console && terminal {
		log.Warn().Msg("console is unavailable while the terminal renderer owns the screen")
		console = false
	}

	// Frame fan-out, one buffered channel per enabled consumer
	rawFrames := make(chan affect.RenderFrame, 4)
	frameOutputs := map[string]chan<- affect.RenderFrame{}
	var terminalFrames, wsFrames, mqttFrames chan affect.RenderFrame
	if terminal {
		terminalFrames = make(chan affect.RenderFrame, 2)
		frameOutputs["terminal"] = terminalFrames
	}
	if webLn != nil {
		wsFrames = make(chan affect.RenderFrame, 8)
		frameOutputs["ws"] = wsFrames
	}
	if cfg.MQTT.Enabled {
		mqttFrames = make(chan affect.RenderFrame, 2)
		frameOutputs["mqtt"] = mqttFrames
	}

	// Telemetry fan-out
	var rawTelemetry chan Telemetry
	telemetryOutputs := map[string]chan<- Telemetry{}
	var mqttTelemetry, consoleTelemetry chan Telemetry
	if cfg.MQTT.Enabled {
		mqttTelemetry = make(chan Telemetry, 4)
		telemetryOutputs["mqtt"] = mqttTelemetry
	}
	if console {
		consoleTelemetry = make(chan Telemetry, 4)
		telemetryOutputs["console"] = consoleTelemetry
	}
	if len(telemetryOutputs) > 0 {
		rawTelemetry = make(chan Telemetry, 4)
	}

	// Speech: engine -> cooldown -> fan-out
	rawSpeech := make(chan Utterance, 8)
	voiced := make(chan Utterance, 8)
	speechOutputs := map[string]chan<- Utterance{}
	var chimeSpeech, mqttSpeech, wsSpeech chan Utterance
	if cfg.Speech.Chimes {
		chimeSpeech = make(chan Utterance, 4)
		speechOutputs["chime"] = chimeSpeech
	}
	if cfg.MQTT.Enabled {
		mqttSpeech = make(chan Utterance, 4)
		speechOutputs["mqtt"] = mqttSpeech
	}
	if webLn != nil {
		wsSpeech = make(chan Utterance, 4)
		speechOutputs["ws"] = wsSpeech
	}

	profileRequests := make(chan profileRequest, 16)

	mailbox := signal.NewMailbox()
	viewport := newViewportHolder(affect.Viewport{W: cfg.Render.Width, H: cfg.Render.Height})

	orb := newOrb(OrbDeps{
		Clock: scheduler.SystemClock{},
		Intervals: OrbIntervals{
			Frame:     cfg.Render.FrameInterval,
			Breath:    cfg.Render.BreathInterval,
			Telemetry: cfg.Render.TelemetryInterval,
		},
		Signal:    mailbox,
		Levels:    mailbox,
		Viewport:  viewport,
		Frames:    rawFrames,
		Telemetry: rawTelemetry,
		Speech:    rawSpeech,
		Profile:   profileRequests,
	}, componentLogger("engine"))

	// Restore memory before the first frame
	manager, closeStore := openProfile(cfg)
	p, found := manager.Load()
	orb.Restore(p, found)
	log.Info().Int("visits", p.Visits).Bool("found", found).Msg("profile loaded")

	SafeGo(ctx, cancel, "profile", func(ctx context.Context) {
		defer func() {
			if ctx.Err() != nil {
				closeStore()
			}
		}()
		profileWorker(ctx, manager, profileRequests, componentLogger("profile"))
	})

	SafeGo(ctx, cancel, "engine", func(ctx context.Context) {
		engineWorker(ctx, orb)
	})

	SafeGo(ctx, cancel, "frame_broadcast", func(ctx context.Context) {
		broadcastWorker[affect.RenderFrame](ctx, "frames", rawFrames, frameOutputs, componentLogger("broadcast"))
	})

	if rawTelemetry != nil {
		SafeGo(ctx, cancel, "telemetry_broadcast", func(ctx context.Context) {
			broadcastWorker[Telemetry](ctx, "telemetry", rawTelemetry, telemetryOutputs, componentLogger("broadcast"))
		})
	}

	SafeGo(ctx, cancel, "speech", func(ctx context.Context) {
		speechInterceptorWorker(ctx, cfg.Speech.Cooldown, time.Now, rawSpeech, voiced, componentLogger("speech"))
	})
	SafeGo(ctx, cancel, "speech_broadcast", func(ctx context.Context) {
		broadcastWorker[Utterance](ctx, "speech", voiced, speechOutputs, componentLogger("broadcast"))
	})

	if cfg.Signal.Microphone {
		SafeGo(ctx, cancel, "signal", func(ctx context.Context) {
			signalWorker(ctx, cfg.Signal, mailbox, componentLogger("signal"))
		})
	} else {
		log.Info().Msg("microphone disabled, orb reacts to touch and remote samples only")
	}

	if chimeSpeech != nil {
		SafeGo(ctx, cancel, "chime", func(ctx context.Context) {
			chimeWorker(ctx, cfg.Speech.Volume, chimeSpeech, componentLogger("chime"))
		})
	}

	if cfg.MQTT.Enabled {
		startMQTT(ctx, cancel, cfg.MQTT, orb, mailbox, mqttFrames, mqttTelemetry, mqttSpeech)
	}

	if webLn != nil {
		hub := newWSHub(orb, viewport, componentLogger("ws"))
		SafeGo(ctx, cancel, "web", func(ctx context.Context) {
			webWorker(ctx, webLn, hub, wsFrames, wsSpeech, componentLogger("web"))
		})
	}

	if terminal {
		SafeGo(ctx, cancel, "terminal", func(ctx context.Context) {
			terminalWorker(ctx, cancel, orb, viewport, cfg.Render.CellWidth, cfg.Render.CellHeight, terminalFrames, componentLogger("terminal"))
		})
	}

	if console {
		SafeGo(ctx, cancel, "console", func(ctx context.Context) {
			consoleWorker(ctx, cancel, cfg.Console.HistoryFile, orb, mailbox, consoleTelemetry, componentLogger("console"))
		})
	}

	return nil
}

// startMQTT launches the connection, sender, publisher and inbound router.
func startMQTT(
	ctx context.Context,
	cancel context.CancelFunc,
	cfg config.MQTTConfig,
	orb orbControl,
	sink sampleSink,
	frames <-chan affect.RenderFrame,
	telemetry <-chan Telemetry,
	utterances <-chan Utterance,
) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "visimos-" + uuid.NewString()[:8]
	}
	deviceID := strings.ReplaceAll(cfg.Prefix, "/", "_")

	outgoing := make(chan MQTTMessage, 64)
	clients := make(chan mqtt.Client, 1)
	inbound := make(chan InboundMessage, 32)
	topics := newInboundTopics(cfg)
	sender := NewMQTTSender(outgoing, cfg)

	SafeGo(ctx, cancel, "mqtt_sender", func(ctx context.Context) {
		mqttSenderWorker(ctx, outgoing, clients, componentLogger("mqtt_sender"))
	})
	SafeGo(ctx, cancel, "mqtt", func(ctx context.Context) {
		mqttWorker(ctx, cfg, clientID, topics.List(), inbound, clients, componentLogger("mqtt"))
	})
	SafeGo(ctx, cancel, "mqtt_inbound", func(ctx context.Context) {
		inboundWorker(ctx, inbound, topics, orb, sink, componentLogger("mqtt_inbound"))
	})

	if cfg.Discovery {
		if err := sender.CreateMoodSensor(deviceID); err != nil {
			log.Warn().Err(err).Msg("could not build discovery config")
		}
	}

	SafeGo(ctx, cancel, "mqtt_publisher", func(ctx context.Context) {
		mqttPublisherWorker(ctx, sender, cfg.FrameRate, frames, telemetry, utterances, componentLogger("mqtt_publisher"))
	})
}
