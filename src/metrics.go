package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesRendered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "visimos_frames_total",
			Help: "Total number of frames computed",
		},
	)

	frameDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "visimos_frame_duration_seconds",
			Help:    "Time spent computing one frame",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
		},
	)

	framesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visimos_frames_dropped_total",
			Help: "Frames not delivered because a consumer was busy",
		},
		[]string{"consumer"},
	)

	interactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visimos_interactions_total",
			Help: "Interaction events handled by the engine",
		},
		[]string{"kind", "source"},
	)

	utterancesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visimos_utterances_total",
			Help: "Advisory utterances, by whether they were voiced or suppressed",
		},
		[]string{"kind", "outcome"},
	)

	emotionWarmth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "visimos_emotion_warmth",
			Help: "Current fast warmth",
		},
	)

	emotionCalm = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "visimos_emotion_calm",
			Help: "Current calm",
		},
	)

	profileVisits = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "visimos_profile_visits",
			Help: "Visits recorded in the session profile",
		},
	)

	moodState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "visimos_mood",
			Help: "1 for the current mood label, 0 otherwise",
		},
		[]string{"mood"},
	)

	signalEnergyRange = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "visimos_signal_energy",
			Help: "Rolling one-minute energy bounds",
		},
		[]string{"bound"},
	)

	signalAvailable = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "visimos_signal_available",
			Help: "1 while a microphone is capturing",
		},
	)

	profileWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visimos_profile_writes_total",
			Help: "Profile store operations",
		},
		[]string{"op", "result"},
	)

	wsClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "visimos_ws_clients",
			Help: "Connected websocket clients",
		},
	)

	workerPanics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visimos_worker_panics_total",
			Help: "Recovered worker panics",
		},
		[]string{"worker"},
	)
)

func resultLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
