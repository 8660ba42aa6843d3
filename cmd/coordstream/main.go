// Package main provides coordstream, the NATS parse bridge.
//
// coordstream subscribes to a subject carrying raw coordinate text and
// publishes normalized WGS84 results, or typed parse errors, to an
// output subject. Messages sent with a reply subject are answered there
// instead, so the bridge also serves request/reply parsing:
//
//	nats request coordparse.raw "40.7128, -74.0060"
//
// Usage:
//
//	coordstream [options]
//
// Options:
//
//	-url URL         NATS server URL (default: nats://127.0.0.1:4222, env: NATS_URL)
//	-in SUBJECT      Input subject (default: coordparse.raw)
//	-out SUBJECT     Output subject (default: coordparse.parsed)
//	-queue NAME      Queue group, so multiple bridges share the work (default: coordparse)
//	-order lat|lon   Order of ambiguous numeric pairs
//	-log-level LEVEL trace, debug, info, warn or error (default: info)
//	-log-json        Emit structured JSON logs
//
// The bridge reconnects forever and drains in-flight messages on
// SIGINT/SIGTERM before exiting.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"coordparse"
	"coordparse/internal/stream"
)

func main() {
	url := flag.String("url", envOrDefault("NATS_URL", nats.DefaultURL), "NATS server URL")
	in := flag.String("in", "coordparse.raw", "Input subject with raw coordinate text")
	out := flag.String("out", "coordparse.parsed", "Output subject for parse results")
	queue := flag.String("queue", "coordparse", "Queue group name")
	orderFlag := flag.String("order", "", "Order of ambiguous numeric pairs: lat (default) or lon")
	logLevel := flag.String("log-level", "info", "Log level: trace, debug, info, warn, error")
	logJSON := flag.Bool("log-json", false, "Emit structured JSON logs")
	flag.Parse()

	setupLogging(*logLevel, *logJSON)

	bridge, err := stream.NewBridge(coordparse.New(), stream.Config{
		URL:        *url,
		InSubject:  *in,
		OutSubject: *out,
		Queue:      *queue,
		Order:      *orderFlag,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid bridge configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bridge.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Bridge failed")
	}
}

func setupLogging(level string, jsonOut bool) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if !jsonOut {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
