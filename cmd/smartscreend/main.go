// Command smartscreend streams a test pattern (or, eventually, a
// renderer-fed frame source) to a 1A86:5722 serial display, adapting
// between full-frame and dirty-rect updates as load allows.
package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/devodan69/smartscreen/internal/budget"
	"github.com/devodan69/smartscreen/internal/config"
	"github.com/devodan69/smartscreen/internal/stream"
	"github.com/devodan69/smartscreen/internal/telemetry"
	"github.com/devodan69/smartscreen/internal/transport"
	"github.com/devodan69/smartscreen/testpattern"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	panelWidth  = 800
	panelHeight = 480
)

func main() {
	port := flag.String("port", "", "serial device to use, overriding auto-discovery")
	pattern := flag.String("pattern", "checkerboard", "test pattern to stream: black|white|red|green|blue|quadrants|h-gradient|v-gradient|checkerboard")
	configPath := flag.String("config", "", "path to a persisted config.json (see internal/config.Config)")
	httpAddr := flag.String("http", ":9477", "address to serve /metrics and /status on")
	mock := flag.Bool("mock", false, "drive an in-process loopback transport instead of a real serial port")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Warn().Err(err).Str("path", *configPath).Msg("failed to load config, using defaults")
		} else {
			cfg = loaded
		}
	}
	if *port != "" {
		cfg.Device.PortOverride = *port
	}

	frame, err := testpattern.Build(testpattern.Name(*pattern), panelWidth, panelHeight)
	if err != nil {
		log.Fatal().Err(err).Str("pattern", *pattern).Msg("unknown test pattern")
	}

	var newPort stream.PortFactory
	if *mock {
		newPort = func() transport.Port {
			driver, device := transport.NewLoopbackPair()
			go serveMockPanel(device)
			return driver
		}
	} else {
		newPort = func() transport.Port { return transport.New() }
	}

	controller := stream.New(panelWidth, panelHeight, newPort, log.Logger)
	controller.PortOverride = cfg.Device.PortOverride
	controller.Mode = cfg.Stream.Mode
	controller.PollMs = cfg.Stream.PollMs

	budgetCtl := budget.New(cfg.Performance)
	registry := telemetry.NewRegistry()

	mux := http.NewServeMux()
	mux.Handle("/metrics", registry.Handler())
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(controller.Status()); err != nil {
			log.Error().Err(err).Msg("encoding status response")
		}
	})
	server := &http.Server{Addr: *httpAddr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	log.Info().Str("pattern", *pattern).Bool("mock", *mock).Msg("starting smartscreend")

	ticker := time.NewTicker(time.Duration(controller.PollMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats, err := controller.Send(frame)
			if err != nil {
				log.Error().Err(err).Msg("send failed")
				continue
			}
			status := controller.Status()
			registry.Observe(status)

			budgetStatus := budgetCtl.Sample(status.FPS, controller.PollMs, controller.Mode)
			controller.ApplyBudget(budgetStatus)
			ticker.Reset(time.Duration(controller.PollMs) * time.Millisecond)

			log.Debug().
				Str("mode", stats.Mode).
				Int("bytes_sent", stats.BytesSent).
				Float64("fps", status.FPS).
				Msg("frame sent")
		case sig := <-sigCh:
			log.Info().Str("signal", sig.String()).Msg("shutting down")
			_ = controller.Disconnect()
			_ = server.Close()
			return
		}
	}
}

// serveMockPanel answers HELLO on the device end of a loopback pair so
// -mock mode can run the full handshake without real hardware.
func serveMockPanel(device transport.Port) {
	for {
		data, err := device.Read(64, 2000)
		if err != nil {
			return
		}
		if len(data) == 6 && allEqual(data, data[0]) {
			_, _ = device.Write([]byte{2, 2, 2, 2, 2, 2})
		}
	}
}

func allEqual(data []byte, v byte) bool {
	for _, b := range data {
		if b != v {
			return false
		}
	}
	return true
}
