package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/example/ledbridge/internal/api"
	"github.com/example/ledbridge/internal/color"
	"github.com/example/ledbridge/internal/config"
	"github.com/example/ledbridge/internal/e131"
	"github.com/example/ledbridge/internal/frame"
	"github.com/example/ledbridge/internal/preview"
	"github.com/example/ledbridge/internal/pulse"
	"github.com/example/ledbridge/internal/render"
	"github.com/example/ledbridge/internal/transmit"
)

// Status colors shown on the onboard indicator, matching the original
// device: dim red while booting, blue once the servers are up.
var (
	statusBoot  = color.RGB(8, 0, 0)
	statusReady = color.RGB(0, 0, 8)
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
		httpAddr   = flag.String("http", "", "HTTP listen address (overrides config)")
		udpAddr    = flag.String("udp", "", "UDP listen address (overrides config)")
		simOnly    = flag.Bool("sim-only", false, "force simulation (no hardware output)")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; using defaults")
		cfg = config.Default()
	}
	if *httpAddr != "" {
		cfg.HTTP.Addr = *httpAddr
	}
	if *udpAddr != "" {
		cfg.UDP.Addr = *udpAddr
	}

	// Hardware access is only initialized when some channel wants it.
	wantSPI := false
	for _, cc := range cfg.Channels {
		if cc.Driver == "spi" && !*simOnly {
			wantSPI = true
		}
	}
	if wantSPI {
		if _, err := host.Init(); err != nil {
			log.Warn().Err(err).Msg("periph host init failed; falling back to SIM")
			*simOnly = true
		}
	}

	buffers := map[string]*frame.Buffer{}
	var channels []*render.Channel
	for _, cc := range cfg.Channels {
		def, err := cc.Default()
		if err != nil {
			log.Fatal().Err(err).Msg("bad channel config")
		}
		profile, err := cc.Profile()
		if err != nil {
			log.Fatal().Err(err).Msg("bad channel config")
		}

		buf := frame.New(cc.Count, def)
		buffers[cc.Name] = buf

		sink := buildSink(cc, *simOnly)
		enc, err := pulse.NewEncoder(cc.Clock())
		if err != nil {
			log.Fatal().Err(err).Str("channel", cc.Name).Msg("encoder init failed")
		}

		channels = append(channels, &render.Channel{
			Name:    cc.Name,
			Buf:     buf,
			Profile: profile,
			Enc:     enc,
			Sink:    sink,
		})
	}
	if len(channels) == 0 {
		log.Fatal().Msg("no channels configured")
	}

	hub := preview.NewHub(log.Logger)
	loop := render.New(channels, cfg.FrameInterval(), hub.Broadcast, log.Logger)

	status := buffers[cfg.StatusChannel]
	setStatus(status, statusBoot)

	strip := buffers[cfg.UDP.Channel]
	if strip == nil {
		log.Fatal().Str("channel", cfg.UDP.Channel).Msg("UDP target channel not configured")
	}

	udpSrv, err := e131.NewServer(cfg.UDP.Addr, strip, loop.Kick, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("UDP server failed to start")
	}

	apiSrv := api.NewServer(strip, loop.Kick, hub, int64(cfg.HTTP.MaxBodyBytes), loop.Frames, log.Logger)
	httpSrv := &http.Server{
		Addr:        cfg.HTTP.Addr,
		Handler:     apiSrv.Handler(),
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// The servers, sinks and buffers live for the whole process; main owns
	// them and only lets go on shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("render loop stopped")
		}
	}()
	go func() {
		if err := udpSrv.Run(); err != nil {
			log.Warn().Err(err).Msg("UDP receive loop ended")
		}
	}()
	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("HTTP server starting")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server crashed")
		}
	}()

	setStatus(status, statusReady)
	loop.Kick()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	s := <-ch
	log.Info().Str("signal", s.String()).Msg("shutting down")

	cancel()
	_ = udpSrv.Close()
	_ = httpSrv.Close()
	for _, c := range channels {
		_ = c.Sink.Close()
	}
}

// buildSink opens the channel's transmit path, falling back to the sim sink
// when hardware is unavailable so the process still comes up headless.
func buildSink(cc config.ChannelCfg, simOnly bool) transmit.Sink {
	driver := cc.Driver
	if simOnly {
		driver = "sim"
	}
	switch driver {
	case "spi":
		port, err := spireg.Open(cc.SPIDev)
		if err != nil {
			log.Warn().Err(err).Str("channel", cc.Name).Str("dev", cc.SPIDev).
				Msg("SPI open failed; falling back to SIM")
			return transmit.NewSim(log.Logger)
		}
		sink, err := transmit.NewSPI(port, cc.Clock(), cc.Latch())
		if err != nil {
			log.Warn().Err(err).Str("channel", cc.Name).
				Msg("SPI init failed; falling back to SIM")
			_ = port.Close()
			return transmit.NewSim(log.Logger)
		}
		return sink
	case "", "sim":
		return transmit.NewSim(log.Logger)
	default:
		log.Warn().Str("driver", driver).Str("channel", cc.Name).Msg("unknown driver; using SIM")
		return transmit.NewSim(log.Logger)
	}
}

func setStatus(buf *frame.Buffer, c color.Color) {
	if buf == nil {
		return
	}
	buf.Update([]color.Color{c})
}
