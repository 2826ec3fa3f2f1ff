package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/loopholelabs/logging"
	"github.com/loopholelabs/logging/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/moffa90/go-sphero/sphero"
	"github.com/moffa90/go-sphero/spherotest"
	"github.com/moffa90/go-sphero/transport/serial"
)

// session is one connected client plus everything it depends on.
type session struct {
	log     types.RootLogger
	client  *sphero.Client
	device  *spherotest.Device
	metrics *http.Server
}

func newLogger(debug bool) types.RootLogger {
	log := logging.New(logging.Zerolog, "spherectl", os.Stderr)
	if debug {
		log.SetLevel(types.DebugLevel)
	} else {
		log.SetLevel(types.WarnLevel)
	}
	return log
}

func openSession(ctx context.Context, cfg cliConfig) (*session, error) {
	s := &session{log: newLogger(cfg.Debug)}

	opts := []sphero.Option{
		sphero.WithLogger(s.log),
		sphero.WithResponseTimeout(cfg.Timeout),
	}

	if cfg.Metrics != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append(opts, sphero.WithMetrics(sphero.NewMetrics(reg, "sphero")))

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
			Registry:          reg,
		}))
		s.metrics = &http.Server{Addr: cfg.Metrics, Handler: mux}

		go func() {
			if err := s.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.log.Error().Str("addr", cfg.Metrics).Err(err).Msg("metrics server stopped")
			}
		}()
	}

	if cfg.Simulate {
		s.device = spherotest.NewDevice()
		s.client = sphero.New(s.device.Transport(), opts...)
		s.log.Info().Msg("using simulated device")
		return s, nil
	}

	port, err := serial.OpenContext(ctx, serial.Config{
		Port:     cfg.Port,
		BaudRate: cfg.Baud,
		Retries:  cfg.Retries,
		Logger:   s.log,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	s.client = sphero.New(port, opts...)

	return s, nil
}

func (s *session) Close() error {
	var err error
	if s.client != nil {
		err = s.client.Close()
	}
	if s.device != nil {
		s.device.Close()
	}
	if s.metrics != nil {
		s.metrics.Close()
	}
	return err
}
