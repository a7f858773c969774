// Command scum-tune runs the frequency-tuning subsystem against a real
// SCuM radio front-end, modeled on cmd/mqttradio's bootstrap: parse
// flags, load a TOML config, bring up the radio and its collaborators,
// and run the tuning subsystem to completion or until killed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/tve/scum-tuning"
	"github.com/tve/scum-tuning/calibration"
	"github.com/tve/scum-tuning/config"
	"github.com/tve/scum-tuning/feedback"
	"github.com/tve/scum-tuning/metrics"
	"github.com/tve/scum-tuning/radio"
	"github.com/tve/scum-tuning/registry"
	"github.com/tve/scum-tuning/thread"
	"github.com/tve/scum-tuning/tuning"
)

func main() {
	configFile := flag.String("config", "scum-tune.toml", "path to config file")
	spiPort := flag.String("spi", "SPI0.0", "periph.io SPI port name")
	intrPinName := flag.String("intr-pin", "GPIO17", "interrupt pin name")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scum-tune: %s\n", err)
		os.Exit(1)
	}
	cfg.ApplyOverrides()

	logger := func(string, ...interface{}) {}
	if cfg.Debug {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds)
		logger = log.Printf
	}

	if _, err := host.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "scum-tune: periph.io host init: %s\n", err)
		os.Exit(1)
	}

	spiDev, err := spireg.Open(*spiPort)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scum-tune: opening SPI port %s: %s\n", *spiPort, err)
		os.Exit(1)
	}
	intrPin := gpioreg.ByName(*intrPinName)
	if intrPin == nil {
		fmt.Fprintf(os.Stderr, "scum-tune: cannot open interrupt pin %s\n", *intrPinName)
		os.Exit(1)
	}

	rad, err := radio.NewPeriphRadio(devices.NewSPI(spiDev), devices.NewGPIO(intrPin), radio.LogPrintf(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "scum-tune: bringing up radio: %s\n", err)
		os.Exit(1)
	}

	reg := registry.New()
	fb := feedback.New(reg, feedback.LogPrintf(logger))

	// BareMetalScheduler needs a radio.Timer wired to the mote's own
	// sctimer hardware; this build target has no such driver, so both
	// config modes run on the stdlib-backed SlotframeScheduler.
	sched := calibration.NewSlotframeScheduler()

	var prom *metrics.Prometheus
	if cfg.Prometheus.Listen != "" {
		prom = metrics.NewPrometheus(prometheus.DefaultRegisterer)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.Prometheus.Listen, mux); err != nil && err != http.ErrServerClosed {
				log.Printf("scum-tune: Prometheus listener exited: %s", err)
			}
		}()
		log.Printf("scum-tune: Prometheus metrics on %s/metrics", cfg.Prometheus.Listen)
	}
	var mqttPub *metrics.MQTTPublisher
	if cfg.Mqtt.Host != "" {
		mqttPub, err = metrics.NewMQTTPublisher(metrics.MqttConfig{
			Host: cfg.Mqtt.Host, Port: cfg.Mqtt.Port,
			User: cfg.Mqtt.User, Password: cfg.Mqtt.Password, Topic: cfg.Mqtt.Topic,
		}, metrics.LogPrintf(logger))
		if err != nil {
			fmt.Fprintf(os.Stderr, "scum-tune: connecting to MQTT broker: %s\n", err)
			os.Exit(1)
		}
	}

	initialSweep := tuning.SweepConfig{
		Coarse: tuning.SweepRange{Start: tuning.MinCode, End: tuning.MaxCode},
		Mid:    tuning.SweepRange{Start: tuning.MinCode, End: tuning.MaxCode},
		Fine:   tuning.SweepRange{Start: tuning.MinCode, End: tuning.MaxCode},
	}
	sub, err := calibration.NewTuningSubsystem(reg, fb, rad, sched, calibration.TuningSubsystemOpts{
		InitialChannel: cfg.Mote.InitialChannel,
		InitialSweep:   initialSweep,
		Logger:         calibration.LogPrintf(logger),
		Metrics:        prom,
		MQTT:           mqttPub,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "scum-tune: building tuning subsystem: %s\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := thread.Realtime(); err != nil {
		log.Printf("scum-tune: cannot make dispatch goroutine realtime: %s", err)
	}

	log.Printf("scum-tune: starting calibration on channel %d", cfg.Mote.InitialChannel)
	if err := sub.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "scum-tune: %s\n", err)
		os.Exit(1)
	}
	log.Printf("scum-tune: exiting")
}
