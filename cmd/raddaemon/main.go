// raddaemon is the RADIUS authentication server: it receives
// Access-Request datagrams, resolves the sending NAS, and authenticates
// credentials against an in-memory account file.
package main

import (
	"flag"
	"fmt"
	"net"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/raddaemon/raddaemon/internal/account"
	"github.com/raddaemon/raddaemon/internal/config"
	"github.com/raddaemon/raddaemon/internal/diagnostics"
	"github.com/raddaemon/raddaemon/internal/logging"
	"github.com/raddaemon/raddaemon/internal/nas"
	"github.com/raddaemon/raddaemon/internal/server"
	"github.com/raddaemon/raddaemon/pkg/radius"
)

func main() {
	configPath := flag.String("config", "/etc/raddaemon/server.toml", "path to server configuration file")
	flag.Parse()

	cfg, err := config.LoadServerConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel, os.Stdout)
	logger.Info("raddaemon starting", "config", *configPath, "binding", cfg.NetworkBinding)

	store := account.NewStore(0)
	if cfg.AccountFile != "" {
		text, err := os.ReadFile(cfg.AccountFile)
		if err != nil {
			logger.Error("reading account file", "path", cfg.AccountFile, "error", err)
			os.Exit(1)
		}
		if cfg.AccountFileHashed {
			err = store.LoadHashedText(string(text))
		} else {
			err = store.LoadText(string(text))
		}
		if err != nil {
			logger.Error("loading account file", "path", cfg.AccountFile, "error", err)
			os.Exit(1)
		}
		logger.Info("accounts loaded", "count", store.Len())
	}

	registry := nas.NewRegistry(cfg.DefaultSecret, "", logger)
	devices, err := config.ParseDevices(cfg.Devices)
	if err != nil {
		logger.Error("parsing devices", "error", err)
		os.Exit(1)
	}
	for _, d := range devices {
		entry := &nas.Entry{SharedSecret: d.Secret}
		if ip := net.ParseIP(d.Host); ip != nil {
			entry.StaticAddress = ip
		} else {
			entry.HostName = d.Host
		}
		if err := registry.Register(entry); err != nil {
			logger.Error("registering NAS device", "host", d.Host, "error", err)
			os.Exit(1)
		}
	}
	registry.RefreshDNS()

	sink := diagnostics.NewBufferedSink(4096, logger)
	go sink.Start()
	defer sink.Stop()

	realmFormat := radius.RealmFormat(cfg.RealmFormat)

	srv, err := server.New(server.Options{
		NetworkBinding:     cfg.NetworkBinding,
		SocketBuffer:       cfg.SocketBuffer,
		DnsRefreshInterval: cfg.DnsRefreshIntervalDuration(),
		RealmFormat:        realmFormat,
		DefaultSecret:      cfg.DefaultSecret,
		Authenticate:       store.Authenticate,
		Sink:               sink,
		Logger:             logger,
	}, registry)
	if err != nil {
		logger.Error("constructing server", "error", err)
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("starting server", "error", err)
		os.Exit(1)
	}

	if cfg.MetricsListen != "" {
		mux := nethttp.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := nethttp.ListenAndServe(cfg.MetricsListen, mux); err != nil {
				logger.Warn("metrics listener stopped", "error", err)
			}
		}()
		logger.Info("metrics listening", "address", cfg.MetricsListen)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("raddaemon shutting down")
	srv.Stop()
}
