package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	glspserver "github.com/tliron/glsp/server"

	"github.com/CWBudde/go-rspec-lsp/internal/lsp"
	"github.com/CWBudde/go-rspec-lsp/internal/metrics"
	"github.com/CWBudde/go-rspec-lsp/internal/server"
)

const (
	name    = "go-rspec-lsp"
	version = "0.1.0"
)

var (
	tcpMode     bool
	tcpPort     int
	logLevel    string
	logFile     string
	metricsAddr string
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          name,
		Short:        "Language server adding RSpec helper navigation to Ruby editors",
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	flags := root.Flags()
	flags.BoolVar(&tcpMode, "tcp", false, "Run server in TCP mode (for debugging)")
	flags.IntVar(&tcpPort, "port", 8765, "TCP port to listen on (used with --tcp)")
	flags.StringVar(&logLevel, "log-level", "error", "Log level: debug, info, warn, error")
	flags.StringVar(&logFile, "log-file", "", "Log file path (default: stderr)")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. 127.0.0.1:9464")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", name, version)
		},
	})

	return root
}

func run() error {
	verbosity, err := verbosityFor(logLevel)
	if err != nil {
		return err
	}

	var path *string
	if logFile != "" {
		path = &logFile
	}
	commonlog.Configure(verbosity, path)

	log := commonlog.GetLogger("rspec-lsp")
	log.Noticef("%s version %s starting", name, version)

	m := metrics.New()
	if metricsAddr != "" {
		go serveMetrics(log, m)
	}

	srv := server.New(m)
	defer srv.Close()

	lsp.Version = version
	lsp.SetServer(srv)

	glspServer := glspserver.NewServer(lsp.NewHandler(), name, verbosity > 1)

	if tcpMode {
		log.Noticef("starting TCP server on port %d", tcpPort)
		if err := glspServer.RunTCP(fmt.Sprintf("127.0.0.1:%d", tcpPort)); err != nil {
			return fmt.Errorf("TCP server: %w", err)
		}

		return nil
	}

	log.Noticef("starting STDIO server")
	if err := glspServer.RunStdio(); err != nil {
		return fmt.Errorf("STDIO server: %w", err)
	}

	return nil
}

// verbosityFor maps a log level name to a commonlog verbosity.
func verbosityFor(level string) (int, error) {
	switch strings.ToLower(level) {
	case "error":
		return -2, nil
	case "warn", "warning":
		return -1, nil
	case "info":
		return 1, nil
	case "debug":
		return 2, nil
	}

	return 0, fmt.Errorf("unknown log level %q", level)
}

func serveMetrics(log commonlog.Logger, m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	httpServer := &http.Server{
		Addr:              metricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Infof("serving metrics on http://%s/metrics", metricsAddr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorf("metrics server: %v", err)
	}
}
