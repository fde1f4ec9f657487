package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/mitchellh/go-homedir"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mmiyara/govee-remote/internal/pkg/config"
	"github.com/mmiyara/govee-remote/internal/pkg/goveeapi"
	"github.com/mmiyara/govee-remote/internal/pkg/handlers"
	"github.com/mmiyara/govee-remote/internal/pkg/logging"
	"github.com/mmiyara/govee-remote/pkg/middlewares"
)

var _serverCmdOpts struct {
	httpPort        uint16
	stateFile       string
	gracefulTimeout time.Duration
	readTimeout     time.Duration
	writeTimeout    time.Duration
	goveeTimeout    time.Duration
	logRequests     bool
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the integration driver web server",

	RunE: func(cmd *cobra.Command, args []string) error {
		if err := doServer(); err != nil {
			return err
		}

		return nil
	},
}

func init() {
	serverCmd.Flags().Uint16Var(&_serverCmdOpts.httpPort, "http-port", 8088, "HTTP port number")
	serverCmd.Flags().StringVar(&_serverCmdOpts.stateFile, "state-file", "", "File to persist the API key and device registry (default is $HOME/.govee-remote-state.json)")
	serverCmd.Flags().DurationVar(&_serverCmdOpts.gracefulTimeout, "graceful-timeout", time.Second*15, "duration to wait for server to finish, eg. 1m or 10s")
	serverCmd.Flags().DurationVar(&_serverCmdOpts.readTimeout, "read-timeout", time.Second*15, "duration to wait for request read, eg. 1m or 10s")
	serverCmd.Flags().DurationVar(&_serverCmdOpts.writeTimeout, "write-timeout", time.Second*60, "duration to wait for request write, eg. 1m or 10s")
	serverCmd.Flags().DurationVar(&_serverCmdOpts.goveeTimeout, "govee-timeout", time.Second*15, "maximum duration of a Govee API call, eg. 1m or 10s")
	serverCmd.Flags().BoolVar(&_serverCmdOpts.logRequests, "log-requests", false, "log requests and responses (only in debug mode)")

	errPanic(viper.GetViper().BindPFlag("http.port", serverCmd.Flags().Lookup("http-port")))
	errPanic(viper.GetViper().BindPFlag("state.file", serverCmd.Flags().Lookup("state-file")))
	errPanic(viper.GetViper().BindPFlag("http.graceful-timeout", serverCmd.Flags().Lookup("graceful-timeout")))
	errPanic(viper.GetViper().BindPFlag("http.read-timeout", serverCmd.Flags().Lookup("read-timeout")))
	errPanic(viper.GetViper().BindPFlag("http.write-timeout", serverCmd.Flags().Lookup("write-timeout")))
	errPanic(viper.GetViper().BindPFlag("govee.api-timeout", serverCmd.Flags().Lookup("govee-timeout")))
	errPanic(viper.GetViper().BindPFlag("logging.log-requests", serverCmd.Flags().Lookup("log-requests")))

	rootCmd.AddCommand(serverCmd)
}

func checkRequiredFlags(needFlags ...string) error {
	missingFlags := []string{}

	for _, f := range needFlags {
		if !viper.IsSet(f) {
			missingFlags = append(missingFlags, f)
		}
	}

	if len(missingFlags) > 0 {
		itemPlural := "item"
		if len(missingFlags) > 1 {
			itemPlural = "items"
		}
		return fmt.Errorf("required config %s `%s` not set", itemPlural, strings.Join(missingFlags, "`, `"))
	}

	return nil
}

func stateFilePath() (string, error) {
	if f := viper.GetString("state.file"); f != "" {
		return f, nil
	}

	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, ".govee-remote-state.json"), nil
}

func doServer() error {
	wait := viper.GetDuration("http.graceful-timeout")
	port := viper.GetUint("http.port")
	apiTimeout := viper.GetDuration("govee.api-timeout")

	stateFile, err := stateFilePath()
	if err != nil {
		return err
	}

	var logRequests bool
	if viper.GetBool("logging.log-requests") {
		if logrus.IsLevelEnabled(logrus.DebugLevel) {
			logRequests = true
		} else {
			logging.Logger(nil).Warn("log-requests ignored when not in debug mode")
		}
	}

	cfg := config.New(stateFile)
	client := goveeapi.NewLiveClient().WithTimeout(apiTimeout)
	dh := handlers.NewDriverHandler(cfg, client)

	r := mux.NewRouter()
	r.Use(middlewares.NewCorsMw(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}))
	r.Use(middlewares.NewLoggingMw(logRequests))
	r.Use(middlewares.NewRecoveryMw())
	r.Use(middlewares.NewCorrelationMw("X-Correlation-ID"))
	r.HandleFunc("/setup", dh.HandleSetup).Methods(http.MethodPost)
	r.HandleFunc("/entities", dh.HandleEntities).Methods(http.MethodGet)
	r.HandleFunc("/command", dh.HandleCommand).Methods(http.MethodPost)
	r.HandleFunc("/device-state/{id}", dh.HandleDeviceState).Methods(http.MethodGet)
	r.PathPrefix("/").Handler(http.DefaultServeMux)

	s := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		ReadTimeout:  viper.GetDuration("http.read-timeout"),
		WriteTimeout: viper.GetDuration("http.write-timeout"),
		IdleTimeout:  time.Second * 60,
		Handler:      r,
	}

	logging.Logger(nil).Infof("Serving on port %d", port)
	go func() {
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Logger(nil).WithError(err).Error("running server")
		}
	}()

	// Periodically refresh the toggle power cache from live device
	// state so it survives out-of-band changes
	reconcileCtx, stopReconcile := context.WithCancel(context.Background())
	go reconcileLoop(reconcileCtx, cfg, dh)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	// Block until we receive a signal
	<-c
	stopReconcile()

	// Create a deadline to wait for.
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	logging.Logger(nil).Info("shutting down")
	if err := s.Shutdown(ctx); err != nil {
		logging.Logger(nil).WithError(err).Errorf("shutting down")
	}
	logging.Logger(nil).Info("exiting")
	return nil
}

func reconcileLoop(ctx context.Context, cfg *config.Config, dh *handlers.DriverHandler) {
	for {
		interval := time.Duration(cfg.PollingInterval()) * time.Second

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}

		if rem := dh.Remote(); rem != nil {
			rem.Reconcile(ctx)
		}
	}
}
