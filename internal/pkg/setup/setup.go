package setup

import (
	"context"
	"strings"

	"github.com/mmiyara/govee-remote/internal/pkg/config"
	"github.com/mmiyara/govee-remote/internal/pkg/goveeapi"
	"github.com/mmiyara/govee-remote/internal/pkg/hostapi"
	"github.com/mmiyara/govee-remote/internal/pkg/logging"
	"github.com/mmiyara/govee-remote/internal/pkg/remote"
)

/*
 *   Setup/discovery orchestration: credential test, device listing,
 *   capability summarisation and registry persistence.  Transport
 *   retries live in the API client; errors here are classified and
 *   surfaced to the host exactly once.
 */

// Handler drives the host's setup flow for this driver
type Handler struct {
	cfg        *config.Config
	client     goveeapi.Cloud
	onComplete func()
}

// New builds a setup handler.  onComplete fires after a successful
// cycle has been persisted (may be nil).
func New(cfg *config.Config, client goveeapi.Cloud, onComplete func()) *Handler {
	return &Handler{
		cfg:        cfg,
		client:     client,
		onComplete: onComplete,
	}
}

// OnSetup processes one message of the host setup flow
func (h *Handler) OnSetup(ctx context.Context, msg hostapi.SetupRequest) hostapi.SetupAction {
	logging.Logger(ctx).Infof("Setup handler called with %T", msg)

	switch m := msg.(type) {
	case *hostapi.DriverSetupRequest:
		return h.handleSetupRequest(ctx, m)
	case *hostapi.UserDataResponse:
		return h.handleUserData(ctx, m)
	case *hostapi.UserConfirmationResponse:
		if m.Confirm {
			return hostapi.SetupComplete{}
		}
		return hostapi.SetupError{Kind: hostapi.ErrOther}
	case *hostapi.AbortDriverSetup:
		return h.handleAbort(ctx, m)
	}

	return hostapi.SetupError{Kind: hostapi.ErrOther}
}

func (h *Handler) handleSetupRequest(ctx context.Context, msg *hostapi.DriverSetupRequest) hostapi.SetupAction {
	if h.cfg.IsConfigured() && !msg.Reconfigure {
		logging.Logger(ctx).Info("Already configured, testing stored credentials")

		if err := h.testExisting(ctx); err == nil {
			h.complete()
			return hostapi.SetupComplete{}
		}
		logging.Logger(ctx).Warn("Stored credentials no longer work, reconfiguring")
	}

	key := strings.TrimSpace(msg.SetupData["api_key"])
	if key == "" {
		return apiKeyForm()
	}

	return h.configure(ctx, key)
}

// apiKeyForm asks the host to collect the API key from the user
func apiKeyForm() hostapi.RequestUserInput {
	return hostapi.RequestUserInput{
		Title: map[string]string{"en": "Govee API Key"},
		Inputs: []hostapi.SetupInput{
			{ID: "api_key", Label: map[string]string{"en": "API Key"}},
		},
	}
}

func (h *Handler) handleUserData(ctx context.Context, msg *hostapi.UserDataResponse) hostapi.SetupAction {
	key := strings.TrimSpace(msg.InputValues["api_key"])
	if key == "" {
		logging.Logger(ctx).Error("No API key provided")
		return hostapi.SetupError{Kind: hostapi.ErrOther}
	}

	return h.configure(ctx, key)
}

// Abort is a full reset, never a partial one
func (h *Handler) handleAbort(ctx context.Context, msg *hostapi.AbortDriverSetup) hostapi.SetupAction {
	logging.Logger(ctx).Infof("Setup aborted: %s", msg.Error)

	if err := h.cfg.Clear(); err != nil {
		logging.Logger(ctx).WithError(err).Error("clearing configuration")
	}

	return hostapi.SetupError{Kind: msg.Error}
}

func (h *Handler) testExisting(ctx context.Context) error {
	return h.client.WithAPIKey(h.cfg.APIKey()).TestConnection(ctx)
}

// configure runs one discovery cycle with a fresh key: test the
// connection, list devices, summarise and persist
func (h *Handler) configure(ctx context.Context, key string) hostapi.SetupAction {
	client := h.client.WithAPIKey(key)

	if err := client.TestConnection(ctx); err != nil {
		logging.Logger(ctx).WithError(err).Error("connection test failed")
		return hostapi.SetupError{Kind: classify(err)}
	}

	devices, err := client.Devices(ctx)
	if err != nil {
		logging.Logger(ctx).WithError(err).Error("device discovery failed")
		return hostapi.SetupError{Kind: classify(err)}
	}

	records := make(map[string]config.DeviceRecord, len(devices))
	for _, dev := range devices {
		records[dev.ID] = config.RecordFromDevice(dev)
		logging.Logger(ctx).Infof("Device: %s (%s/%s) - SKU: %s",
			dev.Name, dev.Type, dev.APIType, dev.SKU)
	}

	// An ambiguous command namespace would silently mis-route
	// commands later; refuse it now
	if err := remote.UniquePrefixes(remote.SortedEntries(records)); err != nil {
		logging.Logger(ctx).WithError(err).Error("device names produce ambiguous commands")
		return hostapi.SetupError{Kind: hostapi.ErrOther}
	}

	if err := h.cfg.SetAPIKey(key); err != nil {
		logging.Logger(ctx).WithError(err).Error("persisting API key")
		return hostapi.SetupError{Kind: hostapi.ErrOther}
	}
	if err := h.cfg.SetDevices(records); err != nil {
		logging.Logger(ctx).WithError(err).Error("persisting device registry")
		return hostapi.SetupError{Kind: hostapi.ErrOther}
	}

	// Zero devices is still a successful setup
	logging.Logger(ctx).Infof("Saved %d devices to configuration", len(records))

	h.complete()
	return hostapi.SetupComplete{}
}

func (h *Handler) complete() {
	if h.onComplete != nil {
		h.onComplete()
	}
}

func classify(err error) hostapi.SetupErrorKind {
	switch goveeapi.KindOf(err) {
	case goveeapi.KindUnauthorized:
		return hostapi.ErrAuthorization
	case goveeapi.KindRateLimited:
		return hostapi.ErrRateLimited
	case goveeapi.KindConnection:
		return hostapi.ErrConnectionRefused
	default:
		return hostapi.ErrOther
	}
}
