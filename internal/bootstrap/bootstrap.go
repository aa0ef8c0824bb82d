// Package bootstrap implements the workbench bring-up sequence.
//
// The sequence is a fixed pipeline of phases:
//
//	VALIDATE -> ATTACH -> START -> POLL -> COMPOSE -> OPEN
//
// Each phase advances unconditionally to the next, with two exceptions:
// a validation failure terminates the sequence before any side effect, and
// an exhausted polling budget terminates it before an endpoint is composed.
// Execution is single-threaded and strictly sequential; the only suspension
// point is the fixed-interval pause inside the polling loop.
//
// The external collaborators (storage attach, service control, browser) are
// injected as capabilities so the sequence can be tested without devices,
// a Docker daemon, or a desktop session.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/riffle-ml/riffle/internal/config"
	"github.com/riffle-ml/riffle/internal/logger"
)

// ErrReadinessTimeout indicates the polling budget was exhausted before the
// service produced a readiness credential. No endpoint is composed in that
// case: an endpoint with an empty token would be malformed and misleading.
var ErrReadinessTimeout = errors.New("workbench did not become ready within the retry budget")

// StorageManager is the attach subsystem the bootstrapper triggers state
// transitions in. Attach failures are propagated unclassified.
type StorageManager interface {
	IsAttached(ctx context.Context, device string) (bool, error)
	Attach(ctx context.Context, device string) error
}

// ServiceController is the service subsystem. BuildAndStart returns once
// the detached start request is issued; ReadinessCredential returns the
// empty string while the service is still starting.
type ServiceController interface {
	BuildAndStart(ctx context.Context, service string) error
	ReadinessCredential(ctx context.Context, service string) (string, error)
}

// Opener hands the composed endpoint to a user-facing viewer.
type Opener func(url string) error

// Bootstrapper runs the bring-up sequence against injected collaborators.
type Bootstrapper struct {
	cfg     *config.Config
	storage StorageManager
	service ServiceController
	open    Opener

	// sleep is the polling pause, replaceable in tests.
	sleep func(time.Duration)
}

// New creates a bootstrapper. A nil opener disables the OPEN phase
// (the endpoint is still composed and returned).
func New(cfg *config.Config, storage StorageManager, service ServiceController, open Opener) *Bootstrapper {
	return &Bootstrapper{
		cfg:     cfg,
		storage: storage,
		service: service,
		open:    open,
		sleep:   time.Sleep,
	}
}

// Run executes the full sequence and returns the composed endpoint.
//
// On a validation failure the error wraps config.ErrMissingConfiguration
// and nothing else has happened: no attach, no start, no polling. On an
// exhausted polling budget the error wraps ErrReadinessTimeout and no
// endpoint is composed or opened.
func (b *Bootstrapper) Run(ctx context.Context) (string, error) {
	if err := b.cfg.Validate(); err != nil {
		return "", err
	}

	if err := b.ensureStorageAttached(ctx); err != nil {
		return "", err
	}

	if err := b.service.BuildAndStart(ctx, b.cfg.Service); err != nil {
		return "", err
	}

	credential, err := b.waitForReadiness(ctx)
	if err != nil {
		return "", err
	}

	endpoint := ComposeEndpoint(b.cfg.BaseURL(), credential)
	logger.Info("Workbench ready: %s", endpoint)

	if b.open != nil {
		if err := b.open(endpoint); err != nil {
			// The endpoint is usable even if no browser could be
			// launched (headless hosts); report it and move on.
			logger.Warn("Failed to open browser: %v", err)
		}
	}

	return endpoint, nil
}

// ensureStorageAttached checks the device's attachment state and issues an
// attach action when needed. Already attached is the common case after the
// first run and is only logged; no second attach is issued.
func (b *Bootstrapper) ensureStorageAttached(ctx context.Context) error {
	attached, err := b.storage.IsAttached(ctx, b.cfg.Device)
	if err != nil {
		return fmt.Errorf("failed to check storage attachment: %w", err)
	}

	if attached {
		logger.Info("Storage %s already attached", b.cfg.Device)
		return nil
	}

	if err := b.storage.Attach(ctx, b.cfg.Device); err != nil {
		return fmt.Errorf("failed to attach storage %s: %w", b.cfg.Device, err)
	}

	return nil
}

// waitForReadiness polls the service for its readiness credential with
// bounded, strictly sequential attempts and a constant pause between them.
//
// A non-empty credential stops the loop immediately. Query errors count as
// an unsuccessful attempt: transient failures of the external subsystem are
// not classified here. When the budget runs out the returned error wraps
// ErrReadinessTimeout.
func (b *Bootstrapper) waitForReadiness(ctx context.Context) (string, error) {
	budget := b.cfg.Poll

	for attempt := 0; attempt < budget.MaxAttempts; attempt++ {
		credential, err := b.service.ReadinessCredential(ctx, b.cfg.Service)
		if err != nil {
			logger.Warn("Readiness check failed: %v", err)
		}
		if credential != "" {
			logger.Debug("Readiness credential obtained on attempt %d", attempt+1)
			return credential, nil
		}

		logger.Info("Workbench not ready yet, waiting... (attempt %d/%d)",
			attempt+1, budget.MaxAttempts)
		b.sleep(budget.Interval)
	}

	return "", fmt.Errorf("%w (%d attempts, %s apart)",
		ErrReadinessTimeout, budget.MaxAttempts, budget.Interval)
}

// ComposeEndpoint appends the readiness credential to the base URL as the
// notebook token query parameter.
func ComposeEndpoint(baseURL, credential string) string {
	return fmt.Sprintf("%s/?token=%s", baseURL, credential)
}
