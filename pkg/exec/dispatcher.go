package exec

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vaultcraft/execd/pkg/events"
	"github.com/vaultcraft/execd/pkg/hyper"
	"github.com/vaultcraft/execd/pkg/ledger"
	"github.com/vaultcraft/execd/pkg/models"
	"github.com/vaultcraft/execd/pkg/nav"
	"github.com/vaultcraft/execd/pkg/risk"
)

// VaultRegistrar is the live-event listener hook. Registration is
// fire-and-forget and never a correctness dependency of a dispatch.
type VaultRegistrar interface {
	RegisterVault(vault string)
}

// DispatcherConfig is the execution policy surface.
type DispatcherConfig struct {
	PrimaryVenue string
	EnableLive   bool

	ApplyDryRunToPositions bool
	ApplyLiveToPositions   bool
	ReduceOnlyFallback     bool

	RetryAttempts int // extra attempts beyond the first
	RetryBackoff  time.Duration
}

// Dispatcher orchestrates validation, venue resolution, retry-wrapped
// driver calls, success classification, ledger mutation and event emission.
// It never lets a driver failure escape as an error: every call returns a
// structured outcome.
type Dispatcher struct {
	cfg       DispatcherConfig
	validator *risk.Validator
	drivers   *Registry
	ledger    *ledger.Ledger
	nav       *nav.Calculator
	events    events.Sink
	acks      *AckTracker
	listener  VaultRegistrar // may be nil
	payloads  hyper.ExecClient
	logger    *logrus.Logger
}

func NewDispatcher(
	cfg DispatcherConfig,
	validator *risk.Validator,
	drivers *Registry,
	book *ledger.Ledger,
	navCalc *nav.Calculator,
	sink events.Sink,
	acks *AckTracker,
	listener VaultRegistrar,
	logger *logrus.Logger,
) *Dispatcher {
	if cfg.PrimaryVenue == "" {
		cfg.PrimaryVenue = models.DefaultVenue
	}
	return &Dispatcher{
		cfg:       cfg,
		validator: validator,
		drivers:   drivers,
		ledger:    book,
		nav:       navCalc,
		events:    sink,
		acks:      acks,
		listener:  listener,
		logger:    logger,
	}
}

// Open validates, routes and executes an opening order for a vault.
func (d *Dispatcher) Open(ctx context.Context, vault string, order models.Order) models.ExecutionOutcome {
	venue := d.resolveVenue(order.Venue)

	if err := d.validator.Validate(ctx, order); err != nil {
		d.events.Add(vault, events.Event{
			Type:   events.TypeExecOpen,
			Status: events.StatusRejected,
			Symbol: strings.ToUpper(order.Symbol),
			Venue:  venue,
			Error:  err.Error(),
		})
		return models.ExecutionOutcome{OK: false, Venue: venue, Error: err.Error()}
	}

	if d.listener != nil {
		d.listener.RegisterVault(vault)
	}

	if venue == d.cfg.PrimaryVenue && !d.cfg.EnableLive {
		payload := d.payloads.BuildOpenOrder(order)
		d.events.Add(vault, events.Event{
			Type:    events.TypeExecOpen,
			Status:  events.StatusDryRun,
			Venue:   venue,
			Payload: payload,
		})
		if d.cfg.ApplyDryRunToPositions {
			d.settleFill(ctx, vault, order, venue)
		}
		return models.ExecutionOutcome{OK: true, DryRun: true, Payload: payload, Venue: venue}
	}

	driver, err := d.drivers.Resolve(venue)
	if err != nil {
		d.events.Add(vault, events.Event{
			Type:   events.TypeExecOpen,
			Status: events.StatusError,
			Venue:  venue,
			Error:  err.Error(),
		})
		return models.ExecutionOutcome{OK: false, Venue: venue, Error: err.Error()}
	}

	live := venue == d.cfg.PrimaryVenue && d.cfg.EnableLive
	result, ok, attempts := RunWithRetry(ctx, func(ctx context.Context) (map[string]interface{}, error) {
		return driver.Open(ctx, order)
	}, d.cfg.RetryAttempts, d.cfg.RetryBackoff, d.logger)

	if !ok {
		reason := payloadError(result)
		d.events.Add(vault, events.Event{
			Type:     events.TypeExecOpen,
			Status:   events.StatusError,
			Venue:    venue,
			Attempts: attempts,
			Payload:  result,
			Error:    reason,
		})
		return models.ExecutionOutcome{OK: false, Payload: result, Attempts: attempts, Venue: venue, DryRun: !live, Error: reason}
	}

	d.events.Add(vault, events.Event{
		Type:     events.TypeExecOpen,
		Status:   events.StatusAck,
		Venue:    venue,
		Attempts: attempts,
		Payload:  result,
	})
	if live {
		d.acks.Record(vault)
		if d.cfg.ApplyLiveToPositions {
			d.settleFill(ctx, vault, order, venue)
		}
	}
	return models.ExecutionOutcome{OK: true, Payload: result, Attempts: attempts, Venue: venue, DryRun: !live}
}

// Close unwinds exposure for a vault. On a permanent venue failure with a
// nonzero position and the fallback policy enabled, it degrades to a
// reduce-only opposite-side open whose outcome becomes the call's outcome.
func (d *Dispatcher) Close(ctx context.Context, vault, symbol string, size *float64, venueName string) models.ExecutionOutcome {
	venue := d.resolveVenue(venueName)
	symbol = strings.ToUpper(symbol)

	if venue == d.cfg.PrimaryVenue && !d.cfg.EnableLive {
		payload := d.payloads.BuildCloseOrder(symbol, size)
		d.events.Add(vault, events.Event{
			Type:    events.TypeExecClose,
			Status:  events.StatusDryRun,
			Venue:   venue,
			Payload: payload,
		})
		if d.cfg.ApplyDryRunToPositions {
			d.settleClose(ctx, vault, symbol, size, venue, "")
		}
		return models.ExecutionOutcome{OK: true, DryRun: true, Payload: payload, Venue: venue}
	}

	driver, err := d.drivers.Resolve(venue)
	if err != nil {
		d.events.Add(vault, events.Event{
			Type:   events.TypeExecClose,
			Status: events.StatusError,
			Venue:  venue,
			Error:  err.Error(),
		})
		return models.ExecutionOutcome{OK: false, Venue: venue, Error: err.Error()}
	}

	result, ok, attempts := RunWithRetry(ctx, func(ctx context.Context) (map[string]interface{}, error) {
		return driver.Close(ctx, symbol, size)
	}, d.cfg.RetryAttempts, d.cfg.RetryBackoff, d.logger)

	if venue != d.cfg.PrimaryVenue {
		// Non-primary venues never touch the ledger and have no
		// reduce-only fallback; the raw retried outcome is returned.
		status := events.StatusAck
		reason := ""
		if !ok {
			status = events.StatusError
			reason = payloadError(result)
		}
		d.events.Add(vault, events.Event{
			Type:     events.TypeExecClose,
			Status:   status,
			Venue:    venue,
			Attempts: attempts,
			Payload:  result,
			Error:    reason,
		})
		return models.ExecutionOutcome{OK: ok, Payload: result, Attempts: attempts, Venue: venue, DryRun: true, Error: reason}
	}

	if ok {
		d.events.Add(vault, events.Event{
			Type:     events.TypeExecClose,
			Status:   events.StatusAck,
			Venue:    venue,
			Attempts: attempts,
			Payload:  result,
		})
		d.acks.Record(vault)
		if d.cfg.ApplyLiveToPositions {
			d.settleClose(ctx, vault, symbol, size, venue, "")
		}
		return models.ExecutionOutcome{OK: true, Payload: result, Attempts: attempts, Venue: venue}
	}

	reason := payloadError(result)
	d.events.Add(vault, events.Event{
		Type:     events.TypeExecClose,
		Status:   events.StatusError,
		Venue:    venue,
		Attempts: attempts,
		Payload:  result,
		Error:    reason,
	})

	if d.cfg.ReduceOnlyFallback {
		if outcome, handled := d.reduceOnlyFallback(ctx, vault, symbol, size, venue, driver); handled {
			return outcome
		}
	}
	return models.ExecutionOutcome{OK: false, Payload: result, Attempts: attempts, Venue: venue, Error: reason}
}

// reduceOnlyFallback synthesizes an opposite-side reduce-only open sized to
// the remaining exposure (or the caller's size) and dispatches it as the
// fallback execution path. Returns handled=false when exposure is already
// flat, leaving the original failure to surface.
func (d *Dispatcher) reduceOnlyFallback(ctx context.Context, vault, symbol string, size *float64, venue string, driver Driver) (models.ExecutionOutcome, bool) {
	profile := d.ledger.GetProfile(vault)
	exposure := profile.VenueExposure(symbol, venue)
	if exposure == 0 {
		return models.ExecutionOutcome{}, false
	}

	fbSize := exposure
	if fbSize < 0 {
		fbSize = -fbSize
	}
	if size != nil && *size > 0 {
		fbSize = *size
	}
	side := models.OrderSideSell
	if exposure < 0 {
		side = models.OrderSideBuy
	}
	fallback := models.Order{
		Symbol:     symbol,
		Size:       fbSize,
		Side:       side,
		Venue:      venue,
		ReduceOnly: true,
	}
	d.logger.WithFields(logrus.Fields{
		"vault":    vault,
		"symbol":   symbol,
		"exposure": exposure,
		"size":     fbSize,
	}).Warn("close failed, attempting reduce-only fallback")

	result, ok, attempts := RunWithRetry(ctx, func(ctx context.Context) (map[string]interface{}, error) {
		return driver.Open(ctx, fallback)
	}, d.cfg.RetryAttempts, d.cfg.RetryBackoff, d.logger)

	if !ok {
		reason := payloadError(result)
		d.events.Add(vault, events.Event{
			Type:     events.TypeExecClose,
			Status:   events.StatusError,
			Venue:    venue,
			Mode:     "reduce_only",
			Attempts: attempts,
			Payload:  result,
			Error:    reason,
		})
		return models.ExecutionOutcome{OK: false, Payload: result, Attempts: attempts, Venue: venue, Mode: "reduce_only", Error: reason}, true
	}

	d.events.Add(vault, events.Event{
		Type:     events.TypeExecClose,
		Status:   events.StatusAck,
		Venue:    venue,
		Mode:     "reduce_only",
		Attempts: attempts,
		Payload:  result,
	})
	d.acks.Record(vault)
	if d.cfg.ApplyLiveToPositions {
		d.settleClose(ctx, vault, symbol, &fbSize, venue, "reduce_only")
	}
	return models.ExecutionOutcome{OK: true, Payload: result, Attempts: attempts, Venue: venue, Mode: "reduce_only"}, true
}

// settleFill applies a confirmed open to the ledger and snapshots NAV.
func (d *Dispatcher) settleFill(ctx context.Context, vault string, order models.Order, venue string) {
	if _, err := d.ledger.ApplyFill(vault, order.Symbol, order.Size, order.Side, venue); err != nil {
		d.logger.WithError(err).WithField("vault", vault).Error("failed to apply fill")
		d.events.Add(vault, events.Event{
			Type:   events.TypeFill,
			Status: events.StatusError,
			Symbol: strings.ToUpper(order.Symbol),
			Venue:  venue,
			Error:  err.Error(),
		})
		return
	}
	unit := d.nav.SnapshotNow(ctx, vault)
	d.events.Add(vault, events.Event{
		Type:    events.TypeFill,
		Status:  events.StatusApplied,
		Source:  "ack",
		Symbol:  strings.ToUpper(order.Symbol),
		Side:    string(order.Side),
		Size:    events.Float(order.Size),
		Venue:   venue,
		UnitNav: events.Float(unit),
	})
}

// settleClose applies a confirmed close to the ledger and snapshots NAV.
func (d *Dispatcher) settleClose(ctx context.Context, vault, symbol string, size *float64, venue, mode string) {
	if _, err := d.ledger.ApplyClose(vault, symbol, size, venue); err != nil {
		d.logger.WithError(err).WithField("vault", vault).Error("failed to apply close")
		d.events.Add(vault, events.Event{
			Type:   events.TypeFill,
			Status: events.StatusError,
			Symbol: symbol,
			Venue:  venue,
			Error:  err.Error(),
		})
		return
	}
	unit := d.nav.SnapshotNow(ctx, vault)
	d.events.Add(vault, events.Event{
		Type:    events.TypeFill,
		Status:  events.StatusApplied,
		Source:  "ack",
		Symbol:  symbol,
		Side:    "close",
		Size:    size,
		Venue:   venue,
		Mode:    mode,
		UnitNav: events.Float(unit),
	})
}

func (d *Dispatcher) resolveVenue(venue string) string {
	venue = strings.ToLower(strings.TrimSpace(venue))
	if venue == "" {
		return d.cfg.PrimaryVenue
	}
	return venue
}

// payloadError extracts a human-readable failure reason from an ack.
func payloadError(payload map[string]interface{}) string {
	if payload == nil {
		return "venue call failed"
	}
	if v, ok := payload["error"]; ok {
		return fmt.Sprintf("%v", v)
	}
	return renderPayload(payload)
}
