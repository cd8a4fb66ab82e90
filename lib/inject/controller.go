// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inject

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/liaison/lib/agent"
	"github.com/bureau-foundation/liaison/lib/attach"
	"github.com/bureau-foundation/liaison/lib/clock"
)

// detachTimeout bounds the detach that follows every successful
// attach, even when the caller's context is already done.
const detachTimeout = 10 * time.Second

// Options configures a Controller.
type Options struct {
	Logger *slog.Logger

	// Observer receives every state transition. Optional.
	Observer Observer

	// CampaignID labels transitions and logs. Generated when empty.
	CampaignID string

	// Clock timestamps transitions. Defaults to clock.Real().
	Clock clock.Clock
}

// Controller injects one payload into targets from one directory.
type Controller struct {
	payload   *agent.Payload
	encoded   string
	directory attach.Directory
	campaign  string
	observer  Observer
	clock     clock.Clock
	logger    *slog.Logger
}

// New encodes payload for transport and returns a controller for it.
// An encoding failure is returned as the payload's *agent.PackagingError.
func New(payload *agent.Payload, directory attach.Directory, options Options) (*Controller, error) {
	if payload == nil || directory == nil {
		return nil, errors.New("inject: a payload and a directory are required")
	}
	if payload.HostUnit() == "" {
		return nil, errors.New("inject: payload has no host unit; build it with agent.Build")
	}
	encoded, err := payload.TransportEncode()
	if err != nil {
		return nil, err
	}

	campaign := options.CampaignID
	if campaign == "" {
		campaign, err = NewCampaignID()
		if err != nil {
			return nil, err
		}
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Controller{
		payload:   payload,
		encoded:   encoded,
		directory: directory,
		campaign:  campaign,
		observer:  options.Observer,
		clock:     options.Clock,
		logger:    logger.With("campaign", campaign),
	}, nil
}

// NewCampaignID returns a random campaign identifier.
func NewCampaignID() (string, error) {
	var buffer [8]byte
	if _, err := rand.Read(buffer[:]); err != nil {
		return "", fmt.Errorf("generating campaign id: %w", err)
	}
	return hex.EncodeToString(buffer[:]), nil
}

// Campaign returns the campaign identifier.
func (c *Controller) Campaign() string { return c.campaign }

// Encoded returns the transport encoding sent to every target.
func (c *Controller) Encoded() string { return c.encoded }

// InjectInto attaches to the process with the given id, loads the
// agent, and detaches. Attach failures are *ArgumentError; load and
// detach failures are *StateError. The failure hook is not called.
func (c *Controller) InjectInto(ctx context.Context, targetID string) error {
	result := c.attempt(ctx, attach.Descriptor{ID: targetID}, func(ctx context.Context) (attach.Handle, error) {
		return c.directory.AttachID(ctx, targetID)
	})
	switch {
	case result.attachErr != nil:
		return &ArgumentError{Target: targetID, Err: result.attachErr}
	case result.loadErr != nil:
		return &StateError{Target: result.descriptor.String(), State: LoadFailed, Err: result.loadErr}
	case result.detachErr != nil:
		return &StateError{Target: result.descriptor.String(), State: Detached, Err: result.detachErr}
	}
	return nil
}

// InjectIntoAll attempts every listed process in order and reports
// the outcome of each. It never fails as a whole.
func (c *Controller) InjectIntoAll(ctx context.Context) *Report {
	report := &Report{Campaign: c.campaign}

	descriptors, err := c.directory.List(ctx)
	if err != nil {
		c.logger.Warn("listing targets failed", "error", err)
		report.DiscoveryErr = err
		return report
	}
	c.logger.Info("sweeping targets", "targets", len(descriptors))

	for _, descriptor := range descriptors {
		if err := ctx.Err(); err != nil {
			report.Outcomes = append(report.Outcomes, Outcome{
				Descriptor: descriptor,
				State:      Discovered,
				Err:        err,
				Skipped:    true,
			})
			continue
		}

		result := c.attempt(ctx, descriptor, func(ctx context.Context) (attach.Handle, error) {
			return c.directory.Attach(ctx, descriptor)
		})
		outcome := Outcome{Descriptor: result.descriptor, State: result.state, Err: result.err()}

		if cause := hookCause(result); cause != nil {
			outcome.HookErr = c.callFailureHook(ctx, result.descriptor, cause)
		} else if outcome.Err != nil && result.state != Detached {
			outcome.Skipped = true
			c.logger.Debug("skipping target after I/O failure", "pid", descriptor.PID, "error", outcome.Err)
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	c.logger.Info("sweep finished",
		"succeeded", report.Succeeded(),
		"failed", report.Failed(),
		"skipped", report.Skipped(),
	)
	return report
}

// hookCause returns the failure the strategy hook should see, or nil
// when the failure is plain I/O (or there was none).
func hookCause(result attemptResult) error {
	if result.attachErr != nil && errors.Is(result.attachErr, attach.ErrNotSupported) {
		return result.attachErr
	}
	var loadErr *attach.AgentLoadError
	var initErr *attach.AgentInitializationError
	if errors.As(result.loadErr, &loadErr) || errors.As(result.loadErr, &initErr) {
		return result.loadErr
	}
	return nil
}

func (c *Controller) callFailureHook(ctx context.Context, descriptor attach.Descriptor, cause error) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("failure hook panicked: %v", recovered)
		}
		if err != nil {
			c.logger.Warn("attach failure hook failed", "pid", descriptor.PID, "error", err)
		}
	}()

	strategy := c.payload.Strategy()
	if strategy == nil {
		return errors.New("payload has no live strategy")
	}
	c.logger.Info("reporting attach failure", "target", descriptor.String(), "cause", cause)
	return strategy.OnAttachFailure(ctx, c.payload.Callback(), descriptor, cause)
}

type attemptResult struct {
	descriptor attach.Descriptor
	state      State
	attachErr  error
	loadErr    error
	detachErr  error
}

func (r attemptResult) err() error {
	switch {
	case r.attachErr != nil:
		return r.attachErr
	case r.loadErr != nil:
		return r.loadErr
	}
	return r.detachErr
}

// attempt runs attach, load, detach for one target. Detach runs on
// every path after a successful attach.
func (c *Controller) attempt(ctx context.Context, descriptor attach.Descriptor, open func(context.Context) (attach.Handle, error)) (result attemptResult) {
	result.descriptor = descriptor
	result.state = Discovered

	c.transition(ctx, &result, Attaching, nil)
	handle, err := open(ctx)
	if err != nil {
		result.attachErr = err
		c.transition(ctx, &result, AttachFailed, err)
		return result
	}
	result.descriptor = handle.Descriptor()
	c.transition(ctx, &result, Attached, nil)

	defer func() {
		detachContext, cancel := context.WithTimeout(context.WithoutCancel(ctx), detachTimeout)
		defer cancel()
		if err := handle.Detach(detachContext); err != nil {
			result.detachErr = err
			c.logger.Warn("detach failed", "target", result.descriptor.String(), "error", err)
		}
		if result.loadErr != nil {
			c.transition(ctx, &result, LoadFailed, result.loadErr)
		} else {
			c.transition(ctx, &result, Detached, result.detachErr)
		}
	}()

	c.transition(ctx, &result, Loading, nil)
	result.loadErr = handle.LoadAgent(ctx, c.payload.HostUnit(), c.encoded)
	if result.loadErr != nil {
		c.logger.Warn("agent load failed", "target", result.descriptor.String(), "error", result.loadErr)
	} else {
		c.logger.Info("agent loaded", "target", result.descriptor.String())
	}
	return result
}

func (c *Controller) transition(ctx context.Context, result *attemptResult, to State, err error) {
	from := result.state
	result.state = to
	if c.observer == nil {
		return
	}
	c.observer.Observe(ctx, Transition{
		Campaign:   c.campaign,
		Descriptor: result.descriptor,
		From:       from,
		To:         to,
		Err:        err,
		At:         c.clock.Now(),
	})
}
