package lumetric

import (
	"context"
	"fmt"

	"github.com/lumetric/lumetric-go/pkg/flags"
	"github.com/lumetric/lumetric-go/pkg/transport"
)

// FlagOptions identifies the flag and subject of a feature flag check.
type FlagOptions struct {
	// Key is the feature flag key. Required.
	Key string

	// DistinctID is the subject identity used for rollout hashing. Required.
	DistinctID string

	// PersonProperties are matched against person-scoped property matchers.
	PersonProperties map[string]any

	// Groups maps group type to the subject's group key.
	Groups map[string]string

	// GroupProperties are carried for remote evaluation; group-scoped
	// matchers are not resolved locally in this version.
	GroupProperties map[string]map[string]any

	// OnlyEvaluateLocally forbids the remote evaluation fallback.
	OnlyEvaluateLocally bool

	// DisableFlagEvents suppresses the $feature_flag_called reporting event
	// for this check.
	DisableFlagEvents bool
}

func (o FlagOptions) subject() flags.Subject {
	return flags.Subject{
		DistinctID:       o.DistinctID,
		PersonProperties: o.PersonProperties,
		Groups:           o.Groups,
		GroupProperties:  o.GroupProperties,
	}
}

// GetFeatureFlag evaluates one flag for a subject and returns its value: a
// bool, or the variant key of a multivariate flag. Evaluation is local when
// the poller holds a definition for the key; otherwise the check falls back
// to remote evaluation unless OnlyEvaluateLocally is set.
func (c *Client) GetFeatureFlag(ctx context.Context, opts FlagOptions) (any, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	if opts.DistinctID == "" {
		return nil, ErrMissingDistinctID
	}

	if c.poller.CanEvaluateLocally(opts.Key) {
		def, _ := c.store.Flag(opts.Key)
		value, err := flags.Evaluate(def, opts.subject())
		if err == nil {
			c.reportFlagCalled(ctx, opts, value)
			return value, nil
		}
		if opts.OnlyEvaluateLocally {
			return nil, err
		}
		// An error in one definition falls back to the server rather than
		// failing the check.
		c.logger.Warn("local flag evaluation failed, falling back to remote",
			"flag", opts.Key, "error", err)
	} else if opts.OnlyEvaluateLocally {
		if !c.poller.Enabled() {
			return nil, ErrLocalEvaluationUnavailable
		}
		return nil, flags.ErrFlagNotFound
	}

	result, err := c.transport.EvaluateRemote(ctx, c.remoteRequest(opts))
	if err != nil {
		return nil, fmt.Errorf("remote flag evaluation failed: %w", err)
	}
	rf, ok := result.Flags[opts.Key]
	if !ok {
		return nil, flags.ErrFlagNotFound
	}

	value := remoteFlagValue(rf)
	c.reportFlagCalled(ctx, opts, value)
	return value, nil
}

// MustGetFeatureFlag is like GetFeatureFlag but panics on error, wrapping
// the same structured error.
func (c *Client) MustGetFeatureFlag(ctx context.Context, opts FlagOptions) any {
	value, err := c.GetFeatureFlag(ctx, opts)
	if err != nil {
		panic(fmt.Errorf("lumetric: feature flag check failed: %w", err))
	}
	return value
}

// IsFeatureEnabled reports whether a flag is on for a subject. A
// multivariate flag resolving to any variant counts as enabled.
func (c *Client) IsFeatureEnabled(ctx context.Context, opts FlagOptions) (bool, error) {
	value, err := c.GetFeatureFlag(ctx, opts)
	if err != nil {
		return false, err
	}
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		return v != "", nil
	default:
		return false, nil
	}
}

// GetAllFlags evaluates every known flag for a subject. Flags the local
// engine cannot decide are filled in by one remote evaluation call; a
// definition error in one flag never aborts the rest.
func (c *Client) GetAllFlags(ctx context.Context, opts FlagOptions) (map[string]any, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	if opts.DistinctID == "" {
		return nil, ErrMissingDistinctID
	}

	local := make(map[string]any)
	snapshot := c.store.Snapshot()

	// An empty local flag list is undecidable, not a verdict that no flags
	// exist: the first poll may still be pending or failing. Fill from the
	// server in that case too.
	fallback := !c.poller.Enabled() || len(snapshot.Flags) == 0

	if c.poller.Enabled() {
		subject := opts.subject()
		for _, def := range snapshot.Flags {
			value, err := flags.Evaluate(def, subject)
			if err != nil {
				c.logger.Warn("skipping flag with failing definition",
					"flag", def.Key, "error", err)
				fallback = true
				continue
			}
			local[def.Key] = value
		}
	}

	if !fallback || opts.OnlyEvaluateLocally {
		return local, nil
	}

	result, err := c.transport.EvaluateRemote(ctx, c.remoteRequest(opts))
	if err != nil {
		if len(local) > 0 {
			// Partial local results beat a hard failure.
			c.logger.Warn("remote flag evaluation failed, returning local results only", "error", err)
			return local, nil
		}
		return nil, fmt.Errorf("remote flag evaluation failed: %w", err)
	}

	all := make(map[string]any, len(result.Flags)+len(local))
	for key, rf := range result.Flags {
		all[key] = remoteFlagValue(rf)
	}
	// Locally decided values win over the remote snapshot.
	for key, value := range local {
		all[key] = value
	}
	return all, nil
}

func (c *Client) remoteRequest(opts FlagOptions) transport.RemoteEvalRequest {
	return transport.RemoteEvalRequest{
		DistinctID:       opts.DistinctID,
		PersonProperties: opts.PersonProperties,
		Groups:           opts.Groups,
		GroupProperties:  opts.GroupProperties,
	}
}

// reportFlagCalled captures a $feature_flag_called event, at most once per
// TTL window for each (distinct id, flag, value) triple.
func (c *Client) reportFlagCalled(ctx context.Context, opts FlagOptions, value any) {
	if opts.DisableFlagEvents {
		return
	}

	key := fmt.Sprintf("%s:%s:%v", opts.DistinctID, opts.Key, value)
	if err := c.flagCalls.Add(key, struct{}{}, 0); err != nil {
		// Already reported within the TTL window.
		return
	}

	if err := c.Capture(ctx, Event{
		DistinctID: opts.DistinctID,
		Name:       "$feature_flag_called",
		Properties: map[string]any{
			"$feature_flag":          opts.Key,
			"$feature_flag_response": value,
		},
	}); err != nil {
		c.logger.Warn("failed to capture feature flag call", "flag", opts.Key, "error", err)
	}
}

func remoteFlagValue(rf transport.RemoteFlag) any {
	if rf.Variant != "" {
		return rf.Variant
	}
	return rf.Enabled
}
