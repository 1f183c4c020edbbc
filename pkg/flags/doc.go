// Package flags implements local feature flag evaluation for the Lumetric SDK.
//
// The package holds the three moving parts of local evaluation: a deterministic
// rollout hash shared with every official SDK, a pure rule evaluator that
// decides a flag outcome from a cached definition without any network call,
// and a store/poller pair that keeps the cached definitions fresh.
//
// # Evaluation
//
// A flag definition carries an ordered list of condition groups. Groups are
// scanned in order and the first group whose property matchers and rollout
// gate both pass decides the outcome:
//
//	value, err := flags.Evaluate(def, flags.Subject{
//		DistinctID:       "user-42",
//		PersonProperties: map[string]any{"plan": "pro"},
//	})
//
// The returned value is either a bool or, for multivariate flags, the key of
// the selected variant. Property matchers fail closed: unknown operators,
// type mismatches, and absent values all evaluate to non-match rather than
// granting access by accident.
//
// # Definition freshness
//
// A Store owns the current definition snapshot; readers always see the last
// successfully committed snapshot, never a partially applied one. A Poller
// refreshes the store on an interval using an injected fetcher:
//
//	store := flags.NewStore()
//	poller := flags.NewPoller(store, fetcher,
//		flags.WithPollInterval(30*time.Second),
//	)
//	poller.Start()
//	defer poller.Close()
//
// A failed fetch leaves the previous snapshot untouched, so flag checks keep
// working on stale-but-consistent data until the next successful poll.
//
// # Known limitation
//
// Group-scoped property matchers are not resolved in this version; they
// always see an absent value. This mirrors the behavior of the other SDKs in
// the ecosystem and is intentional.
package flags
