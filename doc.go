// Package lumetric is the official Go SDK for the Lumetric product analytics
// platform: it captures user and application events, evaluates feature flags,
// and forwards error reports.
//
// Events are batched by a pool of concurrent sender workers and delivered in
// the background; feature flags are evaluated locally from a periodically
// refreshed definition cache when a personal API key is configured, falling
// back to remote evaluation otherwise.
//
// Basic usage:
//
//	client, err := lumetric.New(lumetric.Config{
//		APIKey:         os.Getenv("LUMETRIC_API_KEY"),
//		PersonalAPIKey: os.Getenv("LUMETRIC_PERSONAL_API_KEY"),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close(context.Background())
//
//	_ = client.Capture(ctx, lumetric.Event{
//		DistinctID: "user-42",
//		Name:       "signed_up",
//		Properties: map[string]any{"plan": "pro"},
//	})
//
//	enabled, err := client.IsFeatureEnabled(ctx, lumetric.FlagOptions{
//		Key:        "new-onboarding",
//		DistinctID: "user-42",
//	})
//
// Capture is fire-and-forget: it hands the event to a sender worker and
// returns. Call Close (or FlushBlocking) before process exit so buffered
// events are delivered; events buffered at the moment of a crash are lost,
// delivery is at-most-once.
//
// The heavy lifting lives in the subpackages: pkg/flags implements the
// deterministic local evaluation engine and the definition poller, pkg/sender
// the batching worker pool, and pkg/transport the HTTP surface. This package
// wires them together behind a single client.
package lumetric
