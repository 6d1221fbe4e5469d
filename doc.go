// Package omf provides a client library for sending OSIsoft Message
// Format (OMF) messages to a cloud ingestion endpoint.
//
// It covers the three OMF message kinds (type definitions, container
// declarations, and time-series values) posted over HTTP with the OMF
// header set (messagetype, messageformat, compression, action,
// omfversion), optional gzip body compression, and bearer-token
// authentication via a pluggable token provider.
//
// # Basic Usage
//
//	tokens, err := auth.NewClientCredentials(
//	    "https://ingress.example.com", clientID, clientSecret)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client, err := omf.New(
//	    omf.WithBaseURL("https://ingress.example.com"),
//	    omf.WithTenant("tenant-1"),
//	    omf.WithNamespace("production"),
//	    omf.WithTokenProvider(tokens),
//	    omf.WithCompression(true),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Register types and containers once at startup.
//	pump := omf.NewDynamicType("pump_readings",
//	    omf.NumberProperty("Pressure"),
//	    omf.NumberProperty("Temperature"),
//	)
//	schema, _ := pump.Raw()
//	if err := client.CreateTypes(ctx, []json.RawMessage{schema}); err != nil {
//	    log.Fatal(err)
//	}
//	err = client.CreateContainers(ctx, []omf.Container{
//	    {ID: "pump-1", TypeID: "pump_readings"},
//	})
//
//	// Stream values continuously.
//	err = client.SendValues(ctx, []omf.StreamValues{{
//	    StreamID: "pump-1",
//	    Values: []map[string]any{
//	        omf.Sample(time.Now(), map[string]any{"Pressure": 42.1}),
//	    },
//	}})
//
// # Operations
//
//   - CreateTypes / UpdateTypes / DeleteTypes: manage type definitions
//   - CreateContainers / UpdateContainers / DeleteContainers: manage containers
//   - SendValues: stream time-series values (safe for concurrent callers)
//   - SendAssets / LinkAssets: static asset records and asset-to-stream links
//
// # Authentication
//
// The auth package provides two token providers:
//   - auth.ClientCredentials: OAuth2 client-credentials grant with a
//     cached, lazily refreshed bearer token
//   - auth.Static: a fixed token for legacy relay endpoints that accept
//     a producer token (pair with WithProducerToken)
//
// # Batching
//
// High-frequency producers can coalesce values client-side with the
// batch package, which flushes buffered stream values on a size or
// interval trigger through a single SendValues call:
//
//	b := batch.New(client, batch.Config{FlushInterval: 2 * time.Second})
//	defer b.Close(ctx)
//	b.Add(omf.StreamValues{StreamID: "pump-1", Values: values})
//
// # Errors
//
// The library makes exactly one attempt per send and surfaces all
// failures to the caller: non-2xx ingestion responses as
// *IngestionError, identity failures as *auth.Error, network failures
// wrapping ErrTransport, and context cancellation wrapping ErrCancelled.
// Callers wanting resilience wrap calls in their own retry policy;
// IsRetryableError classifies errors for that purpose.
package omf
