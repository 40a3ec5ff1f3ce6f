/*
Package executor handles HTTP request execution for the load generator.

# Overview

All sessions share one http.Client built by NewClient:
  - Idle pool sized from the number of live sessions, no per-host cap
  - Dial, TLS handshake and response header timeouts
  - Optional TLS/mTLS configuration (client cert, custom CA, skip verify)

Execute sends a single request:
  - Context-aware, so a cancelled run aborts in-flight requests
  - Url-encoded form bodies for the login exchange
  - Per-request cookies for the session credential
  - DiscardBody drains large payloads (media segments) without buffering

# Errors

Transport failures (dial, TLS, timeout, cancelled context) are returned as
errors. A response with any status code is returned as a RequestResult; the
caller decides whether the status is acceptable (see IsSuccessStatus).
*/
package executor
