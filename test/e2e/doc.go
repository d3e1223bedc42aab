// Package e2e holds the black-box suite for a deployed gateway.
//
// The tests drive the public surface only: the OpenAI-compatible completion
// endpoint, the model listing, and the SSE stream. They are build-tagged so
// regular test runs skip them:
//
//	E2E_BASE_URL=http://localhost:8080 go test -tags=e2e ./test/e2e/
//
// The instance under test may sit in front of degraded workers or a slow
// LLM provider, so assertions pin down the wire contract and accept any
// well-formed assistant answer.
package e2e
