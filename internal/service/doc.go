// Package service is the request boundary of the try-on core. It owns the
// loaded pipeline handle, admits one generation at a time, and wires the
// detector, loader, executor and variant tracker into a single feedback loop.
//
// Files by concern:
//
//   - service.go: Service type, constructor, Start/Close, readiness.
//   - config.go: Config, Deps and package defaults.
//   - errors.go: error types and predicates (IsTooBusy, IsNotReady).
//   - admission.go: queueing and the single in-flight slot.
//   - ops.go: SelectVariant, LoadPipeline, Generate, RecordOutcome.
//   - tryon.go: the end-to-end try-on flow with history and outputs.
//   - history.go: generation history operations.
//   - status.go: Status reporting.
//   - metrics.go: domain Prometheus metrics fed from lifecycle events.
package service
