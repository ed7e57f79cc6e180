// Package pipeline owns the virtual try-on pipeline handle and the runtimes
// that back it. It is structured into small files by concern:
//
//   - manager.go: Manager type, Start/Shutdown lifecycle, readiness accessor.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - handle.go: Handle, the Loaded/NotLoaded holder every consumer resolves.
//   - types.go: Request, Result, Params and the enumerated parameter domains.
//   - errors.go: error types and helpers (IsNotLoaded, IsInvalidInput, IsNoImage).
//   - admission.go: concurrency guard around runtime invocations.
//   - tryon.go: TryOn entry point used by the HTTP layer.
//   - imageio.go: image decode to RGB rasters and PNG encode.
//   - loader.go: LoadPipeline, weights validation and backend selection.
//   - adapter_iface.go: the Pipeline interface implemented by runtimes.
//   - adapter_worker.go: HTTP client for a running try-on worker.
//   - adapter_subprocess.go: spawns a worker process bound to the weights dir.
//   - sanity.go: Preflight checks used by `vtond check`.
//   - events.go, eventpub_*.go: lifecycle events and publishers.
//   - metrics.go: Prometheus collectors for pipeline runs.
//
// The generative model itself is never run in this process. A worker runtime
// owns the weights and the accelerator; this package starts it, gates readiness
// on it and forwards requests to it.
//
// External packages should use public methods only (NewWithConfig, Start,
// Shutdown, Pipeline, Ready, TryOn). Internal types are subject to change.
package pipeline
