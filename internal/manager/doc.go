// Package manager owns the lifecycle of model backends and routes chat
// requests to them. It is structured into small files by concern:
//
//   - manager.go: Manager, construction helpers, lookup, Shutdown.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - handle.go: Handle, the per-model state (unloaded, loading, ready) and its locks.
//   - ensure.go: EnsureReady, the single-flight load path.
//   - evict.go: Evict, TryEvictIdle and forced release at shutdown.
//   - reaper.go: Reaper, the periodic idle sweep.
//   - admission.go: per-handle queueing and the single in-flight generation slot.
//   - router.go: Complete and Stream, the request entry points.
//   - adapter*.go: how a backend is acquired (spawned server or in-process llama.cpp).
//   - errors.go: error types and helpers (IsTooBusy, IsUnknownModel, ...).
//   - status_report.go, ops.go, unload.go: /status, preload and manual unload.
//
// Build tags:
//
//   - In-process llama: enabled with `-tags=llama` (adapter_llama.go, llama_cgo.go).
//     Without the tag adapter_llama_stub.go fails loads with a 503-mapped error.
//
// The transition lock of a Handle is held only while its state changes, never
// across a generation. Generations are serialized per backend by admission.
package manager
