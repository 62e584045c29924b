// Package runtime provides the process-wide runtime singleton stub.
//
// Production scripts never receive the runtime as an argument: library calls
// look it up ambiently ("the current runtime") and resolve session-scoped
// services against it. The stub is a drop-in structural match for that lookup,
// so scripts under test need zero modification versus production scripts.
//
// Exactly one service is real in this slice: the media file manager. Every
// other service a script might request resolves to an inert double that
// accepts the lookup but fails loudly on use, so unsupported pathways surface
// as diagnosable faults instead of fabricated results.
//
// Lifecycle discipline: at most one Runtime is installed at any time. Install
// fails on double-install (guards against nested or leaked test setup);
// Uninstall is idempotent so teardown in error paths never itself fails.
package runtime

import (
	"sync"

	"github.com/stagehand-dev/stagehand/internal/media"
)

// ServiceKind names a session-scoped service a script can request.
type ServiceKind string

const (
	// ServiceMediaFileManager is the one real service in this slice.
	ServiceMediaFileManager ServiceKind = "media_file_manager"

	// ServiceUploadedFileManager handles file-upload widgets in production.
	// Resolves to an inert double here.
	ServiceUploadedFileManager ServiceKind = "uploaded_file_manager"

	// ServiceScriptCache caches compiled scripts in production.
	// Resolves to an inert double here.
	ServiceScriptCache ServiceKind = "script_cache"

	// ServiceMessageBus delivers protocol messages to browser sessions in
	// production. Resolves to an inert double here.
	ServiceMessageBus ServiceKind = "message_bus"
)

// Runtime is the substitute for the production process-wide runtime object.
type Runtime struct {
	media *media.Storage
}

// New creates a runtime stub wired to the given media storage.
// The storage is exclusively owned by this runtime for one test.
func New(mediaStorage *media.Storage) *Runtime {
	return &Runtime{media: mediaStorage}
}

// MediaFileManager returns the media storage service.
func (r *Runtime) MediaFileManager() *media.Storage {
	return r.media
}

// Service resolves a service by kind.
//
// The media file manager resolves to the real in-memory storage. Other
// recognized kinds resolve to an InertService: the lookup succeeds (scripts
// referencing unrelated services do not crash) but every operation on the
// double fails with an unsupported-operation error (nothing fabricates
// realistic results). Unknown kinds fail at resolution.
func (r *Runtime) Service(kind ServiceKind) (any, error) {
	switch kind {
	case ServiceMediaFileManager:
		return r.media, nil
	case ServiceUploadedFileManager, ServiceScriptCache, ServiceMessageBus:
		return &InertService{Kind: kind}, nil
	default:
		return nil, NewUnsupportedServiceError(kind)
	}
}

// InertService is the behavior-free double for services the harness does not
// model. It responds to resolution but performs no observable action.
type InertService struct {
	Kind ServiceKind
}

// Invoke fails loudly and uniformly for every operation.
func (s *InertService) Invoke(op string, args ...any) (any, error) {
	return nil, &RuntimeError{
		Code:    ErrCodeUnsupportedOperation,
		Message: "operation " + op + " invoked on inert service double",
		Service: s.Kind,
	}
}

// The singleton slot. This is the seam through which arbitrary script code
// resolves ambient services; see the package comment.
var (
	instMu   sync.Mutex
	instance *Runtime
)

// Install registers rt as the process-wide runtime singleton.
// Fails with an illegal-state error if a singleton is already installed.
func Install(rt *Runtime) error {
	instMu.Lock()
	defer instMu.Unlock()

	if instance != nil {
		return NewIllegalStateError("a runtime is already installed; uninstall it before installing another")
	}
	instance = rt
	return nil
}

// Uninstall clears the singleton slot.
// Idempotent: uninstalling when nothing is installed is a no-op, so teardown
// code in error paths never itself fails.
func Uninstall() {
	instMu.Lock()
	defer instMu.Unlock()
	instance = nil
}

// Current returns the installed runtime singleton.
// Fails with an illegal-state error if no test is active.
func Current() (*Runtime, error) {
	instMu.Lock()
	defer instMu.Unlock()

	if instance == nil {
		return nil, NewIllegalStateError("no runtime installed; script library calls require an active harness")
	}
	return instance, nil
}

// Installed reports whether a runtime singleton is currently installed.
func Installed() bool {
	instMu.Lock()
	defer instMu.Unlock()
	return instance != nil
}
