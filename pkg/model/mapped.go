// ABOUTME: Lazy mapping contract for store-backed metadata objects
// ABOUTME: EnsureMapped/Purge primitives plus a scoped acquisition handle

package model

import "errors"

var (
	// ErrUnknownVersion indicates a version lookup miss in a version list
	ErrUnknownVersion = errors.New("model: unknown version")

	// ErrUnknownUUID indicates a dataset UUID unknown to the UUID set
	ErrUnknownUUID = errors.New("model: unknown dataset UUID")

	// ErrNotMapped indicates content access on an unmapped object
	ErrNotMapped = errors.New("model: object not mapped")
)

// Reference is a content-address of an object blob in the backing store.
// The empty reference marks an object that only exists in memory.
type Reference string

// ObjectReader reads object blobs from a content-addressed store.
type ObjectReader interface {
	GetObject(ref Reference) ([]byte, error)
}

// ObjectWriter stores an object blob and returns its content-address.
type ObjectWriter interface {
	PutObject(blob []byte) (Reference, error)
}

// ObjectStore combines the read and write side of the backing store.
type ObjectStore interface {
	ObjectReader
	ObjectWriter
}

// Mappable is implemented by every composite metadata object whose content
// is materialized on demand from the backing store.
//
// EnsureMapped is idempotent. It returns true iff this call performed the
// materialization, which makes the caller responsible for the matching
// Purge. Purge must only be issued by the caller that received true, after
// all consumption of the object's content, and never before nested children
// obtained from it have been purged themselves.
type Mappable interface {
	EnsureMapped() (bool, error)
	Purge()
	IsMapped() bool
}

// Handle is a scoped acquisition of a Mappable. It remembers whether its
// Acquire performed the mapping and releases only in that case, so nested
// acquisitions compose without per-call-site boolean bookkeeping.
type Handle struct {
	object Mappable
	owned  bool
}

// Acquire maps the object if necessary and returns a release handle.
// Typical use:
//
//	h, err := model.Acquire(record)
//	if err != nil { ... }
//	defer h.Release()
func Acquire(object Mappable) (*Handle, error) {
	owned, err := object.EnsureMapped()
	if err != nil {
		return nil, err
	}
	return &Handle{object: object, owned: owned}, nil
}

// Release purges the object if this handle's Acquire mapped it. Release is
// idempotent; extra calls do nothing.
func (h *Handle) Release() {
	if h == nil || !h.owned {
		return
	}
	h.owned = false
	h.object.Purge()
}

// mapped is the shared lazy-loading state of store-backed objects.
type mapped struct {
	store  ObjectReader
	ref    Reference
	mapped bool
}

// inMemory reports whether the object has no backing reference. Such
// objects are always mapped and are never purged, since their content
// could not be re-materialized.
func (m *mapped) inMemory() bool {
	return m.ref == ""
}

// IsMapped reports whether the object's content is resident.
func (m *mapped) IsMapped() bool {
	return m.inMemory() || m.mapped
}
