package resources

import (
	"errors"
	"fmt"
)

/** @brief Kinds of renderer-owned resources an asset can hold. */
type Kind uint8

const (
	/** @brief Vertex/index buffers of a single primitive. */
	KindGeometry Kind = iota
	/** @brief A material definition (shader instance state). */
	KindMaterial
	/** @brief A texture image uploaded for sampling. */
	KindTexture
	/** @brief Bone matrices of a skinned mesh. */
	KindSkeleton
)

func (k Kind) String() string {
	switch k {
	case KindGeometry:
		return "geometry"
	case KindMaterial:
		return "material"
	case KindTexture:
		return "texture"
	case KindSkeleton:
		return "skeleton"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

/** @brief Handle ids start at 1; the zero Handle is invalid. */
const InvalidID uint32 = 0

/**
 * @brief A reference to a resource held by the renderer backend.
 * Handles are plain values; ownership is tracked by the allocator.
 */
type Handle struct {
	/** @brief The backend identifier. Unique for the lifetime of the allocator. */
	ID uint32
	/** @brief What the handle points at. */
	Kind Kind
	/** @brief Debug name, usually taken from the source file. */
	Name string
	/** @brief Approximate size of the backing data in bytes. */
	Size uint64
}

func (h Handle) Valid() bool {
	return h.ID != InvalidID
}

func (h Handle) String() string {
	return fmt.Sprintf("%s#%d(%s)", h.Kind, h.ID, h.Name)
}

var (
	ErrUnknownHandle   = errors.New("unknown resource handle")
	ErrAlreadyReleased = errors.New("resource already released")
	ErrInvalidHandle   = errors.New("invalid resource handle")
)

// Allocator hands out and takes back renderer resources. Implementations
// must be safe for concurrent use: loaders acquire from worker goroutines.
type Allocator interface {
	Acquire(kind Kind, name string, size uint64) (Handle, error)
	Release(h Handle) error
}

// Ledger records the handles acquired during one operation so they can be
// given back together if the operation is abandoned.
type Ledger struct {
	alloc    Allocator
	acquired []Handle
}

func NewLedger(alloc Allocator) *Ledger {
	return &Ledger{alloc: alloc}
}

func (l *Ledger) Acquire(kind Kind, name string, size uint64) (Handle, error) {
	h, err := l.alloc.Acquire(kind, name, size)
	if err != nil {
		return Handle{}, err
	}
	l.acquired = append(l.acquired, h)
	return h, nil
}

// Handles returns everything acquired so far, in acquisition order.
func (l *Ledger) Handles() []Handle {
	return append([]Handle(nil), l.acquired...)
}

// Rollback releases every acquired handle in reverse order and returns the
// joined release errors, if any.
func (l *Ledger) Rollback() error {
	var errs []error
	for i := len(l.acquired) - 1; i >= 0; i-- {
		if err := l.alloc.Release(l.acquired[i]); err != nil {
			errs = append(errs, err)
		}
	}
	l.acquired = nil
	return errors.Join(errs...)
}
