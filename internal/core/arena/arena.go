package arena

// Arena pairs a Pool with a Store so callers allocate and free slots and
// their values together.
type Arena[T any] struct {
	pool  *Pool
	store *Store[T]
}

func New[T any]() *Arena[T] {
	return &Arena[T]{
		pool:  NewPool(),
		store: NewStore[T](),
	}
}

// Insert allocates a slot for v and returns its ID.
func (a *Arena[T]) Insert(v *T) ID {
	id := a.pool.Alloc()
	a.store.Set(id, v)
	return id
}

// Get returns the value for id, or false if id is stale or was never issued.
func (a *Arena[T]) Get(id ID) (*T, bool) {
	if !a.pool.Alive(id) {
		return nil, false
	}
	return a.store.Get(id)
}

// MustGet is Get for IDs the caller knows to be live. It panics otherwise.
func (a *Arena[T]) MustGet(id ID) *T {
	v, ok := a.Get(id)
	if !ok {
		panic("arena: stale or unknown id")
	}
	return v
}

func (a *Arena[T]) Alive(id ID) bool { return a.pool.Alive(id) }

// Free releases id. Freeing a stale ID is a no-op.
func (a *Arena[T]) Free(id ID) {
	if !a.pool.Alive(id) {
		return
	}
	a.store.Remove(id)
	a.pool.Free(id)
}

func (a *Arena[T]) Len() int { return a.pool.Live() }
