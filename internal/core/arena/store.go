package arena

// Store is a generic typed map store keyed by arena ID.
// No reflect, no interface{}; pure generics.
type Store[T any] struct {
	data map[ID]*T
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{
		data: make(map[ID]*T, 256),
	}
}

func (s *Store[T]) Set(id ID, v *T) {
	s.data[id] = v
}

func (s *Store[T]) Get(id ID) (*T, bool) {
	v, ok := s.data[id]
	return v, ok
}

func (s *Store[T]) Remove(id ID) {
	delete(s.data, id)
}

func (s *Store[T]) Has(id ID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *Store[T]) Len() int {
	return len(s.data)
}

// Each visits every stored value. Order is unspecified.
func (s *Store[T]) Each(fn func(ID, *T)) {
	for id, v := range s.data {
		fn(id, v)
	}
}
