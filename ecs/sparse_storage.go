package ecs

import (
	"iter"
	"sync"
)

// storagePage holds one fixed-size block of payload cells. Pages never
// relocate once allocated, so references into a sparse storage survive
// growth.
type storagePage[E any] struct {
	cells []E
	gens  []uint32
}

// sparseStorage partitions capacity into fixed-size pages allocated on
// demand. A sparse-to-dense index maps slot index to its position in the
// dense allocated-slot list, giving O(1) allocate and release and
// O(allocated) iteration without scanning gaps.
type sparseStorage[E any] struct {
	pageSize int
	pages    []*storagePage[E]
	dense    []uint32 // allocated slot indices
	sparse   []uint32 // slot index -> position in dense, or sparseNone
	free     []uint32
	next     uint32
	bufs     sync.Pool
}

const sparseNone = ^uint32(0)

func newSparseStorage[E any](pageSize int) *sparseStorage[E] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	s := &sparseStorage[E]{pageSize: pageSize}
	s.bufs.New = func() any { return new([]E) }
	return s
}

func (s *sparseStorage[E]) page(index uint32) *storagePage[E] {
	return s.pages[int(index)/s.pageSize]
}

func (s *sparseStorage[E]) ensurePage(index uint32) *storagePage[E] {
	pageIdx := int(index) / s.pageSize
	for pageIdx >= len(s.pages) {
		s.pages = append(s.pages, nil)
	}
	if s.pages[pageIdx] == nil {
		page := &storagePage[E]{
			cells: make([]E, s.pageSize),
			gens:  make([]uint32, s.pageSize),
		}
		for i := range page.gens {
			page.gens[i] = 1
		}
		s.pages[pageIdx] = page
	}
	return s.pages[pageIdx]
}

func (s *sparseStorage[E]) AllocateSlot() Slot {
	var zero E
	return s.allocate(zero)
}

func (s *sparseStorage[E]) AllocateSlotValue(initial E) Slot {
	return s.allocate(initial)
}

func (s *sparseStorage[E]) allocate(value E) Slot {
	var index uint32
	if n := len(s.free); n > 0 {
		index = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		index = s.next
		s.next++
	}
	page := s.ensurePage(index)
	offset := int(index) % s.pageSize
	page.cells[offset] = value

	for int(index) >= len(s.sparse) {
		s.sparse = append(s.sparse, sparseNone)
	}
	s.sparse[index] = uint32(len(s.dense))
	s.dense = append(s.dense, index)
	return NewSlot(index, page.gens[offset])
}

func (s *sparseStorage[E]) Release(slot Slot) error {
	if !s.IsValid(slot) {
		return ErrInvalidSlot
	}
	index := slot.Index()
	page := s.page(index)
	offset := int(index) % s.pageSize
	var zero E
	page.cells[offset] = zero
	page.gens[offset]++

	// Swap-remove from the dense list and repoint the moved entry.
	pos := s.sparse[index]
	last := uint32(len(s.dense) - 1)
	moved := s.dense[last]
	s.dense[pos] = moved
	s.sparse[moved] = pos
	s.dense = s.dense[:last]
	s.sparse[index] = sparseNone

	s.free = append(s.free, index)
	return nil
}

func (s *sparseStorage[E]) IsValid(slot Slot) bool {
	index := slot.Index()
	if int(index) >= len(s.sparse) || s.sparse[index] == sparseNone {
		return false
	}
	return s.page(index).gens[int(index)%s.pageSize] == slot.Generation()
}

func (s *sparseStorage[E]) GetRef(slot Slot) (*E, error) {
	if !s.IsValid(slot) {
		return nil, ErrInvalidSlot
	}
	return &s.page(slot.Index()).cells[int(slot.Index())%s.pageSize], nil
}

func (s *sparseStorage[E]) UnsafeGetRef(slot Slot) *E {
	return &s.page(slot.Index()).cells[int(slot.Index())%s.pageSize]
}

func (s *sparseStorage[E]) Count() int {
	return len(s.dense)
}

func (s *sparseStorage[E]) Slots() iter.Seq[Slot] {
	return func(yield func(Slot) bool) {
		for _, index := range s.dense {
			gen := s.page(index).gens[int(index)%s.pageSize]
			if !yield(NewSlot(index, gen)) {
				return
			}
		}
	}
}

func (s *sparseStorage[E]) Fetch(slots []Slot) ([]E, error) {
	buf := *s.bufs.Get().(*[]E)
	buf = buf[:0]
	for _, slot := range slots {
		ref, err := s.GetRef(slot)
		if err != nil {
			s.ReleaseBuffer(buf)
			return nil, err
		}
		buf = append(buf, *ref)
	}
	return buf, nil
}

func (s *sparseStorage[E]) Write(slots []Slot, values []E) error {
	if len(slots) != len(values) {
		return ErrBufferLengthMismatch
	}
	for i, slot := range slots {
		ref, err := s.GetRef(slot)
		if err != nil {
			return err
		}
		*ref = values[i]
	}
	return nil
}

func (s *sparseStorage[E]) ReleaseBuffer(buf []E) {
	buf = buf[:0]
	s.bufs.Put(&buf)
}

func (s *sparseStorage[E]) Layout() StorageLayout {
	return StorageLayout{Kind: StorageSparse, PageSize: s.pageSize}
}
