package memstore

// table is one entity namespace: rows by id plus creation order. Ids come
// from a per-table counter and are never reused.
type table[T any] struct {
	last  uint
	rows  map[uint]T
	order []uint
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[uint]T)}
}

func (t *table[T]) nextID() uint {
	t.last++
	return t.last
}

func (t *table[T]) put(id uint, row T) {
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = row
}

func (t *table[T]) get(id uint) (T, bool) {
	row, ok := t.rows[id]
	return row, ok
}

// each visits rows in creation order until fn returns false
func (t *table[T]) each(fn func(row T) bool) {
	for _, id := range t.order {
		if !fn(t.rows[id]) {
			return
		}
	}
}

func (t *table[T]) filter(keep func(row T) bool) []T {
	out := []T{}
	t.each(func(row T) bool {
		if keep == nil || keep(row) {
			out = append(out, row)
		}
		return true
	})
	return out
}
