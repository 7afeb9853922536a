package swarm

import "container/list"

// boundedMap is a string-keyed map that remembers insertion order, so the
// caches built on it (resource ledger, threat board) get O(1) lookup and
// O(k) oldest-first eviction where k is the number of entries the eviction
// predicate skips.
type boundedMap[V any] struct {
	ll    *list.List // of string keys; front = oldest
	items map[string]*boundedEntry[V]
}

type boundedEntry[V any] struct {
	val V
	el  *list.Element
}

func newBoundedMap[V any]() *boundedMap[V] {
	return &boundedMap[V]{ll: list.New(), items: map[string]*boundedEntry[V]{}}
}

func (m *boundedMap[V]) len() int { return len(m.items) }

func (m *boundedMap[V]) get(key string) (V, bool) {
	if e, ok := m.items[key]; ok {
		return e.val, true
	}
	var zero V
	return zero, false
}

// put inserts a new entry or overwrites an existing one in place (the entry
// keeps its age).
func (m *boundedMap[V]) put(key string, val V) {
	if e, ok := m.items[key]; ok {
		e.val = val
		return
	}
	el := m.ll.PushBack(key)
	m.items[key] = &boundedEntry[V]{val: val, el: el}
}

func (m *boundedMap[V]) remove(key string) bool {
	e, ok := m.items[key]
	if !ok {
		return false
	}
	m.ll.Remove(e.el)
	delete(m.items, key)
	return true
}

// evictOldest removes and returns the oldest entry accepted by ok, walking
// from the front. Returns false when nothing qualifies.
func (m *boundedMap[V]) evictOldest(ok func(V) bool) (string, V, bool) {
	for el := m.ll.Front(); el != nil; el = el.Next() {
		key := el.Value.(string)
		e := m.items[key]
		if ok == nil || ok(e.val) {
			m.ll.Remove(el)
			delete(m.items, key)
			return key, e.val, true
		}
	}
	var zero V
	return "", zero, false
}

// each visits entries oldest-first; returning false stops the walk.
func (m *boundedMap[V]) each(fn func(key string, val V) bool) {
	for el := m.ll.Front(); el != nil; el = el.Next() {
		key := el.Value.(string)
		if !fn(key, m.items[key].val) {
			return
		}
	}
}
