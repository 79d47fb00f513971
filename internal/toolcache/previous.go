package toolcache

// previousStore keeps the last value of each preserved key as it was at
// invalidation time. Entries are only added or overwritten, never evicted,
// and are read exclusively by delta computation.
type previousStore struct {
	values map[string]string
}

func newPreviousStore() *previousStore {
	return &previousStore{values: make(map[string]string)}
}

func (p *previousStore) put(key, value string) {
	p.values[key] = value
}

func (p *previousStore) get(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}
