package dex

// Pair is an ordered token pair. Every pool is indexed under both directions.
type Pair struct {
	In  string
	Out string
}

// Index is a point-in-time view of all priced pools. It is rebuilt from
// scratch on every refresh and never mutated afterwards.
type Index struct {
	Pools   map[int]*Pool
	ByToken map[string][]*Pool
	ByPair  map[Pair][]*Pool
}

// BuildIndex indexes pools in the order given.
func BuildIndex(pools []*Pool) *Index {
	idx := &Index{
		Pools:   make(map[int]*Pool, len(pools)),
		ByToken: make(map[string][]*Pool),
		ByPair:  make(map[Pair][]*Pool),
	}
	for _, p := range pools {
		idx.Pools[p.ID] = p

		t0, t1 := p.Tokens[0], p.Tokens[1]
		idx.ByToken[t0] = append(idx.ByToken[t0], p)
		idx.ByPair[Pair{In: t0, Out: t1}] = append(idx.ByPair[Pair{In: t0, Out: t1}], p)
		if t1 == t0 {
			continue
		}
		idx.ByToken[t1] = append(idx.ByToken[t1], p)
		idx.ByPair[Pair{In: t1, Out: t0}] = append(idx.ByPair[Pair{In: t1, Out: t0}], p)
	}
	return idx
}

// Len returns the number of indexed pools.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.Pools)
}

// PoolsForToken returns every pool holding token.
func (idx *Index) PoolsForToken(token string) []*Pool {
	if idx == nil {
		return nil
	}
	return idx.ByToken[token]
}

// PoolsForPair returns every pool trading in for out.
func (idx *Index) PoolsForPair(in, out string) []*Pool {
	if idx == nil {
		return nil
	}
	return idx.ByPair[Pair{In: in, Out: out}]
}
