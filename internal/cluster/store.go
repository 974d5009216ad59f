package cluster

import "sync"

// ResultStore holds every completed result, append-only. Appends arrive
// from many job goroutines while status and query calls read
// concurrently, so all access goes through one RWMutex; queries copy out
// so callers never alias the internal slices.
type ResultStore struct {
	mu        sync.RWMutex
	dimension []DimensionResult
	sampling  []SamplingResult
}

func NewResultStore() *ResultStore {
	return &ResultStore{}
}

func (s *ResultStore) AddDimension(r DimensionResult) {
	s.mu.Lock()
	s.dimension = append(s.dimension, r)
	s.mu.Unlock()
}

func (s *ResultStore) AddSampling(r SamplingResult) {
	s.mu.Lock()
	s.sampling = append(s.sampling, r)
	s.mu.Unlock()
}

// Counts returns how many results of each role have been stored.
func (s *ResultStore) Counts() (dimension, sampling int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.dimension), len(s.sampling)
}

// LatestDimension returns the dimension result with the highest tick.
// Results from different workers may land out of tick order, so this
// scans rather than trusting append order.
func (s *ResultStore) LatestDimension() (DimensionResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	best := -1
	for i, r := range s.dimension {
		if best < 0 || r.Tick > s.dimension[best].Tick {
			best = i
		}
	}
	if best < 0 {
		return DimensionResult{}, false
	}
	return s.dimension[best], true
}

// LatestSampling returns the sampling result with the highest tick.
func (s *ResultStore) LatestSampling() (SamplingResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	best := -1
	for i, r := range s.sampling {
		if best < 0 || r.Tick > s.sampling[best].Tick {
			best = i
		}
	}
	if best < 0 {
		return SamplingResult{}, false
	}
	return s.sampling[best], true
}

// LatestBatch returns every sampling result sharing the single highest
// tick, ordered by worker id: the cross-chain snapshot replica-exchange
// diagnostics need.
func (s *ResultStore) LatestBatch() []SamplingResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.sampling) == 0 {
		return nil
	}
	maxTick := s.sampling[0].Tick
	for _, r := range s.sampling {
		if r.Tick > maxTick {
			maxTick = r.Tick
		}
	}

	var batch []SamplingResult
	for _, r := range s.sampling {
		if r.Tick == maxTick {
			batch = append(batch, r)
		}
	}
	for i := 1; i < len(batch); i++ {
		for j := i; j > 0 && batch[j].WorkerID < batch[j-1].WorkerID; j-- {
			batch[j], batch[j-1] = batch[j-1], batch[j]
		}
	}
	return batch
}

// DimensionByWorker returns all dimension results for one worker, in
// completion order.
func (s *ResultStore) DimensionByWorker(id int) []DimensionResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []DimensionResult
	for _, r := range s.dimension {
		if r.WorkerID == id {
			out = append(out, r)
		}
	}
	return out
}

// SamplingByWorker returns all sampling results for one worker, in
// completion order.
func (s *ResultStore) SamplingByWorker(id int) []SamplingResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []SamplingResult
	for _, r := range s.sampling {
		if r.WorkerID == id {
			out = append(out, r)
		}
	}
	return out
}

// DimensionHistory copies out every dimension result in completion order.
func (s *ResultStore) DimensionHistory() []DimensionResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]DimensionResult(nil), s.dimension...)
}
