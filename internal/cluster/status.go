package cluster

// WorkerStatus is a point-in-time view of one worker.
type WorkerStatus struct {
	ID          int
	Role        Role
	Busy        bool
	LastTick    int64
	Beta        float64
	Temperature float64
}

// ClusterStatus is a point-in-time view of the whole cluster, recomputed
// on every query and never persisted.
type ClusterStatus struct {
	Initialized      bool
	ShutDown         bool
	Workers          int
	BusyWorkers      int
	PendingJobs      int
	DimensionResults int
	SamplingResults  int
	Dimension        []WorkerStatus
	Sampling         []WorkerStatus
}

func workerStatus(w *Worker) WorkerStatus {
	return WorkerStatus{
		ID:          w.ID(),
		Role:        w.Role(),
		Busy:        w.Busy(),
		LastTick:    w.LastTick(),
		Beta:        w.Beta(),
		Temperature: w.Temperature(),
	}
}
