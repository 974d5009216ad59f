package cluster

import (
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"
)

func newTestOrchestrator(t *testing.T, dim []*fakeDimEngine, smp []*fakeSmpEngine, opts ...Option) *Orchestrator {
	t.Helper()
	o := New(testPool(dim, smp), opts...)
	if err := o.Initialize(100); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return o
}

func TestInitializeIdempotent(t *testing.T) {
	dim := &fakeDimEngine{}
	smp := &fakeSmpEngine{}
	o := newTestOrchestrator(t, []*fakeDimEngine{dim}, []*fakeSmpEngine{smp})
	defer o.Shutdown()

	if err := o.Initialize(100); err != nil {
		t.Fatalf("second initialize: %v", err)
	}
	if dim.inits != 1 || smp.inits != 1 {
		t.Errorf("engine inits %d/%d, want 1/1", dim.inits, smp.inits)
	}
}

func TestInitializeAssignsLadder(t *testing.T) {
	smps := []*fakeSmpEngine{{}, {}, {}, {}}
	o := newTestOrchestrator(t, nil, smps, WithTemperatureRange(0.5, 10.0))
	defer o.Shutdown()

	want := []float64{2.0, 0.7368, 0.2714, 0.1}
	for i, e := range smps {
		if math.Abs(e.getBeta()-want[i]) > 1e-4 {
			t.Errorf("chain %d: beta %f, want %f", i, e.getBeta(), want[i])
		}
	}

	st := o.GetStatus()
	if len(st.Sampling) != 4 {
		t.Fatalf("%d sampling workers, want 4", len(st.Sampling))
	}
	for i := 1; i < len(st.Sampling); i++ {
		if st.Sampling[i].Beta >= st.Sampling[i-1].Beta {
			t.Error("ladder not ordered cold to hot")
		}
	}
}

func TestNotifyReadyBeforeInitialize(t *testing.T) {
	o := New(testPool([]*fakeDimEngine{{}}, nil))
	err := o.NotifyReady(testSnapshot(1))
	if !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("got %v, want ErrNotInitialized", err)
	}
}

func TestNotifyReadyNilSnapshot(t *testing.T) {
	o := newTestOrchestrator(t, []*fakeDimEngine{{}}, nil)
	defer o.Shutdown()

	if err := o.NotifyReady(nil); !errors.Is(err, ErrNilSnapshot) {
		t.Fatalf("got %v, want ErrNilSnapshot", err)
	}
}

func TestDispatchAndCollect(t *testing.T) {
	var dimDone, smpDone atomic.Int32
	o := newTestOrchestrator(t,
		[]*fakeDimEngine{{}},
		[]*fakeSmpEngine{{}, {}},
		OnDimensionResult(func(DimensionResult) { dimDone.Add(1) }),
		OnSamplingResult(func(SamplingResult) { smpDone.Add(1) }),
	)
	defer o.Shutdown()

	if err := o.NotifyReady(testSnapshot(1)); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if !o.WaitForCompletion(5 * time.Second) {
		t.Fatal("jobs did not complete")
	}

	d, s := o.Store().Counts()
	if d != 1 || s != 1 {
		t.Fatalf("stored %d/%d results, want 1 dimension and 1 sampling", d, s)
	}
	if dimDone.Load() != 1 || smpDone.Load() != 1 {
		t.Errorf("callbacks fired %d/%d times, want 1/1", dimDone.Load(), smpDone.Load())
	}

	res, ok := o.GetLatestResult(RoleDimension)
	if !ok || res.Meta().Tick != 1 {
		t.Errorf("latest dimension result missing or wrong tick")
	}
}

func TestDoubleDispatchUsesSecondWorker(t *testing.T) {
	gate := make(chan struct{})
	dims := []*fakeDimEngine{{gate: gate}, {gate: gate}}
	o := newTestOrchestrator(t, dims, nil)
	defer o.Shutdown()

	snap := testSnapshot(10)
	if err := o.NotifyReady(snap); err != nil {
		t.Fatal(err)
	}
	if err := o.NotifyReady(snap); err != nil {
		t.Fatal(err)
	}
	close(gate)

	if !o.WaitForCompletion(5 * time.Second) {
		t.Fatal("jobs did not complete")
	}
	d, _ := o.Store().Counts()
	if d != 2 {
		t.Fatalf("%d results, want 2", d)
	}

	seen := map[int]bool{}
	for _, r := range o.Store().DimensionHistory() {
		if r.Tick != 10 {
			t.Errorf("result tick %d, want 10", r.Tick)
		}
		seen[r.WorkerID] = true
	}
	if !seen[0] || !seen[1] {
		t.Errorf("worker ids %v, want both 0 and 1", seen)
	}
}

func TestNoFreeWorkerSkipsRole(t *testing.T) {
	gate := make(chan struct{})
	o := newTestOrchestrator(t, []*fakeDimEngine{{gate: gate}}, nil)
	defer o.Shutdown()

	if err := o.NotifyReady(testSnapshot(1)); err != nil {
		t.Fatal(err)
	}

	// Worker is mid-flight; further notifications must return
	// immediately and leave the store untouched.
	start := time.Now()
	for tick := int64(2); tick <= 5; tick++ {
		if err := o.NotifyReady(testSnapshot(tick)); err != nil {
			t.Fatalf("tick %d: %v", tick, err)
		}
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("NotifyReady blocked for %v with no free worker", elapsed)
	}
	if st := o.GetStatus(); st.PendingJobs != 1 {
		t.Errorf("%d pending jobs, want 1", st.PendingJobs)
	}

	close(gate)
	if !o.WaitForCompletion(5 * time.Second) {
		t.Fatal("job did not complete")
	}
	d, _ := o.Store().Counts()
	if d != 1 {
		t.Errorf("%d results, want 1 (skipped ticks store nothing)", d)
	}
}

func TestCancelAllProducesNoResults(t *testing.T) {
	gate := make(chan struct{})
	o := newTestOrchestrator(t,
		[]*fakeDimEngine{{gate: gate}},
		[]*fakeSmpEngine{{gate: gate}},
	)
	defer o.Shutdown()

	if err := o.NotifyReady(testSnapshot(1)); err != nil {
		t.Fatal(err)
	}
	o.CancelAll()
	close(gate)

	if !o.WaitForCompletion(5 * time.Second) {
		t.Fatal("jobs did not drain after cancel")
	}
	d, s := o.Store().Counts()
	if d != 0 || s != 0 {
		t.Errorf("cancelled jobs stored %d/%d results, want none", d, s)
	}
}

func TestJobFailureIsIsolated(t *testing.T) {
	var failed atomic.Int32
	o := newTestOrchestrator(t,
		[]*fakeDimEngine{{failUpload: true}},
		[]*fakeSmpEngine{{}},
		OnJobError(func(worker int, err error) {
			if errors.Is(err, errEngineBroken) {
				failed.Add(1)
			}
		}),
	)
	defer o.Shutdown()

	if err := o.NotifyReady(testSnapshot(1)); err != nil {
		t.Fatal(err)
	}
	if !o.WaitForCompletion(5 * time.Second) {
		t.Fatal("jobs did not complete")
	}

	if failed.Load() != 1 {
		t.Errorf("error callback fired %d times, want 1", failed.Load())
	}
	d, s := o.Store().Counts()
	if d != 0 {
		t.Errorf("failed dimension job stored %d results", d)
	}
	if s != 1 {
		t.Errorf("sampling job should be unaffected, stored %d", s)
	}

	// The failed worker must be free again for the next tick.
	if err := o.NotifyReady(testSnapshot(2)); err != nil {
		t.Fatal(err)
	}
	if !o.WaitForCompletion(5 * time.Second) {
		t.Fatal("second round did not complete")
	}
	if failed.Load() != 2 {
		t.Errorf("worker was not redispatched after failure")
	}
}

func TestLatestBatchOrdering(t *testing.T) {
	// Gate the chains so three notifications of the same tick saturate
	// all three workers before any of them finishes.
	gate := make(chan struct{})
	o := newTestOrchestrator(t, nil, []*fakeSmpEngine{{gate: gate}, {gate: gate}, {gate: gate}})
	defer o.Shutdown()

	for i := 0; i < 3; i++ {
		if err := o.NotifyReady(testSnapshot(5)); err != nil {
			t.Fatal(err)
		}
	}
	close(gate)
	if !o.WaitForCompletion(5 * time.Second) {
		t.Fatal("jobs did not complete")
	}

	batch := o.GetLatestBatch()
	if len(batch) != 3 {
		t.Fatalf("batch size %d, want 3", len(batch))
	}
	for i, r := range batch {
		if r.Tick != 5 {
			t.Errorf("batch entry %d has tick %d, want 5", i, r.Tick)
		}
		if r.WorkerID != i {
			t.Errorf("batch entry %d has worker %d, want ascending ids", i, r.WorkerID)
		}
	}

	// A newer tick supersedes the whole batch.
	if err := o.NotifyReady(testSnapshot(6)); err != nil {
		t.Fatal(err)
	}
	if !o.WaitForCompletion(5 * time.Second) {
		t.Fatal("follow-up job did not complete")
	}
	batch = o.GetLatestBatch()
	if len(batch) != 1 {
		t.Fatalf("batch after tick 6 has %d entries, want 1", len(batch))
	}
	if batch[0].Tick != 6 {
		t.Errorf("batch tick %d, want 6", batch[0].Tick)
	}
}

func TestShutdownWaitsForInFlight(t *testing.T) {
	gate := make(chan struct{})
	dim := &fakeDimEngine{gate: gate}
	o := newTestOrchestrator(t, []*fakeDimEngine{dim}, nil)

	if err := o.NotifyReady(testSnapshot(1)); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		o.Shutdown()
		close(done)
	}()

	// Shutdown must not release the device while the job is mid-run.
	time.Sleep(30 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("shutdown returned while a job was in flight")
	default:
	}
	if dim.released() != 0 {
		t.Fatal("device released while a job was still touching it")
	}

	close(gate)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not finish after job drained")
	}

	if dim.released() != 1 {
		t.Errorf("device released %d times, want exactly 1", dim.released())
	}
}

func TestShutdownIdempotentAndTerminal(t *testing.T) {
	dim := &fakeDimEngine{}
	o := newTestOrchestrator(t, []*fakeDimEngine{dim}, nil)

	o.Shutdown()
	o.Shutdown()
	if dim.released() != 1 {
		t.Errorf("device released %d times across two shutdowns, want 1", dim.released())
	}

	// NotifyReady is a silent no-op after shutdown.
	if err := o.NotifyReady(testSnapshot(5)); err != nil {
		t.Errorf("notify after shutdown: %v, want nil", err)
	}
	d, _ := o.Store().Counts()
	if d != 0 {
		t.Error("post-shutdown notification stored a result")
	}

	// No transition out of Shutdown.
	if err := o.Initialize(100); err != nil {
		t.Errorf("initialize after shutdown: %v, want no-op", err)
	}
	if st := o.GetStatus(); !st.ShutDown {
		t.Error("status lost the shutdown flag")
	}
}

func TestGetStatusCounts(t *testing.T) {
	gate := make(chan struct{})
	o := newTestOrchestrator(t,
		[]*fakeDimEngine{{gate: gate}},
		[]*fakeSmpEngine{{}, {}},
	)
	defer o.Shutdown()

	if err := o.NotifyReady(testSnapshot(1)); err != nil {
		t.Fatal(err)
	}
	// Sampling finishes on its own; the dimension job stays gated.
	deadline := time.Now().Add(5 * time.Second)
	for {
		_, s := o.Store().Counts()
		if s == 1 || time.Now().After(deadline) {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}

	st := o.GetStatus()
	if st.Workers != 3 {
		t.Errorf("workers %d, want 3", st.Workers)
	}
	if st.BusyWorkers != 1 {
		t.Errorf("busy %d, want 1 (gated dimension job)", st.BusyWorkers)
	}
	if st.SamplingResults != 1 {
		t.Errorf("sampling results %d, want 1", st.SamplingResults)
	}
	if !st.Initialized || st.ShutDown {
		t.Error("status flags wrong")
	}

	close(gate)
	if !o.WaitForCompletion(5 * time.Second) {
		t.Fatal("jobs did not complete")
	}
	if st := o.GetStatus(); st.BusyWorkers != 0 || st.PendingJobs != 0 {
		t.Errorf("cluster not quiescent: %+v", st)
	}
}

func TestWaitForCompletionTimeout(t *testing.T) {
	gate := make(chan struct{})
	o := newTestOrchestrator(t, []*fakeDimEngine{{gate: gate}}, nil)
	defer o.Shutdown()

	if err := o.NotifyReady(testSnapshot(1)); err != nil {
		t.Fatal(err)
	}
	if o.WaitForCompletion(50 * time.Millisecond) {
		t.Error("wait reported completion while a job was gated")
	}
	close(gate)
	if !o.WaitForCompletion(5 * time.Second) {
		t.Error("wait did not observe drain")
	}
}
