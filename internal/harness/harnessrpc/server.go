package harnessrpc

import (
	"context"
	"sync"
	"time"

	"github.com/dbtestharness/dbtestharness/internal/harness/liveness"
	"github.com/dbtestharness/dbtestharness/internal/harness/tester"
	"github.com/dbtestharness/dbtestharness/pkg/harness/dbclient"
	"github.com/dbtestharness/dbtestharness/pkg/harness/harnesserr"
	"github.com/dbtestharness/dbtestharness/pkg/harness/workload"
)

// TesterServer is the tester process's Server implementation: it turns an
// Assign call into a workload.Workload plus a tester.Runner wrapping it, and
// every other call into that Runner's matching phase. It serves exactly one
// assigned workload at a time, matching the original harness's one
// workload-interface-per-tester-process model.
type TesterServer struct {
	db dbclient.Database

	mu           sync.Mutex
	runner       *tester.Runner
	proberCancel context.CancelFunc
}

// NewTesterServer constructs a TesterServer. db is the database-under-test
// collaborator; it is only ever touched by a workload whose test spec sets
// useDB.
func NewTesterServer(db dbclient.Database) *TesterServer {
	return &TesterServer{db: db}
}

func (s *TesterServer) currentRunner() *tester.Runner {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runner
}

// Assign builds this test's workload (a CompoundWorkload if req.Options
// names more than one) and a fresh Runner for it, starting a liveness
// prober first if the test uses the database with a non-zero ping delay.
func (s *TesterServer) Assign(ctx context.Context, req *AssignRequest) (*AssignResponse, error) {
	if len(req.Options) == 0 {
		return nil, harnesserr.Invalid("assign: test " + req.Title + " has no workloads")
	}

	w, err := workload.CreateFromOptions(req.Options, workload.Context{
		ClientID:           req.ClientID,
		ClientCount:        req.ClientCount,
		SharedRandomNumber: req.SharedRandomNumber,
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.proberCancel != nil {
		s.proberCancel()
		s.proberCancel = nil
	}
	s.mu.Unlock()

	var db dbclient.Database
	var livenessFailed <-chan error
	if req.UseDB {
		db = s.db
		if req.DatabasePingDelayNanos > 0 {
			prober := liveness.New(s.db, time.Duration(req.DatabasePingDelayNanos))
			probeCtx, cancel := context.WithCancel(context.Background())
			go prober.Run(probeCtx)
			livenessFailed = prober.Failed()
			s.mu.Lock()
			s.proberCancel = cancel
			s.mu.Unlock()
		}
	}

	runner := tester.New(w, db, req.UseDB, livenessFailed)
	s.mu.Lock()
	s.runner = runner
	s.mu.Unlock()

	return &AssignResponse{}, nil
}

func (s *TesterServer) Setup(ctx context.Context, req *SetupRequest) (*SetupResponse, error) {
	r := s.currentRunner()
	if r == nil {
		return nil, harnesserr.Invalid("setup called before assign")
	}
	if err := r.Setup(ctx); err != nil {
		return nil, err
	}
	return &SetupResponse{}, nil
}

func (s *TesterServer) Start(ctx context.Context, req *StartRequest) (*StartResponse, error) {
	r := s.currentRunner()
	if r == nil {
		return nil, harnesserr.Invalid("start called before assign")
	}
	if err := r.Start(ctx); err != nil {
		return nil, err
	}
	return &StartResponse{}, nil
}

func (s *TesterServer) Check(ctx context.Context, req *CheckRequest) (*CheckResponse, error) {
	r := s.currentRunner()
	if r == nil {
		return nil, harnesserr.Invalid("check called before assign")
	}
	ok, err := r.Check(ctx)
	if err != nil {
		return nil, err
	}
	return &CheckResponse{Passed: ok}, nil
}

func (s *TesterServer) Metrics(ctx context.Context, req *MetricsRequest) (*MetricsResponse, error) {
	r := s.currentRunner()
	if r == nil {
		return nil, harnesserr.Invalid("metrics called before assign")
	}
	return &MetricsResponse{Metrics: r.Metrics()}, nil
}

// Stop marks the current runner finished and tears down its liveness
// prober, if any. It never errors: stopping a tester that was never assigned
// is a no-op, matching the original's fire-and-forget stop semantics.
func (s *TesterServer) Stop(ctx context.Context, req *StopRequest) (*StopResponse, error) {
	s.mu.Lock()
	r := s.runner
	if s.proberCancel != nil {
		s.proberCancel()
		s.proberCancel = nil
	}
	s.mu.Unlock()

	if r != nil {
		r.Stop()
	}
	return &StopResponse{}, nil
}
