package harnessrpc

import (
	"github.com/dbtestharness/dbtestharness/pkg/harness/metrics"
	"github.com/dbtestharness/dbtestharness/pkg/harness/spec"
)

// AssignRequest carries everything controller.WorkloadRequest holds, wire
// encoded. Durations cross the wire as nanoseconds so the tester sees the
// exact value the controller computed.
type AssignRequest struct {
	Title                  string
	Options                []*spec.OptionBlock
	UseDB                  bool
	TimeoutNanos           int64
	DatabasePingDelayNanos int64
	ClientID               int
	ClientCount            int
	SharedRandomNumber     uint64
}

type AssignResponse struct{}

type SetupRequest struct{}

type SetupResponse struct{}

type StartRequest struct{}

type StartResponse struct{}

type CheckRequest struct{}

type CheckResponse struct {
	Passed bool
}

type MetricsRequest struct{}

type MetricsResponse struct {
	Metrics []metrics.PerfMetric
}

type StopRequest struct{}

type StopResponse struct{}
