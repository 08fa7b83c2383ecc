package controller

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbtestharness/dbtestharness/internal/harness/harnesscontext"
	"github.com/dbtestharness/dbtestharness/pkg/harness/metrics"
	"github.com/dbtestharness/dbtestharness/pkg/harness/spec"
)

type fakeTester struct {
	id         string
	checkOK    bool
	checkErr   error
	assignErr  error
	setupErr   error
	startErr   error
	stopCalled bool
	metrics    []metrics.PerfMetric
}

func (f *fakeTester) ID() string { return f.id }
func (f *fakeTester) Assign(ctx context.Context, req WorkloadRequest) error { return f.assignErr }
func (f *fakeTester) Setup(ctx context.Context) error                      { return f.setupErr }
func (f *fakeTester) Start(ctx context.Context) error                      { return f.startErr }
func (f *fakeTester) Check(ctx context.Context) (bool, error)              { return f.checkOK, f.checkErr }
func (f *fakeTester) Metrics(ctx context.Context) ([]metrics.PerfMetric, error) {
	return f.metrics, nil
}
func (f *fakeTester) Stop(ctx context.Context) { f.stopCalled = true }

type fakeLocator struct {
	endpoints []string
}

func (l *fakeLocator) TesterEndpoints(ctx context.Context) ([]string, error) {
	return l.endpoints, nil
}

type fakeDialer struct {
	testers map[string]TesterHandle
}

func (d *fakeDialer) Dial(ctx context.Context, endpoint string) (TesterHandle, error) {
	return d.testers[endpoint], nil
}

func testSpecWith(opts ...func(*spec.TestSpec)) *spec.TestSpec {
	s := &spec.TestSpec{
		Title:   "T",
		Timeout: time.Second,
		Phases:  spec.PhaseExecution | spec.PhaseCheck | spec.PhaseMetrics,
		Options: []*spec.OptionBlock{{}},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func TestController_RunSpec_AllPass(t *testing.T) {
	t1 := &fakeTester{id: "t1", checkOK: true, metrics: []metrics.PerfMetric{{Name: "m", Value: 1}}}
	t2 := &fakeTester{id: "t2", checkOK: true, metrics: []metrics.PerfMetric{{Name: "m", Value: 3}}}

	c := &Controller{}
	result, err := c.RunSpec(harnesscontext.Background(), testSpecWith(), []TesterHandle{t1, t2})
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Equal(t, 2, result.Successes)
	assert.Equal(t, 0, result.Failures)
	require.Len(t, result.Metrics, 2)
	assert.Equal(t, "m", result.Metrics[0].Name)
	assert.Equal(t, 4.0, result.Metrics[0].Value)
	assert.Equal(t, "Reporting Clients", result.Metrics[1].Name)
	assert.Equal(t, 2.0, result.Metrics[1].Value)
	assert.True(t, t1.stopCalled)
	assert.True(t, t2.stopCalled)
}

func TestController_RunSpec_OneCheckFails(t *testing.T) {
	t1 := &fakeTester{id: "t1", checkOK: true}
	t2 := &fakeTester{id: "t2", checkOK: false}

	c := &Controller{}
	result, err := c.RunSpec(harnesscontext.Background(), testSpecWith(), []TesterHandle{t1, t2})
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Equal(t, 1, result.Successes)
	assert.Equal(t, 1, result.Failures)
}

func TestController_RunSpec_CheckRPCErrorAbortsBeforeMetrics(t *testing.T) {
	t1 := &fakeTester{id: "t1", checkOK: true}
	t2 := &fakeTester{id: "t2", checkErr: assertErr, metrics: []metrics.PerfMetric{{Name: "m", Value: 1}}}

	c := &Controller{}
	result, err := c.RunSpec(harnesscontext.Background(), testSpecWith(), []TesterHandle{t1, t2})
	require.Error(t, err)
	require.Nil(t, result)
	assert.False(t, t1.stopCalled)
	assert.False(t, t2.stopCalled)
}

func TestController_RunSpec_StartFailureAbortsBeforeCheck(t *testing.T) {
	t1 := &fakeTester{id: "t1", startErr: assertErr}

	c := &Controller{}
	_, err := c.RunSpec(harnesscontext.Background(), testSpecWith(), []TesterHandle{t1})
	require.Error(t, err)
}

func TestController_RunSpec_CheckOnlySkipsExecution(t *testing.T) {
	t1 := &fakeTester{id: "t1", checkOK: true}
	s := testSpecWith(func(s *spec.TestSpec) { s.Phases = spec.PhaseCheck })

	c := &Controller{}
	result, err := c.RunSpec(harnesscontext.Background(), s, []TesterHandle{t1})
	require.NoError(t, err)
	assert.True(t, result.Passed)
}

func TestController_Recruit_WaitsForMinTesters(t *testing.T) {
	t1 := &fakeTester{id: "t1"}
	locator := &fakeLocator{endpoints: []string{"ep1"}}
	dialer := &fakeDialer{testers: map[string]TesterHandle{"ep1": t1}}

	c := &Controller{Locator: locator, Dialer: dialer, MinTestersExpected: 1}
	handles, err := c.Recruit(harnesscontext.Background())
	require.NoError(t, err)
	require.Len(t, handles, 1)
	assert.Equal(t, "t1", handles[0].ID())
}

func TestController_Recruit_TimesOutWhenNeverEnough(t *testing.T) {
	locator := &fakeLocator{endpoints: nil}
	dialer := &fakeDialer{testers: map[string]TesterHandle{}}

	c := &Controller{Locator: locator, Dialer: dialer, MinTestersExpected: 1}
	ctx, cancel := harnesscontext.WithTimeout(harnesscontext.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.Recruit(ctx)
	require.Error(t, err)
}

var assertErr = harnesserrForTest{}

type harnesserrForTest struct{}

func (harnesserrForTest) Error() string { return "boom" }
