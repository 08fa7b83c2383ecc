package workload

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbtestharness/dbtestharness/pkg/harness/dbclient"
	"github.com/dbtestharness/dbtestharness/pkg/harness/metrics"
	"github.com/dbtestharness/dbtestharness/pkg/harness/spec"
)

// stubWorkload is a minimal Workload used only by this package's tests; it is
// not registered in the process-wide registry.
type stubWorkload struct {
	DefaultWorkload
	name        string
	checkResult bool
	checkErr    error
}

func (s *stubWorkload) Description() string { return s.name }
func (s *stubWorkload) Setup(ctx context.Context, db dbclient.Database) error { return nil }
func (s *stubWorkload) Start(ctx context.Context, db dbclient.Database) error { return nil }
func (s *stubWorkload) Check(ctx context.Context, db dbclient.Database) (bool, error) {
	return s.checkResult, s.checkErr
}
func (s *stubWorkload) GetMetrics() []metrics.PerfMetric {
	return []metrics.PerfMetric{{Name: "Count", Value: 1}}
}

func TestRegisterAndCreate(t *testing.T) {
	Register("test-registerandcreate", func(ctx Context) (Workload, error) {
		ctx.Options.GetString("unused-but-consumed", "")
		return &stubWorkload{name: "stub", checkResult: true}, nil
	})

	block := &spec.OptionBlock{Options: []*spec.Option{
		{Key: "testName", Value: "test-registerandcreate"},
		{Key: "unused-but-consumed", Value: "x"},
	}}
	block.Get("testName")

	w, err := Create("test-registerandcreate", Context{Options: block})
	require.NoError(t, err)
	assert.Equal(t, "stub", w.Description())
}

func TestCreate_UnknownName(t *testing.T) {
	_, err := Create("does-not-exist", Context{Options: &spec.OptionBlock{}})
	assert.Error(t, err)
}

func TestCreate_UnconsumedOptionIsInvalid(t *testing.T) {
	Register("test-unconsumed", func(ctx Context) (Workload, error) {
		return &stubWorkload{name: "stub"}, nil
	})

	block := &spec.OptionBlock{Options: []*spec.Option{
		{Key: "leftover", Value: "1"},
	}}
	_, err := Create("test-unconsumed", Context{Options: block})
	assert.Error(t, err)
}

func TestCompoundWorkload_Description(t *testing.T) {
	c := NewCompoundWorkload([]Workload{
		&stubWorkload{name: "A"},
		&stubWorkload{name: "B"},
	})
	assert.Equal(t, "A;B", c.Description())
}

func TestCompoundWorkload_CheckRequiresAllChildren(t *testing.T) {
	allPass := NewCompoundWorkload([]Workload{
		&stubWorkload{name: "A", checkResult: true},
		&stubWorkload{name: "B", checkResult: true},
	})
	ok, err := allPass.Check(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, ok)

	onePasses := NewCompoundWorkload([]Workload{
		&stubWorkload{name: "A", checkResult: true},
		&stubWorkload{name: "B", checkResult: false},
	})
	ok, err = onePasses.Check(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompoundWorkload_GetMetricsPrefixesByDescription(t *testing.T) {
	c := NewCompoundWorkload([]Workload{
		&stubWorkload{name: "A"},
		&stubWorkload{name: "B"},
	})
	m := c.GetMetrics()
	require.Len(t, m, 2)
	assert.Equal(t, "A.Count", m[0].Name)
	assert.Equal(t, "B.Count", m[1].Name)
}

func TestCompoundWorkload_GetCheckTimeoutIsMax(t *testing.T) {
	c := NewCompoundWorkload([]Workload{
		&stubWorkload{name: "A"},
		&stubWorkload{name: "B"},
	})
	assert.Equal(t, DefaultCheckTimeout, c.GetCheckTimeout())
}

func TestCreateFromSpec_SingleAndCompound(t *testing.T) {
	Register("test-createfromspec", func(ctx Context) (Workload, error) {
		return &stubWorkload{name: "stub", checkResult: true}, nil
	})

	single := &spec.TestSpec{
		Title:   "t",
		Options: []*spec.OptionBlock{{Options: []*spec.Option{{Key: "testName", Value: "test-createfromspec"}}}},
	}
	w, err := CreateFromSpec(single, Context{})
	require.NoError(t, err)
	_, isCompound := w.(*CompoundWorkload)
	assert.False(t, isCompound)

	compound := &spec.TestSpec{
		Title: "t",
		Options: []*spec.OptionBlock{
			{Options: []*spec.Option{{Key: "testName", Value: "test-createfromspec"}}},
			{Options: []*spec.Option{{Key: "testName", Value: "test-createfromspec"}}},
		},
	}
	w, err = CreateFromSpec(compound, Context{})
	require.NoError(t, err)
	_, isCompound = w.(*CompoundWorkload)
	assert.True(t, isCompound)
}
