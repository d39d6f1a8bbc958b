package scheduler

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLog = zerolog.New(nil).Level(zerolog.Disabled)

type fakeJob struct {
	name string
	runs int
	err  error
}

func (j *fakeJob) Name() string { return j.name }
func (j *fakeJob) Run() error {
	j.runs++
	return j.err
}

func TestAddJob_RejectsBadSchedule(t *testing.T) {
	s := New(testLog)
	err := s.AddJob("not a cron spec", &fakeJob{name: "bad"})
	assert.Error(t, err)
}

func TestAddJob_AcceptsStandardSpecs(t *testing.T) {
	s := New(testLog)
	assert.NoError(t, s.AddJob("@hourly", &fakeJob{name: "hourly"}))
	assert.NoError(t, s.AddJob("0 18 * * MON-FRI", &fakeJob{name: "weekday"}))
	assert.NoError(t, s.AddJob("@every 30m", &fakeJob{name: "interval"}))
}

func TestRunNow(t *testing.T) {
	s := New(testLog)
	job := &fakeJob{name: "once"}
	require.NoError(t, s.RunNow(job))
	assert.Equal(t, 1, job.runs)

	failing := &fakeJob{name: "broken", err: fmt.Errorf("boom")}
	assert.Error(t, s.RunNow(failing))
}

func TestStartStop(t *testing.T) {
	s := New(testLog)
	require.NoError(t, s.AddJob("@hourly", &fakeJob{name: "noop"}))
	s.Start()
	assert.NotPanics(t, s.Stop)
}
