package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSyncer struct {
	mock.Mock
}

func (m *mockSyncer) SyncAllMailboxes(ctx context.Context) SyncAllResult {
	args := m.Called(ctx)
	return args.Get(0).(SyncAllResult)
}

func TestNewSyncScheduler_Defaults(t *testing.T) {
	s := NewSyncScheduler(&mockSyncer{}, SyncSchedulerConfig{}, nil)
	assert.Equal(t, 5*time.Minute, s.config.Interval)
	assert.Equal(t, 10*time.Minute, s.config.RunTimeout)
	assert.False(t, s.IsRunning())
}

func TestSyncScheduler_RunNow(t *testing.T) {
	syncer := &mockSyncer{}
	syncer.On("SyncAllMailboxes", mock.Anything).
		Return(SyncAllResult{Success: true, TotalProcessed: 3}).Once()

	s := NewSyncScheduler(syncer, SyncSchedulerConfig{}, nil)
	res, ran := s.RunNow(context.Background())
	require.True(t, ran)
	assert.Equal(t, 3, res.TotalProcessed)
	syncer.AssertExpectations(t)
}

func TestSyncScheduler_SkipsOverlappingRun(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	syncer := &mockSyncer{}
	syncer.On("SyncAllMailboxes", mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(SyncAllResult{Success: true}).Once()

	s := NewSyncScheduler(syncer, SyncSchedulerConfig{}, nil)

	done := make(chan bool)
	go func() {
		_, ran := s.RunNow(context.Background())
		done <- ran
	}()
	<-started

	_, ran := s.RunNow(context.Background())
	assert.False(t, ran)
	assert.Equal(t, int64(1), s.Skipped())

	close(release)
	assert.True(t, <-done)
	syncer.AssertNumberOfCalls(t, "SyncAllMailboxes", 1)
}

func TestSyncScheduler_StartStop(t *testing.T) {
	calls := make(chan struct{}, 16)
	syncer := &mockSyncer{}
	syncer.On("SyncAllMailboxes", mock.Anything).
		Run(func(mock.Arguments) {
			select {
			case calls <- struct{}{}:
			default:
			}
		}).
		Return(SyncAllResult{Success: true})

	s := NewSyncScheduler(syncer, SyncSchedulerConfig{Interval: 20 * time.Millisecond}, nil)
	s.Start()
	s.Start()
	assert.True(t, s.IsRunning())

	for i := 0; i < 2; i++ {
		select {
		case <-calls:
		case <-time.After(2 * time.Second):
			t.Fatal("scheduled sync did not run")
		}
	}

	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop()

	// restartable after a stop
	for len(calls) > 0 {
		<-calls
	}
	s.Start()
	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("sync did not run after restart")
	}
	s.Stop()
}

func TestSyncScheduler_StopCancelsRunInFlight(t *testing.T) {
	started := make(chan struct{}, 1)
	syncer := &mockSyncer{}
	syncer.On("SyncAllMailboxes", mock.Anything).
		Run(func(args mock.Arguments) {
			started <- struct{}{}
			<-args.Get(0).(context.Context).Done()
		}).
		Return(SyncAllResult{}).Once()

	s := NewSyncScheduler(syncer, SyncSchedulerConfig{Interval: time.Hour}, nil)
	s.Start()
	<-started

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not cancel the running pass")
	}
}
