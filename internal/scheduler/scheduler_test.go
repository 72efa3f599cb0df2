package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyrou/warden/internal/config"
	"github.com/kyrou/warden/internal/orchestrator"
)

func testConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		MinInterval: 5 * time.Minute,
		MaxInterval: 60 * time.Minute,
	}
}

func resultWith(risk string, vetoes int) *orchestrator.ConsensusResult {
	return &orchestrator.ConsensusResult{RiskLevel: risk, VetoCount: vetoes}
}

func TestTriggerNowRunsCycle(t *testing.T) {
	ran := false
	s := New(testConfig(), func(context.Context) (*orchestrator.ConsensusResult, error) {
		ran = true
		return resultWith("medium", 0), nil
	}, zerolog.Nop())

	result, err := s.TriggerNow(context.Background())

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, ran)
}

func TestCadenceRelaxesWhenCalm(t *testing.T) {
	s := New(testConfig(), func(context.Context) (*orchestrator.ConsensusResult, error) {
		return resultWith("low", 0), nil
	}, zerolog.Nop())

	assert.Equal(t, 5*time.Minute, s.Interval())

	for i := 0; i < 5; i++ {
		_, err := s.TriggerNow(context.Background())
		require.NoError(t, err)
	}

	// Doubles each calm cycle, clamped to the maximum
	assert.Equal(t, 60*time.Minute, s.Interval())
}

func TestCadenceTightensUnderRisk(t *testing.T) {
	risk := "low"
	s := New(testConfig(), func(context.Context) (*orchestrator.ConsensusResult, error) {
		return resultWith(risk, 0), nil
	}, zerolog.Nop())

	for i := 0; i < 3; i++ {
		_, err := s.TriggerNow(context.Background())
		require.NoError(t, err)
	}
	require.Equal(t, 40*time.Minute, s.Interval())

	risk = "high"
	_, err := s.TriggerNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20*time.Minute, s.Interval())

	_, err = s.TriggerNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, s.Interval())
}

func TestVetoSnapsToMinimum(t *testing.T) {
	first := true
	s := New(testConfig(), func(context.Context) (*orchestrator.ConsensusResult, error) {
		if first {
			first = false
			return resultWith("low", 0), nil
		}
		return resultWith("critical", 2), nil
	}, zerolog.Nop())

	_, err := s.TriggerNow(context.Background())
	require.NoError(t, err)
	require.Equal(t, 10*time.Minute, s.Interval())

	_, err = s.TriggerNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, s.Interval())
}

func TestMediumRiskHoldsCadence(t *testing.T) {
	s := New(testConfig(), func(context.Context) (*orchestrator.ConsensusResult, error) {
		return resultWith("medium", 0), nil
	}, zerolog.Nop())

	_, err := s.TriggerNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, s.Interval())
}

func TestOverlappingCyclesAreRejected(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	s := New(testConfig(), func(context.Context) (*orchestrator.ConsensusResult, error) {
		close(started)
		<-release
		return resultWith("low", 0), nil
	}, zerolog.Nop())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := s.TriggerNow(context.Background())
		assert.NoError(t, err)
	}()

	<-started
	_, err := s.TriggerNow(context.Background())
	assert.Error(t, err)

	close(release)
	wg.Wait()
}

func TestFailedCycleKeepsCadence(t *testing.T) {
	s := New(testConfig(), func(context.Context) (*orchestrator.ConsensusResult, error) {
		return nil, context.DeadlineExceeded
	}, zerolog.Nop())

	_, err := s.TriggerNow(context.Background())

	assert.Error(t, err)
	assert.Equal(t, 5*time.Minute, s.Interval())
}
