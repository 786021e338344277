package control

import (
	"context"
	"testing"
	"time"

	"github.com/gpufanctl/gpufanctl/internal/configuration"
	"github.com/gpufanctl/gpufanctl/internal/nvidia"
	"github.com/stretchr/testify/assert"
)

func testLoopConfig() configuration.Configuration {
	return configuration.Configuration{
		TargetTemperature: 60,
		Interval:          5 * time.Millisecond,
		MinFanSpeed:       10,
		MaxFanSpeed:       100,
		StartFanSpeed:     configuration.StartSpeed{Auto: true},
		Kp:                0.5,
		Ki:                0.45,
		Kd:                0.6,
		Gamma:             0.95,
		Alpha:             1.0,
		ErrorClamp:        configuration.Unbounded(),
		IntegralClamp:     configuration.Unbounded(),
		CommandTimeout:    time.Second,
	}
}

type fanSpeedWrite struct {
	index int
	speed int
}

// mockGateway is a scripted Gateway for loop tests.
type mockGateway struct {
	// successive ReadAll results, the last one repeats
	readAllResults [][]nvidia.Measurement
	// ReadAll fails once this many calls have succeeded (0 = never)
	failReadAllAfter int

	readAllCalls  int
	fanSpeeds     map[int]int
	readFanCalls  []int
	writes        []fanSpeedWrite
	overrideCalls []bool
}

func (g *mockGateway) ReadAll() ([]nvidia.Measurement, error) {
	if g.failReadAllAfter > 0 && g.readAllCalls >= g.failReadAllAfter {
		return nil, nvidia.ErrGatewayCommand
	}
	idx := g.readAllCalls
	if idx >= len(g.readAllResults) {
		idx = len(g.readAllResults) - 1
	}
	g.readAllCalls++
	return g.readAllResults[idx], nil
}

func (g *mockGateway) ReadFanSpeed(index int) (int, error) {
	g.readFanCalls = append(g.readFanCalls, index)
	return g.fanSpeeds[index], nil
}

func (g *mockGateway) WriteFanSpeed(index int, speed int) error {
	g.writes = append(g.writes, fanSpeedWrite{index: index, speed: speed})
	g.fanSpeeds[index] = speed
	return nil
}

func (g *mockGateway) SetOverrideMode(enabled bool) error {
	g.overrideCalls = append(g.overrideCalls, enabled)
	return nil
}

func runLoopFor(t *testing.T, loop *Loop, duration time.Duration) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()
	return loop.Run(ctx)
}

func TestLoopNoGpusDetected(t *testing.T) {
	// GIVEN
	gateway := &mockGateway{
		readAllResults: [][]nvidia.Measurement{{}},
		fanSpeeds:      map[int]int{},
	}
	loop := NewLoop(gateway, testLoopConfig(), nil)

	// WHEN
	err := runLoopFor(t, loop, 50*time.Millisecond)

	// THEN
	assert.ErrorIs(t, err, ErrNoGPUsDetected)
	// manual fan control was never acquired
	assert.Empty(t, gateway.overrideCalls)
}

func TestLoopReleasesOverrideModeOnCancel(t *testing.T) {
	// GIVEN
	gateway := &mockGateway{
		readAllResults: [][]nvidia.Measurement{
			{{Index: 0, Temperature: 70, FanSpeed: 50}},
		},
		fanSpeeds: map[int]int{0: 50},
	}
	loop := NewLoop(gateway, testLoopConfig(), nil)

	// WHEN
	err := runLoopFor(t, loop, 50*time.Millisecond)

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, []bool{true, false}, gateway.overrideCalls)
}

func TestLoopReleasesOverrideModeOnGatewayError(t *testing.T) {
	// GIVEN
	gateway := &mockGateway{
		readAllResults: [][]nvidia.Measurement{
			{{Index: 0, Temperature: 70, FanSpeed: 50}},
		},
		failReadAllAfter: 2,
		fanSpeeds:        map[int]int{0: 50},
	}
	loop := NewLoop(gateway, testLoopConfig(), nil)

	// WHEN
	err := runLoopFor(t, loop, time.Second)

	// THEN
	assert.ErrorIs(t, err, nvidia.ErrGatewayCommand)
	assert.Equal(t, []bool{true, false}, gateway.overrideCalls)
}

func TestLoopWritesOnlyOnChange(t *testing.T) {
	// GIVEN
	// observation equals the target, the controller settles on the lower
	// bound, which is exactly what the gateway already reports
	gateway := &mockGateway{
		readAllResults: [][]nvidia.Measurement{
			{{Index: 0, Temperature: 60, FanSpeed: 10}},
		},
		fanSpeeds: map[int]int{0: 10},
	}
	loop := NewLoop(gateway, testLoopConfig(), nil)

	// WHEN
	err := runLoopFor(t, loop, 50*time.Millisecond)

	// THEN
	assert.NoError(t, err)
	assert.NotEmpty(t, gateway.readFanCalls)
	assert.Empty(t, gateway.writes)
}

func TestLoopWritesWhenTargetDiffers(t *testing.T) {
	// GIVEN
	gateway := &mockGateway{
		readAllResults: [][]nvidia.Measurement{
			{{Index: 0, Temperature: 80, FanSpeed: 40}},
		},
		fanSpeeds: map[int]int{0: 40},
	}
	loop := NewLoop(gateway, testLoopConfig(), nil)

	// WHEN
	err := runLoopFor(t, loop, 100*time.Millisecond)

	// THEN
	assert.NoError(t, err)
	assert.NotEmpty(t, gateway.writes)
	for _, write := range gateway.writes {
		assert.Equal(t, 0, write.index)
		assert.GreaterOrEqual(t, write.speed, 10)
		assert.LessOrEqual(t, write.speed, 100)
	}
}

func TestLoopIgnoresLateGpus(t *testing.T) {
	// GIVEN
	// GPU 1 is absent from the initial read and appears later
	gateway := &mockGateway{
		readAllResults: [][]nvidia.Measurement{
			{{Index: 0, Temperature: 70, FanSpeed: 50}},
			{
				{Index: 0, Temperature: 70, FanSpeed: 50},
				{Index: 1, Temperature: 90, FanSpeed: 20},
			},
		},
		fanSpeeds: map[int]int{0: 50, 1: 20},
	}
	loop := NewLoop(gateway, testLoopConfig(), nil)

	// WHEN
	err := runLoopFor(t, loop, 100*time.Millisecond)

	// THEN
	assert.NoError(t, err)
	for _, index := range gateway.readFanCalls {
		assert.Equal(t, 0, index)
	}
	for _, write := range gateway.writes {
		assert.Equal(t, 0, write.index)
	}
}

func TestLoopPublishesSnapshots(t *testing.T) {
	// GIVEN
	gateway := &mockGateway{
		readAllResults: [][]nvidia.Measurement{
			{{Index: 0, Temperature: 80, FanSpeed: 40}},
		},
		fanSpeeds: map[int]int{0: 40},
	}
	loop := NewLoop(gateway, testLoopConfig(), nil)

	// WHEN
	err := runLoopFor(t, loop, 100*time.Millisecond)

	// THEN
	assert.NoError(t, err)
	snapshot, ok := SnapshotMap.Get(SnapshotKey(0))
	assert.True(t, ok)
	assert.Equal(t, 0, snapshot.Index)
	assert.Equal(t, 80, snapshot.Temperature)
	assert.Equal(t, 60.0, snapshot.Controller.Target)
	assert.GreaterOrEqual(t, snapshot.Controller.Output, 10.0)
	assert.LessOrEqual(t, snapshot.Controller.Output, 100.0)
}
