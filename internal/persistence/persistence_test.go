package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testPersistence(t *testing.T) Persistence {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "gpufanctl.db")
	p := NewPersistence(dbPath)
	assert.NoError(t, p.Init())
	return p
}

func TestSaveAndLoadMeasurements(t *testing.T) {
	// GIVEN
	p := testPersistence(t)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	measurements := []Measurement{
		{Time: base, Temperature: 55, FanSpeed: 30, Output: 35},
		{Time: base.Add(2 * time.Second), Temperature: 57, FanSpeed: 35, Output: 40},
		{Time: base.Add(4 * time.Second), Temperature: 59, FanSpeed: 40, Output: 45},
	}

	// WHEN
	for _, m := range measurements {
		assert.NoError(t, p.SaveMeasurement(0, m))
	}
	loaded, err := p.LoadMeasurements(0, 0)

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, measurements, loaded)
}

func TestLoadMeasurementsLimitReturnsMostRecent(t *testing.T) {
	// GIVEN
	p := testPersistence(t)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		m := Measurement{
			Time:        base.Add(time.Duration(i) * time.Second),
			Temperature: 50 + i,
			FanSpeed:    30,
			Output:      30,
		}
		assert.NoError(t, p.SaveMeasurement(1, m))
	}

	// WHEN
	loaded, err := p.LoadMeasurements(1, 2)

	// THEN
	assert.NoError(t, err)
	assert.Len(t, loaded, 2)
	assert.Equal(t, 53, loaded[0].Temperature)
	assert.Equal(t, 54, loaded[1].Temperature)
}

func TestLoadMeasurementsSubSecondOrdering(t *testing.T) {
	// GIVEN
	// fractional seconds whose RFC3339Nano rendering would sort
	// ".12Z" before ".1Z" and break the cursor walk
	p := testPersistence(t)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	measurements := []Measurement{
		{Time: base.Add(100 * time.Millisecond), Temperature: 50, FanSpeed: 30, Output: 30},
		{Time: base.Add(120 * time.Millisecond), Temperature: 51, FanSpeed: 30, Output: 30},
		{Time: base.Add(200 * time.Millisecond), Temperature: 52, FanSpeed: 30, Output: 30},
	}

	for _, m := range measurements {
		assert.NoError(t, p.SaveMeasurement(0, m))
	}

	// WHEN
	all, err := p.LoadMeasurements(0, 0)

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, measurements, all)

	// WHEN
	recent, err := p.LoadMeasurements(0, 2)

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, measurements[1:], recent)
}

func TestLoadMeasurementsUnknownGpu(t *testing.T) {
	// GIVEN
	p := testPersistence(t)

	// WHEN
	loaded, err := p.LoadMeasurements(42, 10)

	// THEN
	assert.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestDeleteMeasurements(t *testing.T) {
	// GIVEN
	p := testPersistence(t)
	m := Measurement{Time: time.Now().UTC(), Temperature: 60, FanSpeed: 50, Output: 55}
	assert.NoError(t, p.SaveMeasurement(0, m))

	// WHEN
	err := p.DeleteMeasurements(0)

	// THEN
	assert.NoError(t, err)
	loaded, err := p.LoadMeasurements(0, 0)
	assert.NoError(t, err)
	assert.Empty(t, loaded)
}
