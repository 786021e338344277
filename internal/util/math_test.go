package util

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestCoerce(t *testing.T) {
	// GIVEN
	expectedInputOutput := map[float64]float64{
		-1000.0: 10.0,
		9.99:    10.0,
		10.0:    10.0,
		55.5:    55.5,
		100.0:   100.0,
		100.01:  100.0,
		1000.0:  100.0,
	}

	for input, expected := range expectedInputOutput {
		// WHEN
		result := Coerce(input, 10, 100)

		// THEN
		assert.Equal(t, expected, result)
	}
}
