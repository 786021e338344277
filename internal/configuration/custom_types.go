package configuration

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Clamp is a closed value range. The zero bounds of an omitted clamp are
// filled with -Inf/+Inf by the decode hook, which makes it a no-op.
type Clamp struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Unbounded returns a clamp that never restricts a value.
func Unbounded() Clamp {
	return Clamp{Min: math.Inf(-1), Max: math.Inf(1)}
}

// Apply coerces value into the clamp range.
func (c Clamp) Apply(value float64) float64 {
	if value > c.Max {
		return c.Max
	}
	if value < c.Min {
		return c.Min
	}
	return value
}

// StartSpeed is the initial fan speed of a controller. It is either "auto"
// (seed from the speed measured at startup) or a fixed numeric value.
type StartSpeed struct {
	Auto  bool    `json:"auto"`
	Value float64 `json:"value"`
}

// clampHookFunc returns a mapstructure decode hook for Clamp values.
// Accepted forms:
//
//	errorClamp: { min: -10, max: 10 }
//	errorClamp: { max: 10 }           # min stays unbounded
//	errorClamp: { min: "-inf", max: "inf" }
func clampHookFunc() mapstructure.DecodeHookFuncType {
	clampType := reflect.TypeOf(Clamp{})

	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if t != clampType {
			return data, nil
		}

		clamp := Unbounded()
		m, ok := asStringMap(data)
		if !ok {
			return nil, fmt.Errorf("unsupported clamp type %T", data)
		}
		for k, v := range m {
			bound, err := anyToFloat(v)
			if err != nil {
				return nil, fmt.Errorf("invalid clamp bound %v: %w", v, err)
			}
			switch strings.ToLower(k) {
			case "min":
				clamp.Min = bound
			case "max":
				clamp.Max = bound
			default:
				return nil, fmt.Errorf("unknown clamp key %q, use min | max", k)
			}
		}
		return clamp, nil
	}
}

// startSpeedHookFunc returns a mapstructure decode hook for StartSpeed values,
// which are either the string "auto" or a number.
func startSpeedHookFunc() mapstructure.DecodeHookFuncType {
	startSpeedType := reflect.TypeOf(StartSpeed{})

	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if t != startSpeedType {
			return data, nil
		}

		if s, ok := data.(string); ok && strings.EqualFold(s, "auto") {
			return StartSpeed{Auto: true}, nil
		}
		value, err := anyToFloat(data)
		if err != nil {
			return nil, fmt.Errorf("startFanSpeed must be \"auto\" or a number: %w", err)
		}
		return StartSpeed{Value: value}, nil
	}
}

func asStringMap(data interface{}) (map[string]interface{}, bool) {
	switch v := data.(type) {
	case map[string]interface{}:
		return v, true
	case map[interface{}]interface{}:
		result := make(map[string]interface{}, len(v))
		for k, val := range v {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			result[ks] = val
		}
		return result, true
	}
	return nil, false
}

// anyToFloat converts numeric and string values to float64.
// The strings "inf", "+inf" and "-inf" are accepted.
func anyToFloat(v interface{}) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case string:
		switch strings.ToLower(val) {
		case "inf", "+inf":
			return math.Inf(1), nil
		case "-inf":
			return math.Inf(-1), nil
		}
		n, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as float: %w", val, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float", v)
	}
}
