// Package forecast defines the directional forecast record consumed from the
// external oracle and its strict input contract.
package forecast

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalid wraps every contract violation so callers can gate on errors.Is.
var ErrInvalid = errors.New("invalid forecast")

// Direction is the side the oracle expects the market to move.
type Direction string

const (
	// Long expects price to rise.
	Long Direction = "LONG"
	// Short expects price to fall.
	Short Direction = "SHORT"
)

// Forecast is the decoded oracle output for one tick. The rationale is opaque
// free text; the engine never inspects it.
type Forecast struct {
	Timestamp   time.Time
	Direction   Direction
	Confidence  float64
	TargetPrice float64
	Rationale   string
}

// wire mirrors the oracle contract exactly. Pointer fields distinguish a
// missing key from a zero value; json.Number rejects quoted numbers.
type wire struct {
	Timestamp   *string      `json:"timestamp"`
	Direction   *string      `json:"direction"`
	Confidence  *json.Number `json:"confidence"`
	TargetPrice *json.Number `json:"targetPrice"`
	Reasoning   *string      `json:"reasoning"`
}

// Decode parses raw oracle output, enforcing the contract: all five fields
// present and well typed, direction LONG or SHORT, confidence in [0,100],
// target price positive. Any violation fails the whole tick's input.
func Decode(raw []byte) (*Forecast, error) {
	var w wire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalid, err)
	}
	if w.Timestamp == nil || w.Direction == nil || w.Confidence == nil || w.TargetPrice == nil || w.Reasoning == nil {
		return nil, fmt.Errorf("%w: missing field", ErrInvalid)
	}

	ts, err := time.Parse(time.RFC3339, *w.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp %q not ISO-8601", ErrInvalid, *w.Timestamp)
	}
	dir := Direction(*w.Direction)
	if dir != Long && dir != Short {
		return nil, fmt.Errorf("%w: direction %q", ErrInvalid, *w.Direction)
	}
	conf, err := w.Confidence.Float64()
	if err != nil {
		return nil, fmt.Errorf("%w: confidence: %v", ErrInvalid, err)
	}
	if conf < 0 || conf > 100 {
		return nil, fmt.Errorf("%w: confidence %.2f outside [0,100]", ErrInvalid, conf)
	}
	target, err := w.TargetPrice.Float64()
	if err != nil {
		return nil, fmt.Errorf("%w: target price: %v", ErrInvalid, err)
	}
	if target <= 0 {
		return nil, fmt.Errorf("%w: target price %.2f not positive", ErrInvalid, target)
	}

	return &Forecast{
		Timestamp:   ts,
		Direction:   dir,
		Confidence:  conf,
		TargetPrice: target,
		Rationale:   *w.Reasoning,
	}, nil
}
