// Package dice provides the randomness abstraction and roll-result types
// shared by dungeon generation, reward rolls, and expedition resource draws.
package dice

import (
	"go.uber.org/zap/zapcore"
)

// Source is the randomness provider for every random decision in delve.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// RollResult is one evaluated expression: the dice as they fell plus the
// flat modifier.
type RollResult struct {
	Expression string
	Dice       []int
	Modifier   int
}

// Total is sum(Dice) + Modifier. It may be negative for expressions such
// as "1d4-1".
func (r RollResult) Total() int {
	total := r.Modifier
	for _, d := range r.Dice {
		total += d
	}
	return total
}

// MarshalLogObject lets a roll be logged as one structured field.
func (r RollResult) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("expression", r.Expression)
	if err := enc.AddArray("dice", zapcore.ArrayMarshalerFunc(func(arr zapcore.ArrayEncoder) error {
		for _, d := range r.Dice {
			arr.AppendInt(d)
		}
		return nil
	})); err != nil {
		return err
	}
	enc.AddInt("modifier", r.Modifier)
	enc.AddInt("total", r.Total())
	return nil
}
