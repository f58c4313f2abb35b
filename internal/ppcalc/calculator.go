// Package ppcalc adapts the domain.Calculator port to a concrete,
// per-mode fluent builder, mirroring the shape of the external
// AnyPP/OsuPP/TaikoPP/FruitsPP/ManiaPP dispatch this system treats as an
// out-of-scope collaborator (spec §1). The numeric body here is a
// placeholder approximation: no real osu! difficulty-calculation library
// exists in this module's dependency set, so this adapter exists only to
// make the port concrete and testable.
package ppcalc

import (
	"context"

	"github.com/pp-server/pp-server/internal/domain"
)

// Calculator implements domain.Calculator with a single fluent builder
// tagged with the requested mode (or the ModeAny sentinel). The placeholder
// calculation gives the same result for every mode.
type Calculator struct{}

// New builds a Calculator.
func New() *Calculator { return &Calculator{} }

// Calculate builds the mode-specific calculator and applies every present
// CalcParams field through the builder's fluent setters, mirroring
// calculate_pp's chain of `match data.field { Some(v) => c.setter(v), None => c }`.
func (c *Calculator) Calculate(ctx context.Context, beatmap domain.ParsedBeatmap, params domain.CalcParams) (domain.CalcResult, error) {
	b := newBuilder(params.ModeOrAny(), beatmap)

	if params.Mods != nil {
		b = b.Mods(*params.Mods)
	}
	if params.Combo != nil {
		b = b.Combo(*params.Combo)
	}
	if params.N50 != nil {
		b = b.N50(*params.N50)
	}
	if params.N100 != nil {
		b = b.N100(*params.N100)
	}
	if params.N300 != nil {
		b = b.N300(*params.N300)
	}
	if params.Katu != nil {
		b = b.NKatu(*params.Katu)
	}
	if params.Miss != nil {
		b = b.Misses(*params.Miss)
	}
	if params.Acc != nil {
		b = b.Accuracy(*params.Acc)
	}
	if params.PassedObj != nil {
		b = b.PassedObjects(*params.PassedObj)
	}

	return b.calculate(ctx)
}

var _ domain.Calculator = (*Calculator)(nil)
