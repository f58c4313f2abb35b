package ppcalc

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/pp-server/pp-server/internal/domain"
)

// builder is the per-mode fluent score-parameter accumulator, modeled after
// AnyPP/OsuPP/TaikoPP/FruitsPP/ManiaPP's builder shape.
type builder struct {
	mode     uint8
	beatmap  domain.ParsedBeatmap
	mods     uint32
	combo    int
	n50      int
	n100     int
	n300     int
	katu     int
	miss     int
	passed   int
	accuracy float64
}

func newBuilder(mode uint8, beatmap domain.ParsedBeatmap) *builder {
	return &builder{mode: mode, beatmap: beatmap, accuracy: 100}
}

func (b *builder) Mods(v uint32) *builder      { b.mods = v; return b }
func (b *builder) Combo(v int) *builder        { b.combo = v; return b }
func (b *builder) N50(v int) *builder          { b.n50 = v; return b }
func (b *builder) N100(v int) *builder         { b.n100 = v; return b }
func (b *builder) N300(v int) *builder         { b.n300 = v; return b }
func (b *builder) NKatu(v int) *builder        { b.katu = v; return b }
func (b *builder) Misses(v int) *builder       { b.miss = v; return b }
func (b *builder) Accuracy(v float64) *builder { b.accuracy = v; return b }
func (b *builder) PassedObjects(v int) *builder {
	b.passed = v
	return b
}

// calculate produces a deterministic, beatmap- and score-dependent estimate.
// It is not a real difficulty/performance algorithm; it exists to make the
// Calculator port exercisable end to end.
func (b *builder) calculate(ctx context.Context) (domain.CalcResult, error) {
	base := beatmapSeed(b.beatmap)

	stars := 1 + math.Mod(base, 8) // deterministic pseudo-star-rating in [1,9)
	modMultiplier := 1.0 + float64(popcount(b.mods))*0.05

	accFactor := b.accuracy / 100
	missPenalty := 1.0 / (1.0 + float64(b.miss)*0.02)
	comboFactor := 1.0
	if b.combo > 0 {
		comboFactor = 1.0 + math.Log1p(float64(b.combo))/20
	}

	total := stars * stars * accFactor * accFactor * missPenalty * comboFactor * modMultiplier * 4
	aim := total * 0.45
	spd := total * 0.35
	str := total * 0.10
	acc := total * 0.10

	return domain.CalcResult{
		PP:    total,
		Stars: stars,
		Raw: domain.CalcRaw{
			Aim:   aim,
			Spd:   spd,
			Str:   str,
			Acc:   acc,
			Total: total,
		},
	}, nil
}

func popcount(v uint32) int {
	n := 0
	for v != 0 {
		n += int(v & 1)
		v >>= 1
	}
	return n
}

// beatmapSeed derives a small positive float from whatever the opaque
// ParsedBeatmap handle stringifies to, giving deterministic per-beatmap
// variation without depending on its concrete shape.
func beatmapSeed(beatmap domain.ParsedBeatmap) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(toSeedBytes(beatmap)))
	return float64(h.Sum32() % 1000)
}

func toSeedBytes(beatmap domain.ParsedBeatmap) string {
	if s, ok := beatmap.(string); ok {
		return s
	}
	if b, ok := beatmap.([]byte); ok {
		return string(b)
	}
	return "beatmap"
}
