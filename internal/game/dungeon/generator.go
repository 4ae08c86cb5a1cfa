package dungeon

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/cory-johannsen/delve/internal/game/dice"
	"github.com/cory-johannsen/delve/internal/game/reward"
)

// Room count bounds for a generated dungeon, specials excluded.
const (
	MinRooms = 10
	MaxRooms = 50
)

// Capacity ranges declared on every dungeon.
const (
	minSecrets, maxSecrets         = 3, 15
	minHiddenAreas, maxHiddenAreas = 2, 8
	minLore, maxLore               = 5, 20
)

// Params fully determines the shape of one generation.
type Params struct {
	ID          string
	Theme       Theme
	PlayerLevel int
	// RoomCount is the number of rooms before specials, entrance included.
	RoomCount int
	Layout    LayoutKind
}

// Validate checks Params invariants.
//
// Postcondition: Returns nil or a *ValidationError for the first violation.
func (p Params) Validate() error {
	if p.ID == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if !p.Theme.Valid() {
		return &ValidationError{Field: "theme", Reason: fmt.Sprintf("unknown theme %q", p.Theme)}
	}
	if p.RoomCount < MinRooms || p.RoomCount > MaxRooms {
		return &ValidationError{Field: "room_count", Reason: fmt.Sprintf("must be in [%d, %d], got %d", MinRooms, MaxRooms, p.RoomCount)}
	}
	if _, err := LayoutFor(p.Layout); err != nil {
		return err
	}
	return nil
}

// Generator produces Dungeons from an injected randomness source.
// Concurrent calls are safe when the Source is.
type Generator struct {
	src    dice.Source
	logger *zap.Logger
	tracer trace.Tracer
}

// Option customises a Generator.
type Option func(*Generator)

// WithTracer records a "dungeon.generate" span per generation on t.
func WithTracer(t trace.Tracer) Option {
	return func(g *Generator) { g.tracer = t }
}

// NewGenerator creates a Generator.
//
// Precondition: src and logger must be non-nil.
func NewGenerator(src dice.Source, logger *zap.Logger, opts ...Option) *Generator {
	if src == nil {
		panic("dungeon: NewGenerator requires a non-nil Source")
	}
	if logger == nil {
		panic("dungeon: NewGenerator requires a non-nil logger")
	}
	g := &Generator{
		src:    src,
		logger: logger,
		tracer: noop.NewTracerProvider().Tracer("delve/dungeon"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate draws a room count in [10, 50] and a layout, then builds the dungeon.
//
// Precondition: id must be non-empty; theme must be valid.
// Postcondition: Returns a connected Dungeon with Level == playerLevel, or a
// *ValidationError.
func (g *Generator) Generate(ctx context.Context, id string, theme Theme, playerLevel int) (*Dungeon, error) {
	return g.GenerateWith(ctx, Params{
		ID:          id,
		Theme:       theme,
		PlayerLevel: playerLevel,
		RoomCount:   dice.Between(g.src, MinRooms, MaxRooms),
		Layout:      dice.Pick(g.src, AllLayouts),
	})
}

// GenerateWith builds a dungeon with an explicit shape.
//
// Postcondition: Returns a Dungeon satisfying every structural invariant, or
// a *ValidationError when p is invalid.
func (g *Generator) GenerateWith(ctx context.Context, p Params) (*Dungeon, error) {
	_, span := g.tracer.Start(ctx, "dungeon.generate")
	defer span.End()
	start := time.Now()

	if err := p.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	layout, _ := LayoutFor(p.Layout)
	puzzles := SelectPuzzles(p.Theme, g.src)
	challenges := SelectChallenges(p.Theme, g.src)

	graph := layout.Place(p.ID, p.RoomCount-1, g.src)
	furnish(graph.Rooms(), puzzles, challenges, g.src)
	specials := InjectSpecialRooms(graph, p.ID, g.src)
	layout.Connect(graph, g.src)
	EnsureConnected(graph)

	d := &Dungeon{
		ID:           p.ID,
		Name:         DisplayName(p.Theme, g.src),
		Theme:        p.Theme,
		Level:        p.PlayerLevel,
		Layout:       p.Layout,
		RoomCount:    p.RoomCount,
		Puzzles:      puzzles,
		Challenges:   challenges,
		Secrets:      dice.Between(g.src, minSecrets, maxSecrets),
		HiddenAreas:  dice.Between(g.src, minHiddenAreas, maxHiddenAreas),
		LoreElements: dice.Between(g.src, minLore, maxLore),
		RewardTiers:  reward.Ladder(),
		graph:        graph,
	}

	span.SetAttributes(
		attribute.String("dungeon.id", d.ID),
		attribute.String("dungeon.theme", string(d.Theme)),
		attribute.String("dungeon.layout", string(d.Layout)),
		attribute.Int("dungeon.room_count", d.RoomCount),
		attribute.Int("dungeon.total_rooms", d.Size()),
		attribute.Int64("dungeon.generation_us", time.Since(start).Microseconds()),
	)
	g.logger.Debug("dungeon generated",
		zap.String("id", d.ID),
		zap.String("theme", string(d.Theme)),
		zap.String("layout", string(d.Layout)),
		zap.Int("rooms", d.Size()),
		zap.Int("treasure_rooms", specials.Treasure),
		zap.Int("secret_rooms", specials.Secret),
		zap.Duration("elapsed", time.Since(start)),
	)
	return d, nil
}
