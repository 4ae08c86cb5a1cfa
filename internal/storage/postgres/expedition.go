package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/delve/internal/game/session"
)

// ErrExpeditionExists is returned when an expedition id is recorded twice.
var ErrExpeditionExists = errors.New("expedition already recorded")

// ExpeditionRecord is one completed expedition as stored.
type ExpeditionRecord struct {
	ID                 string
	DungeonID          string
	DungeonName        string
	Theme              string
	DungeonLevel       int
	PlayerLevel        int
	Counters           session.Counters
	ExploredPercentage float64
	RewardCount        int
	RewardValue        int64
	StartedAt          time.Time
	EndedAt            time.Time
	RecordedAt         time.Time
}

// ExpeditionRepository persists completed expedition summaries.
type ExpeditionRepository struct {
	db *pgxpool.Pool
}

// NewExpeditionRepository creates an ExpeditionRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewExpeditionRepository(db *pgxpool.Pool) *ExpeditionRepository {
	return &ExpeditionRepository{db: db}
}

// Record inserts s.
//
// Precondition: s.ExpeditionID must be a UUID.
// Postcondition: Returns ErrExpeditionExists when s was already recorded.
func (r *ExpeditionRepository) Record(ctx context.Context, s session.Summary) error {
	id, err := uuid.Parse(s.ExpeditionID)
	if err != nil {
		return fmt.Errorf("parsing expedition id %q: %w", s.ExpeditionID, err)
	}
	var value int64
	for _, rw := range s.Rewards {
		value += int64(rw.Value)
	}
	c := s.Counters
	_, err = r.db.Exec(ctx,
		`INSERT INTO expeditions (
			id, dungeon_id, dungeon_name, theme, dungeon_level, player_level,
			rooms_explored, puzzles_solved, secrets_found, hidden_areas_discovered,
			lore_pieces_found, strategic_decisions_made, bosses_defeated,
			depth_reached, time_spent, explored_percentage,
			reward_count, reward_value, started_at, ended_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		id, s.DungeonID, s.DungeonName, string(s.Theme), s.DungeonLevel, s.PlayerLevel,
		c.RoomsExplored, c.PuzzlesSolved, c.SecretsFound, c.HiddenAreasDiscovered,
		c.LorePiecesFound, c.StrategicDecisionsMade, c.BossesDefeated,
		c.DepthReached, c.TimeSpent, s.ExploredPercentage,
		len(s.Rewards), value, s.StartedAt, s.EndedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrExpeditionExists
		}
		return fmt.Errorf("inserting expedition: %w", err)
	}
	return nil
}

// ListByDungeon returns up to limit expeditions for dungeonID, newest first.
//
// Precondition: limit > 0.
func (r *ExpeditionRepository) ListByDungeon(ctx context.Context, dungeonID string, limit int) ([]ExpeditionRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id::text, dungeon_id, dungeon_name, theme, dungeon_level, player_level,
			rooms_explored, puzzles_solved, secrets_found, hidden_areas_discovered,
			lore_pieces_found, strategic_decisions_made, bosses_defeated,
			depth_reached, time_spent, explored_percentage,
			reward_count, reward_value, started_at, ended_at, recorded_at
		 FROM expeditions
		 WHERE dungeon_id = $1
		 ORDER BY ended_at DESC, recorded_at DESC
		 LIMIT $2`,
		dungeonID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying expeditions: %w", err)
	}
	defer rows.Close()

	var out []ExpeditionRecord
	for rows.Next() {
		var rec ExpeditionRecord
		c := &rec.Counters
		if err := rows.Scan(
			&rec.ID, &rec.DungeonID, &rec.DungeonName, &rec.Theme, &rec.DungeonLevel, &rec.PlayerLevel,
			&c.RoomsExplored, &c.PuzzlesSolved, &c.SecretsFound, &c.HiddenAreasDiscovered,
			&c.LorePiecesFound, &c.StrategicDecisionsMade, &c.BossesDefeated,
			&c.DepthReached, &c.TimeSpent, &rec.ExploredPercentage,
			&rec.RewardCount, &rec.RewardValue, &rec.StartedAt, &rec.EndedAt, &rec.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning expedition: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating expeditions: %w", err)
	}
	return out, nil
}

func isDuplicateKeyError(err error) bool {
	// pgx wraps PostgreSQL errors; SQLSTATE 23505 is unique_violation.
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
