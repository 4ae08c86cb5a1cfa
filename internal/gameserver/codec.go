package gameserver

import (
	"math"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/delve/internal/game/reward"
	"github.com/cory-johannsen/delve/internal/game/session"
)

func toStruct(m map[string]any) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding response: %v", err)
	}
	return st, nil
}

func stringField(req *structpb.Struct, key string) (string, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", key)
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok || s.StringValue == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s must be a non-empty string", key)
	}
	return s.StringValue, nil
}

func intField(req *structpb.Struct, key string, def int) (int, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return def, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue != math.Trunc(n.NumberValue) {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be an integer", key)
	}
	return int(n.NumberValue), nil
}

func actionsField(req *structpb.Struct) ([]session.Action, error) {
	v, ok := req.GetFields()["actions"]
	if !ok {
		return nil, nil
	}
	list := v.GetListValue()
	if list == nil {
		return nil, status.Error(codes.InvalidArgument, "actions must be a list of strings")
	}
	out := make([]session.Action, 0, len(list.GetValues()))
	for i, item := range list.GetValues() {
		s, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "actions[%d] must be a string", i)
		}
		out = append(out, session.Action(s.StringValue))
	}
	return out, nil
}

func stringList[T ~string](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

func dungeonSummaryMap(d session.DungeonSummary) map[string]any {
	return map[string]any{
		"id":              d.ID,
		"name":            d.Name,
		"theme":           string(d.Theme),
		"level":           d.Level,
		"room_count":      d.RoomCount,
		"layout":          string(d.Layout),
		"puzzle_count":    d.PuzzleCount,
		"challenge_count": d.ChallengeCount,
		"secrets":         d.Secrets,
		"hidden_areas":    d.HiddenAreas,
		"lore_elements":   d.LoreElements,
	}
}

func enterSummaryMap(e session.EnterSummary) map[string]any {
	return map[string]any{
		"expedition_id":    e.ExpeditionID,
		"dungeon_id":       e.DungeonID,
		"dungeon_name":     e.DungeonName,
		"theme":            string(e.Theme),
		"dungeon_level":    e.DungeonLevel,
		"player_level":     e.PlayerLevel,
		"layout":           string(e.Layout),
		"total_rooms":      e.TotalRooms,
		"entrance_room_id": e.EntranceRoomID,
		"state":            string(e.State),
	}
}

func rewardMap(r reward.Reward) map[string]any {
	return map[string]any{
		"instance_id": r.InstanceID,
		"tier":        string(r.Tier),
		"type":        string(r.Type),
		"value":       r.Value,
		"rarity":      string(r.Rarity),
		"depth":       r.Depth,
		"boss":        r.Boss,
	}
}

func rewardList(rs []reward.Reward) []any {
	out := make([]any, len(rs))
	for i, r := range rs {
		out[i] = rewardMap(r)
	}
	return out
}

func discoveryMap(d session.Discovery) map[string]any {
	m := map[string]any{
		"room_id":   d.RoomID,
		"kind":      string(d.Kind),
		"contents":  stringList(d.Contents),
		"secrets":   stringList(d.Secrets),
		"challenge": string(d.Challenge),
		"puzzle":    string(d.Puzzle),
		"lore":      string(d.Lore),
		"depth":     d.Depth,
		"notes":     stringList(d.Notes),
	}
	if d.Reward != nil {
		m["reward"] = rewardMap(*d.Reward)
	}
	return m
}

func exploreResultMap(r session.ExploreResult) map[string]any {
	discoveries := make([]any, len(r.Discoveries))
	for i, d := range r.Discoveries {
		discoveries[i] = discoveryMap(d)
	}
	return map[string]any{
		"rooms_explored":          r.RoomsExplored,
		"puzzles_solved":          r.PuzzlesSolved,
		"secrets_found":           r.SecretsFound,
		"hidden_areas_discovered": r.HiddenAreasDiscovered,
		"lore_pieces_found":       r.LorePiecesFound,
		"strategic_decisions":     r.StrategicDecisions,
		"bosses_defeated":         r.BossesDefeated,
		"challenges_faced":        stringList(r.ChallengesFaced),
		"discoveries":             discoveries,
		"rewards":                 rewardList(r.Rewards),
		"current_room":            r.CurrentRoom,
	}
}

func navigateResultMap(r session.NavigateResult) map[string]any {
	curve := make([]any, len(r.DifficultyCurve))
	for i, v := range r.DifficultyCurve {
		curve[i] = v
	}
	resources := make(map[string]any, len(r.Resources))
	for k, v := range r.Resources {
		resources[k] = v
	}
	return map[string]any{
		"depth_reached":    r.DepthReached,
		"difficulty_curve": curve,
		"rewards":          rewardList(r.Rewards),
		"resources_used":   resources,
	}
}

func countersMap(c session.Counters) map[string]any {
	return map[string]any{
		"rooms_explored":           c.RoomsExplored,
		"puzzles_solved":           c.PuzzlesSolved,
		"secrets_found":            c.SecretsFound,
		"hidden_areas_discovered":  c.HiddenAreasDiscovered,
		"lore_pieces_found":        c.LorePiecesFound,
		"strategic_decisions_made": c.StrategicDecisionsMade,
		"bosses_defeated":          c.BossesDefeated,
		"depth_reached":            c.DepthReached,
		"time_spent":               c.TimeSpent,
	}
}

func summaryMap(s session.Summary) map[string]any {
	resources := make(map[string]any, len(s.Resources))
	for k, v := range s.Resources {
		resources[k] = v
	}
	return map[string]any{
		"expedition_id":       s.ExpeditionID,
		"dungeon_id":          s.DungeonID,
		"dungeon_name":        s.DungeonName,
		"theme":               string(s.Theme),
		"dungeon_level":       s.DungeonLevel,
		"player_level":        s.PlayerLevel,
		"state":               string(s.State),
		"counters":            countersMap(s.Counters),
		"explored_rooms":      s.ExploredRooms,
		"total_rooms":         s.TotalRooms,
		"explored_percentage": s.ExploredPercentage,
		"discoveries":         s.Discoveries,
		"rewards":             rewardList(s.Rewards),
		"challenges_faced":    stringList(s.ChallengesFaced),
		"decisions":           stringList(s.Decisions),
		"resources_used":      resources,
		"started_at":          s.StartedAt.UTC().Format(time.RFC3339Nano),
		"ended_at":            s.EndedAt.UTC().Format(time.RFC3339Nano),
	}
}
