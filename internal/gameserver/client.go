package gameserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/delve/internal/game/session"
)

// Client calls ExpeditionService over an established connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
//
// Precondition: cc must be non-nil.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, fields map[string]any) (map[string]any, error) {
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	resp := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, resp); err != nil {
		return nil, err
	}
	return resp.AsMap(), nil
}

// ListDungeons returns the catalog summaries.
func (c *Client) ListDungeons(ctx context.Context) ([]map[string]any, error) {
	resp, err := c.invoke(ctx, "ListDungeons", nil)
	if err != nil {
		return nil, err
	}
	raw, _ := resp["dungeons"].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, d := range raw {
		if m, ok := d.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// InitializeCatalog regenerates the server's catalog with count dungeons.
func (c *Client) InitializeCatalog(ctx context.Context, count int) error {
	_, err := c.invoke(ctx, "InitializeCatalog", map[string]any{"count": count})
	return err
}

// Enter starts an expedition.
func (c *Client) Enter(ctx context.Context, dungeonID string, playerLevel int) (map[string]any, error) {
	return c.invoke(ctx, "Enter", map[string]any{"dungeon_id": dungeonID, "player_level": playerLevel})
}

// Explore applies actions to the running expedition.
func (c *Client) Explore(ctx context.Context, dungeonID string, actions ...session.Action) (map[string]any, error) {
	list := make([]any, len(actions))
	for i, a := range actions {
		list[i] = string(a)
	}
	return c.invoke(ctx, "Explore", map[string]any{"dungeon_id": dungeonID, "actions": list})
}

// Navigate descends up to depth.
func (c *Client) Navigate(ctx context.Context, dungeonID string, depth int) (map[string]any, error) {
	return c.invoke(ctx, "Navigate", map[string]any{"dungeon_id": dungeonID, "depth": depth})
}

// End completes the running expedition. ended is false when none was running.
func (c *Client) End(ctx context.Context, dungeonID string) (summary map[string]any, ended bool, err error) {
	resp, err := c.invoke(ctx, "End", map[string]any{"dungeon_id": dungeonID})
	if err != nil {
		return nil, false, err
	}
	ended, _ = resp["ended"].(bool)
	summary, _ = resp["summary"].(map[string]any)
	return summary, ended, nil
}
