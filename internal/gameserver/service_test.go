package gameserver

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/delve/internal/game/dice"
	"github.com/cory-johannsen/delve/internal/game/dungeon"
	"github.com/cory-johannsen/delve/internal/game/session"
)

type fakeRecorder struct {
	mu      sync.Mutex
	records []session.Summary
	err     error
}

func (f *fakeRecorder) Record(_ context.Context, s session.Summary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, s)
	return f.err
}

func newTestManager(t *testing.T, logger *zap.Logger) *session.Manager {
	t.Helper()
	src := dice.NewSeededSource(7)
	return session.NewManager(dungeon.NewGenerator(src, logger), dice.NewLoggedRoller(src, logger), logger)
}

// testGRPCServer starts an in-process gRPC server and returns a connected client.
func testGRPCServer(t *testing.T, logger *zap.Logger, rec Recorder) (*Client, *session.Manager) {
	t.Helper()
	mgr := newTestManager(t, logger)
	svc := NewExpeditionService(mgr, logger, rec)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	grpcServer := grpc.NewServer()
	RegisterExpeditionServer(grpcServer, svc)

	go func() { _ = grpcServer.Serve(lis) }()
	t.Cleanup(func() { grpcServer.Stop() })

	conn, err := grpc.NewClient(lis.Addr().String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewClient(conn), mgr
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestGRPCService_InitializeAndList(t *testing.T) {
	client, _ := testGRPCServer(t, zaptest.NewLogger(t), nil)
	ctx := testContext(t)

	require.NoError(t, client.InitializeCatalog(ctx, 5))
	list, err := client.ListDungeons(ctx)
	require.NoError(t, err)
	require.Len(t, list, 5)
	assert.Equal(t, "dungeon_0", list[0]["id"])
	for _, d := range list {
		assert.NotEmpty(t, d["name"])
		assert.GreaterOrEqual(t, d["room_count"], float64(dungeon.MinRooms))
	}
}

func TestGRPCService_InitializeRejectsOversizedCatalog(t *testing.T) {
	client, _ := testGRPCServer(t, zaptest.NewLogger(t), nil)
	err := client.InitializeCatalog(testContext(t), len(dungeon.AllThemes)+1)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPCService_EnterUnknownDungeon(t *testing.T) {
	client, _ := testGRPCServer(t, zaptest.NewLogger(t), nil)
	_, err := client.Enter(testContext(t), "dungeon_404", 3)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestGRPCService_ExploreWithoutExpedition(t *testing.T) {
	client, _ := testGRPCServer(t, zaptest.NewLogger(t), nil)
	ctx := testContext(t)
	require.NoError(t, client.InitializeCatalog(ctx, 1))
	_, err := client.Explore(ctx, "dungeon_0", session.ActionExploreRoom)
	assert.Equal(t, codes.NotFound, status.Code(err))
	_, err = client.Navigate(ctx, "dungeon_0", 5)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestGRPCService_ExploreUnknownAction(t *testing.T) {
	client, _ := testGRPCServer(t, zaptest.NewLogger(t), nil)
	ctx := testContext(t)
	require.NoError(t, client.InitializeCatalog(ctx, 1))
	_, err := client.Enter(ctx, "dungeon_0", 1)
	require.NoError(t, err)
	_, err = client.Explore(ctx, "dungeon_0", "teleport")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPCService_FullExpedition(t *testing.T) {
	rec := &fakeRecorder{}
	client, _ := testGRPCServer(t, zaptest.NewLogger(t), rec)
	ctx := testContext(t)
	require.NoError(t, client.InitializeCatalog(ctx, 3))

	enter, err := client.Enter(ctx, "dungeon_1", 8)
	require.NoError(t, err)
	assert.Equal(t, "in_progress", enter["state"])
	assert.Equal(t, float64(8), enter["player_level"])
	assert.NotEmpty(t, enter["entrance_room_id"])

	explore, err := client.Explore(ctx, "dungeon_1",
		session.ActionExploreRoom, session.ActionExploreRoom,
		session.ActionStrategicChoice, session.ActionFaceChallenge)
	require.NoError(t, err)
	assert.Equal(t, float64(2), explore["rooms_explored"])
	assert.Equal(t, float64(1), explore["strategic_decisions"])
	assert.Len(t, explore["discoveries"], 2)
	assert.Equal(t, enter["entrance_room_id"], explore["discoveries"].([]any)[0].(map[string]any)["room_id"])

	nav, err := client.Navigate(ctx, "dungeon_1", 10)
	require.NoError(t, err)
	depth := nav["depth_reached"].(float64)
	assert.Greater(t, depth, float64(0))
	assert.LessOrEqual(t, depth, float64(10))
	assert.NotEmpty(t, nav["difficulty_curve"])
	assert.Contains(t, nav["resources_used"], "health_potions")

	summary, ended, err := client.End(ctx, "dungeon_1")
	require.NoError(t, err)
	require.True(t, ended)
	assert.Equal(t, "completed", summary["state"])
	assert.Equal(t, enter["expedition_id"], summary["expedition_id"])
	counters := summary["counters"].(map[string]any)
	assert.Equal(t, float64(2), counters["rooms_explored"])
	assert.GreaterOrEqual(t, counters["depth_reached"], depth)

	require.Len(t, rec.records, 1)
	assert.Equal(t, enter["expedition_id"], rec.records[0].ExpeditionID)

	_, ended, err = client.End(ctx, "dungeon_1")
	require.NoError(t, err)
	assert.False(t, ended)
	assert.Len(t, rec.records, 1)
}

func TestGRPCService_RecorderFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	rec := &fakeRecorder{err: errors.New("db down")}
	client, _ := testGRPCServer(t, zap.New(core), rec)
	ctx := testContext(t)
	require.NoError(t, client.InitializeCatalog(ctx, 1))
	_, err := client.Enter(ctx, "dungeon_0", 1)
	require.NoError(t, err)

	_, ended, err := client.End(ctx, "dungeon_0")
	require.NoError(t, err)
	assert.True(t, ended)
	assert.Equal(t, 1, logs.FilterMessage("recording expedition").Len())
}

func TestExpeditionService_RequestValidation(t *testing.T) {
	svc := NewExpeditionService(newTestManager(t, zaptest.NewLogger(t)), zaptest.NewLogger(t), nil)
	ctx := context.Background()

	_, err := svc.Enter(ctx, &structpb.Struct{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	bad, err := structpb.NewStruct(map[string]any{"dungeon_id": "dungeon_0", "player_level": 1.5})
	require.NoError(t, err)
	_, err = svc.Enter(ctx, bad)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	notList, err := structpb.NewStruct(map[string]any{"dungeon_id": "dungeon_0", "actions": "explore_room"})
	require.NoError(t, err)
	_, err = svc.Explore(ctx, notList)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	notStrings, err := structpb.NewStruct(map[string]any{"dungeon_id": "dungeon_0", "actions": []any{1.0}})
	require.NoError(t, err)
	_, err = svc.Explore(ctx, notStrings)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestNewExpeditionService_NilArgumentsPanic(t *testing.T) {
	logger := zaptest.NewLogger(t)
	assert.Panics(t, func() { NewExpeditionService(nil, logger, nil) })
	assert.Panics(t, func() { NewExpeditionService(newTestManager(t, logger), nil, nil) })
}
