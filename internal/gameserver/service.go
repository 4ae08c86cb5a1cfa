// Package gameserver exposes the expedition facade over gRPC. Messages are
// google.protobuf.Struct values keyed by the snake_case field names below.
package gameserver

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/delve/internal/game/dungeon"
	"github.com/cory-johannsen/delve/internal/game/session"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "delve.v1.ExpeditionService"

// Request defaults.
const (
	DefaultCatalogSize = 50
	DefaultDepth       = 10
)

// Recorder persists ended expeditions. Implemented by
// postgres.ExpeditionRepository.
type Recorder interface {
	Record(ctx context.Context, s session.Summary) error
}

// ExpeditionServer is the server API for ExpeditionService.
type ExpeditionServer interface {
	ListDungeons(context.Context, *structpb.Struct) (*structpb.Struct, error)
	InitializeCatalog(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Enter(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Explore(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Navigate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	End(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryFunc func(srv ExpeditionServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func handler(method string, call unaryFunc) grpc.MethodHandler {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := new(structpb.Struct)
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ExpeditionServer), ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, req, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(ExpeditionServer), ctx, req.(*structpb.Struct))
		})
	}
}

// ExpeditionServiceDesc describes ExpeditionService for grpc.Server registration.
var ExpeditionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ExpeditionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListDungeons", Handler: handler("ListDungeons", ExpeditionServer.ListDungeons)},
		{MethodName: "InitializeCatalog", Handler: handler("InitializeCatalog", ExpeditionServer.InitializeCatalog)},
		{MethodName: "Enter", Handler: handler("Enter", ExpeditionServer.Enter)},
		{MethodName: "Explore", Handler: handler("Explore", ExpeditionServer.Explore)},
		{MethodName: "Navigate", Handler: handler("Navigate", ExpeditionServer.Navigate)},
		{MethodName: "End", Handler: handler("End", ExpeditionServer.End)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "delve/v1/expedition.proto",
}

// RegisterExpeditionServer registers srv with s.
func RegisterExpeditionServer(s grpc.ServiceRegistrar, srv ExpeditionServer) {
	s.RegisterService(&ExpeditionServiceDesc, srv)
}

// ExpeditionService implements ExpeditionServer on a session.Manager.
type ExpeditionService struct {
	manager  *session.Manager
	recorder Recorder
	logger   *zap.Logger
}

// NewExpeditionService creates an ExpeditionService.
//
// Precondition: manager and logger must be non-nil. recorder may be nil
// (ended expeditions are not persisted).
func NewExpeditionService(manager *session.Manager, logger *zap.Logger, recorder Recorder) *ExpeditionService {
	if manager == nil {
		panic("gameserver: NewExpeditionService requires a non-nil Manager")
	}
	if logger == nil {
		panic("gameserver: NewExpeditionService requires a non-nil logger")
	}
	return &ExpeditionService{manager: manager, recorder: recorder, logger: logger}
}

// ListDungeons returns {"dungeons": [...]}.
func (s *ExpeditionService) ListDungeons(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	list := s.manager.ListDungeons()
	out := make([]any, 0, len(list))
	for _, d := range list {
		out = append(out, dungeonSummaryMap(d))
	}
	return toStruct(map[string]any{"dungeons": out})
}

// InitializeCatalog accepts {"count"} (default 50) and returns {"count"}.
func (s *ExpeditionService) InitializeCatalog(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	count, err := intField(req, "count", DefaultCatalogSize)
	if err != nil {
		return nil, err
	}
	if err := s.manager.InitializeCatalog(ctx, count); err != nil {
		return nil, s.toStatus(err)
	}
	return toStruct(map[string]any{"count": count})
}

// Enter accepts {"dungeon_id", "player_level"}.
func (s *ExpeditionService) Enter(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := stringField(req, "dungeon_id")
	if err != nil {
		return nil, err
	}
	level, err := intField(req, "player_level", 1)
	if err != nil {
		return nil, err
	}
	sum, err := s.manager.Enter(id, level)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return toStruct(enterSummaryMap(sum))
}

// Explore accepts {"dungeon_id", "actions": [...]}.
func (s *ExpeditionService) Explore(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := stringField(req, "dungeon_id")
	if err != nil {
		return nil, err
	}
	actions, err := actionsField(req)
	if err != nil {
		return nil, err
	}
	res, err := s.manager.Explore(id, actions)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return toStruct(exploreResultMap(res))
}

// Navigate accepts {"dungeon_id", "depth"} (default 10).
func (s *ExpeditionService) Navigate(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := stringField(req, "dungeon_id")
	if err != nil {
		return nil, err
	}
	depth, err := intField(req, "depth", DefaultDepth)
	if err != nil {
		return nil, err
	}
	res, err := s.manager.Navigate(id, depth)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return toStruct(navigateResultMap(res))
}

// End accepts {"dungeon_id"} and returns {"ended": false} when nothing was
// running, otherwise {"ended": true, "summary": {...}}.
func (s *ExpeditionService) End(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := stringField(req, "dungeon_id")
	if err != nil {
		return nil, err
	}
	sum, ok := s.manager.End(id)
	if !ok {
		return toStruct(map[string]any{"ended": false})
	}
	if s.recorder != nil {
		if err := s.recorder.Record(ctx, sum); err != nil {
			s.logger.Warn("recording expedition",
				zap.String("expedition_id", sum.ExpeditionID),
				zap.Error(err),
			)
		}
	}
	return toStruct(map[string]any{"ended": true, "summary": summaryMap(sum)})
}

func (s *ExpeditionService) toStatus(err error) error {
	var verr *dungeon.ValidationError
	switch {
	case errors.Is(err, session.ErrDungeonNotFound), errors.Is(err, session.ErrNoActiveExpedition):
		return status.Error(codes.NotFound, err.Error())
	case errors.As(err, &verr):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	s.logger.Error("expedition request failed", zap.Error(err))
	return status.Error(codes.Internal, err.Error())
}
