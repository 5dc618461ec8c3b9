package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/magefree/mage-engine-go/internal/config"
	"github.com/magefree/mage-engine-go/internal/repository"
	"github.com/magefree/mage-engine-go/internal/table"
)

// AdminServiceName is the fully qualified name of the admin service.
const AdminServiceName = "mage.admin.v1.Admin"

// AdminServer is the admin RPC surface. Requests and responses are free-form
// structs so the service needs no generated code.
type AdminServer interface {
	ListTables(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetView(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateTable(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListReplays(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterAdminServer registers srv on s.
func RegisterAdminServer(s grpc.ServiceRegistrar, srv AdminServer) {
	s.RegisterService(&adminServiceDesc, srv)
}

type adminMethod func(AdminServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func adminHandler(name string, call adminMethod) grpc.MethodHandler {
	fullMethod := "/" + AdminServiceName + "/" + name
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AdminServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AdminServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var adminServiceDesc = grpc.ServiceDesc{
	ServiceName: AdminServiceName,
	HandlerType: (*AdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListTables", Handler: adminHandler("ListTables", AdminServer.ListTables)},
		{MethodName: "GetView", Handler: adminHandler("GetView", AdminServer.GetView)},
		{MethodName: "CreateTable", Handler: adminHandler("CreateTable", AdminServer.CreateTable)},
		{MethodName: "ListReplays", Handler: adminHandler("ListReplays", AdminServer.ListReplays)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "mage/admin/v1/admin.proto",
}

// AdminClient calls the admin service.
type AdminClient struct {
	cc grpc.ClientConnInterface
}

func NewAdminClient(cc grpc.ClientConnInterface) *AdminClient {
	return &AdminClient{cc: cc}
}

func (c *AdminClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+AdminServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AdminClient) ListTables(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ListTables", in, opts...)
}

func (c *AdminClient) GetView(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetView", in, opts...)
}

func (c *AdminClient) CreateTable(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "CreateTable", in, opts...)
}

func (c *AdminClient) ListReplays(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ListReplays", in, opts...)
}

// TableAdmin is the part of the table manager the admin service drives.
type TableAdmin interface {
	TableSource
	Create(ctx context.Context, cfg table.Config) (*table.Table, error)
	List() []table.TableSnapshot
}

type adminServer struct {
	tables  TableAdmin
	replays repository.ReplayStore
	logger  *zap.Logger
}

// NewAdminServer creates the admin service. replays may be nil.
func NewAdminServer(tables TableAdmin, replays repository.ReplayStore, logger *zap.Logger) AdminServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &adminServer{tables: tables, replays: replays, logger: logger}
}

// NewGRPCServer builds a gRPC server carrying the admin and health services.
func NewGRPCServer(cfg config.GRPCConfig, admin AdminServer, logger *zap.Logger) (*grpc.Server, *health.Server) {
	opts := []grpc.ServerOption{
		grpc.UnaryInterceptor(ChainUnaryInterceptors(
			RecoveryInterceptor(logger),
			LoggingInterceptor(logger),
		)),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
	}
	if cfg.MaxConcurrentStreams > 0 {
		opts = append(opts, grpc.MaxConcurrentStreams(uint32(cfg.MaxConcurrentStreams)))
	}
	s := grpc.NewServer(opts...)
	RegisterAdminServer(s, admin)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(AdminServiceName, healthpb.HealthCheckResponse_SERVING)
	return s, hs
}

func (s *adminServer) ListTables(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	snaps := s.tables.List()
	tables := make([]any, 0, len(snaps))
	for _, snap := range snaps {
		tables = append(tables, snapshotToMap(snap))
	}
	return newStruct(map[string]any{"tables": tables})
}

func (s *adminServer) GetView(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	tableID := fields["table_id"].GetStringValue()
	if tableID == "" {
		return nil, status.Errorf(codes.InvalidArgument, "table_id is required")
	}
	tbl, ok := s.tables.Get(tableID)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "table %s not found", tableID)
	}
	view, err := tbl.View(ctx, fields["viewer"].GetStringValue())
	if err != nil {
		return nil, toStatus(err)
	}
	m, err := toMap(view)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode view: %v", err)
	}
	return newStruct(m)
}

func (s *adminServer) CreateTable(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var cfg table.Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "decoder: %v", err)
	}
	if err := dec.Decode(req.AsMap()); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid table config: %v", err)
	}

	tbl, err := s.tables.Create(ctx, cfg)
	if err != nil {
		if errors.Is(err, table.ErrTooManyTables) {
			return nil, status.Errorf(codes.ResourceExhausted, "%v", err)
		}
		return nil, status.Errorf(codes.InvalidArgument, "create table: %v", err)
	}
	s.logger.Info("table created by admin",
		zap.String("table_id", tbl.ID),
		zap.String("peer", extractHostFromContext(ctx)))
	return newStruct(snapshotToMap(tbl.Snapshot()))
}

func (s *adminServer) ListReplays(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.replays == nil {
		return nil, status.Errorf(codes.Unavailable, "no replay store configured")
	}
	limit := int(req.GetFields()["limit"].GetNumberValue())
	list, err := s.replays.ListReplays(ctx, limit)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "list replays: %v", err)
	}
	replays := make([]any, 0, len(list))
	for _, r := range list {
		replays = append(replays, map[string]any{
			"game_id":    r.GameID,
			"players":    stringsToAny(r.Players),
			"winner":     r.Winner,
			"actions":    r.Actions,
			"entries":    r.Entries,
			"checksum":   r.Checksum,
			"created_at": r.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return newStruct(map[string]any{"replays": replays})
}

func snapshotToMap(s table.TableSnapshot) map[string]any {
	m := map[string]any{
		"table_id":    s.ID,
		"name":        s.Name,
		"game_id":     s.GameID,
		"chat_id":     s.ChatID,
		"state":       s.State.String(),
		"players":     stringsToAny(s.Players),
		"turn":        s.Turn,
		"step":        s.Step,
		"active":      s.Active,
		"priority":    s.Priority,
		"winner":      s.Winner,
		"create_time": s.CreateTime.UTC().Format(time.RFC3339),
	}
	if s.EndTime != nil {
		m["end_time"] = s.EndTime.UTC().Format(time.RFC3339)
	}
	return m
}

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

// toMap converts a JSON-tagged value into a map structpb accepts.
func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return st, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, table.ErrTableClosed):
		return status.Errorf(codes.FailedPrecondition, "%v", err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return status.FromContextError(err).Err()
	default:
		return status.Errorf(codes.Internal, "%v", fmt.Errorf("table: %w", err))
	}
}
