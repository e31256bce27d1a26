package agent

import (
	"context"
	"errors"

	fanapiv1alpha1 "github.com/uptime-industries/gboxfan-agent/api/fanapi/v1alpha1"
	"github.com/uptime-industries/gboxfan-agent/pkg/fancontroller"
	"github.com/uptime-industries/gboxfan-agent/pkg/log"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// agentGrpcService implements the FanServiceServer for a FanAgent
type agentGrpcService struct {
	fanapiv1alpha1.UnimplementedFanServiceServer

	Agent FanAgent
}

// NewGrpcServiceFor creates a new gRPC service for a given agent
func NewGrpcServiceFor(agent FanAgent) *agentGrpcService {
	return &agentGrpcService{
		Agent: agent,
	}
}

func (service *agentGrpcService) GetMode(context.Context, *emptypb.Empty) (*wrapperspb.Int32Value, error) {
	return wrapperspb.Int32(int32(service.Agent.GetMode())), nil
}

// SetMode switches the fan mode, see fancontroller.Mode for the codes
func (service *agentGrpcService) SetMode(ctx context.Context, req *wrapperspb.Int32Value) (*emptypb.Empty, error) {
	if err := service.Agent.SetMode(ctx, int(req.GetValue())); err != nil {
		log.FromContext(ctx).Warn("SetMode failed", zap.Int32("mode", req.GetValue()), zap.Error(err))
		return nil, toStatusError(err)
	}
	return &emptypb.Empty{}, nil
}

// GetStatus aggregates the status of the fan
func (service *agentGrpcService) GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return service.status(nil)
}

// WaitForUpdate blocks until the fan state changes and returns the status after the change
func (service *agentGrpcService) WaitForUpdate(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	event, err := service.Agent.WaitForUpdate(ctx)
	if err != nil {
		return nil, toStatusError(err)
	}
	return service.status(&event)
}

func (service *agentGrpcService) status(event *fancontroller.StateEvent) (*structpb.Struct, error) {
	current, last := service.Agent.Status()
	if event == nil {
		event = last
	}

	apiStatus := fanapiv1alpha1.Status{
		Mode:               current.Mode.String(),
		ModeCode:           int(current.Mode),
		FanOn:              current.FanOn,
		TriggerTemperature: int(current.TriggerTemperature),
		TickPending:        current.TickPending,
		Ticks:              current.Ticks,
	}
	if current.LastTemperature.Valid() {
		temp := int(current.LastTemperature)
		apiStatus.LastTemperature = &temp
	}
	if event != nil {
		apiStatus.Reason = string(event.Reason)
		apiStatus.UpdatedAt = event.Time
	}

	st, err := apiStatus.ToStruct()
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode status: %v", err)
	}
	return st, nil
}

// toStatusError maps controller errors to gRPC status codes
func toStatusError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fancontroller.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, fancontroller.ErrSchedulingFailure):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, fancontroller.ErrResourceUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
