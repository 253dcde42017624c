// Package oddsserver exposes the odds calculator over gRPC.
package oddsserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mitchelldurbincs/wargame/internal/calculator"
	"github.com/mitchelldurbincs/wargame/internal/odds"
)

// Server implements OddsServiceServer on top of a calculator service.
type Server struct {
	calc *calculator.Service
}

// NewServer creates a gRPC odds server
func NewServer(calc *calculator.Service) *Server {
	return &Server{calc: calc}
}

// Calculate runs one odds calculation
func (s *Server) Calculate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req calculator.Request
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}

	resp, err := s.calc.Calculate(ctx, req, nil)
	if err != nil {
		return nil, toStatus(err)
	}

	log.Debug().
		Str("status", string(resp.Status)).
		Str("estimator", resp.Estimator).
		Msg("Calculated odds")

	return toStruct(resp)
}

// CalculateStream runs a calculation and streams Monte-Carlo progress
// snapshots before the final response
func (s *Server) CalculateStream(in *structpb.Struct, stream OddsService_CalculateStreamServer) error {
	var req calculator.Request
	if err := fromStruct(in, &req); err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}

	// Snapshots arrive from worker goroutines; grpc streams allow only one
	// concurrent sender.
	snapshots := make(chan odds.AggregateResult, 16)
	done := make(chan struct{})
	var sendErr error
	go func() {
		defer close(done)
		for snap := range snapshots {
			if sendErr != nil {
				continue
			}
			msg, err := toStruct(calculator.StreamMessage{Type: calculator.MessageProgress, Progress: &snap})
			if err == nil {
				err = stream.Send(msg)
			}
			sendErr = err
		}
	}()

	resp, err := s.calc.Calculate(stream.Context(), req, func(snap odds.AggregateResult) {
		select {
		case snapshots <- snap:
		default:
			// Drop the snapshot rather than stall the workers.
		}
	})
	close(snapshots)
	<-done

	if err != nil {
		return toStatus(err)
	}
	if sendErr != nil {
		return sendErr
	}
	msg, err := toStruct(calculator.StreamMessage{Type: calculator.MessageResult, Response: &resp})
	if err != nil {
		return err
	}
	return stream.Send(msg)
}

// GetRules describes the ruleset behind the calculator
func (s *Server) GetRules(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(s.calc.RulesInfo())
}

// GetStats returns per-estimator counters
func (s *Server) GetStats(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(s.calc.Report())
}

// toStatus maps calculator errors onto gRPC codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, calculator.ErrBadRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		log.Error().Err(err).Msg("Odds calculation failed")
		return status.Errorf(codes.Internal, "calculation failed: %v", err)
	}
}

// toStruct converts a JSON-tagged value into a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %T: %w", v, err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("encoding %T: %w", v, err)
	}
	return structpb.NewStruct(m)
}

// fromStruct decodes a Struct into a JSON-tagged value.
func fromStruct(s *structpb.Struct, v any) error {
	data, err := json.Marshal(s.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
