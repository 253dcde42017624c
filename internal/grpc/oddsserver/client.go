package oddsserver

import (
	"context"
	"errors"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mitchelldurbincs/wargame/internal/calculator"
	"github.com/mitchelldurbincs/wargame/internal/odds"
)

// Client calls the odds service with the calculator's own types.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a client connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Calculate runs one calculation remotely.
func (c *Client) Calculate(ctx context.Context, req calculator.Request, opts ...grpc.CallOption) (calculator.Response, error) {
	in, err := toStruct(req)
	if err != nil {
		return calculator.Response{}, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, calculateMethod, in, out, opts...); err != nil {
		return calculator.Response{}, err
	}
	var resp calculator.Response
	err = fromStruct(out, &resp)
	return resp, err
}

// CalculateStream runs a calculation remotely and hands every progress
// snapshot to progress before returning the final response.
func (c *Client) CalculateStream(ctx context.Context, req calculator.Request, progress func(odds.AggregateResult), opts ...grpc.CallOption) (calculator.Response, error) {
	in, err := toStruct(req)
	if err != nil {
		return calculator.Response{}, err
	}
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], calculateStreamMethod, opts...)
	if err != nil {
		return calculator.Response{}, err
	}
	if err := stream.SendMsg(in); err != nil {
		return calculator.Response{}, err
	}
	if err := stream.CloseSend(); err != nil {
		return calculator.Response{}, err
	}

	for {
		out := new(structpb.Struct)
		err := stream.RecvMsg(out)
		if errors.Is(err, io.EOF) {
			return calculator.Response{}, errors.New("stream ended without a result")
		}
		if err != nil {
			return calculator.Response{}, err
		}

		var msg calculator.StreamMessage
		if err := fromStruct(out, &msg); err != nil {
			return calculator.Response{}, err
		}
		switch msg.Type {
		case calculator.MessageProgress:
			if progress != nil && msg.Progress != nil {
				progress(*msg.Progress)
			}
		case calculator.MessageResult:
			if msg.Response == nil {
				return calculator.Response{}, errors.New("result message without a response")
			}
			return *msg.Response, nil
		}
	}
}

// GetRules fetches the ruleset summary.
func (c *Client) GetRules(ctx context.Context, opts ...grpc.CallOption) (calculator.RulesInfo, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getRulesMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return calculator.RulesInfo{}, err
	}
	var info calculator.RulesInfo
	err := fromStruct(out, &info)
	return info, err
}

// GetStats fetches the estimator counters.
func (c *Client) GetStats(ctx context.Context, opts ...grpc.CallOption) (calculator.Stats, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getStatsMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return calculator.Stats{}, err
	}
	var st calculator.Stats
	err := fromStruct(out, &st)
	return st, err
}
