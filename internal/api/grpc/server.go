// Package grpcapi exposes the transcript pipeline over gRPC.
//
// Messages are google.protobuf.Struct values so the service needs no
// generated code: the request carries stereoAudioUrl, language, align and
// callId, and the response mirrors the HTTP API's JSON body.
package grpcapi

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"call-transcript-service/internal/observability/logging"
	"call-transcript-service/internal/service/pipeline"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "call.transcript.v1.TranscriptService"
	// TranscribeMethod is the full method name of Transcribe.
	TranscribeMethod = "/" + ServiceName + "/Transcribe"
)

// TranscriptServiceServer is the server API for TranscriptService.
type TranscriptServiceServer interface {
	Transcribe(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes TranscriptService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TranscriptServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Transcribe", Handler: transcribeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "call/transcript/v1/transcript.proto",
}

func transcribeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TranscriptServiceServer).Transcribe(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: TranscribeMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TranscriptServiceServer).Transcribe(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Processor runs a call through the transcript pipeline.
type Processor interface {
	Process(ctx context.Context, req pipeline.Request) (*pipeline.Response, error)
}

// Server implements TranscriptServiceServer.
type Server struct {
	processor Processor
	logger    zerolog.Logger
}

// Register registers the transcript service on g.
func Register(g *grpc.Server, processor Processor) {
	g.RegisterService(&ServiceDesc, &Server{
		processor: processor,
		logger:    logging.WithComponent("grpc"),
	})
}

// Transcribe processes one call.
func (s *Server) Transcribe(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := requestFromStruct(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	resp, err := s.processor.Process(ctx, req)
	if err != nil {
		return nil, status.Error(codeFor(err), err.Error())
	}

	out, err := toStruct(resp)
	if err != nil {
		s.logger.Error().Str("method", "Transcribe").Err(err).Msg("Failed to encode response")
		return nil, status.Error(codes.Internal, "encode response")
	}
	return out, nil
}

func requestFromStruct(in *structpb.Struct) (pipeline.Request, error) {
	var req pipeline.Request
	for key, v := range in.GetFields() {
		switch key {
		case "stereoAudioUrl", "language", "callId":
			sv, ok := v.GetKind().(*structpb.Value_StringValue)
			if !ok {
				return req, errors.New(key + " must be a string")
			}
			switch key {
			case "stereoAudioUrl":
				req.AudioURL = sv.StringValue
			case "language":
				req.Language = sv.StringValue
			case "callId":
				req.CallID = sv.StringValue
			}
		case "align":
			bv, ok := v.GetKind().(*structpb.Value_BoolValue)
			if !ok {
				return req, errors.New("align must be a bool")
			}
			align := bv.BoolValue
			req.Align = &align
		default:
			return req, errors.New("unknown field " + key)
		}
	}
	return req, nil
}

// toStruct converts a JSON-tagged value to a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// codeFor maps pipeline errors to gRPC status codes.
func codeFor(err error) codes.Code {
	switch {
	case pipeline.IsClientError(err):
		return codes.InvalidArgument
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	default:
		return codes.Unavailable
	}
}

// Transcribe calls TranscriptService.Transcribe on conn.
func Transcribe(ctx context.Context, conn grpc.ClientConnInterface, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := conn.Invoke(ctx, TranscribeMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
