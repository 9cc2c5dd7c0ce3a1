package observability

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"call-transcript-service/internal/observability/metrics"
)

func TestHandler(t *testing.T) {
	ready := false
	h := Handler(map[string]Check{
		"app": func(context.Context) error {
			if !ready {
				return ErrNotReady
			}
			return nil
		},
		"storage": func(context.Context) error { return nil },
	})

	tests := []struct {
		path     string
		ready    bool
		expected int
		contains string
	}{
		{"/healthz", false, http.StatusOK, "ok"},
		{"/readyz", false, http.StatusServiceUnavailable, `"app":"not ready"`},
		{"/readyz", true, http.StatusOK, `"storage":"ok"`},
		{"/metrics", true, http.StatusOK, "go_goroutines"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			ready = tt.ready
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.contains) {
				t.Errorf("expected body to contain %q, got %s", tt.contains, rec.Body.String())
			}
		})
	}
}

func TestHandler_NoChecks(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with no checks, got %d", rec.Code)
	}
}

func TestUnaryServerInterceptor_RecordsRPC(t *testing.T) {
	m := metrics.DefaultMetrics
	interceptor := UnaryServerInterceptor(m)
	info := &grpc.UnaryServerInfo{FullMethod: "/test.Service/Method"}

	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.InvalidArgument, "bad")
	})
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("expected handler error to pass through, got %v", err)
	}

	_, err = interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return "ok", nil
	})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	rec := httptest.NewRecorder()
	Handler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`call_transcript_rpc_total{code="InvalidArgument",method="/test.Service/Method"} 1`,
		`call_transcript_rpc_total{code="OK",method="/test.Service/Method"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected metrics to contain %q", want)
		}
	}
}

func TestStreamServerInterceptor_PassesError(t *testing.T) {
	interceptor := StreamServerInterceptor(metrics.DefaultMetrics)
	want := errors.New("stream broken")

	err := interceptor(nil, nil, &grpc.StreamServerInfo{FullMethod: "/test.Service/Stream"}, func(srv interface{}, ss grpc.ServerStream) error {
		return want
	})
	if err != want {
		t.Errorf("expected %v, got %v", want, err)
	}
}

func TestUnaryServerInterceptor_RecoversPanic(t *testing.T) {
	interceptor := UnaryServerInterceptor(metrics.DefaultMetrics)
	info := &grpc.UnaryServerInfo{FullMethod: "/test.Service/Panics"}

	resp, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		panic("boom")
	})
	if resp != nil {
		t.Errorf("expected nil response, got %v", resp)
	}
	if status.Code(err) != codes.Internal {
		t.Errorf("expected codes.Internal, got %v", err)
	}
}

func TestRPCLogger_CallID(t *testing.T) {
	req, err := structpb.NewStruct(map[string]any{"callId": "call-7"})
	if err != nil {
		t.Fatalf("build request: %v", err)
	}

	var buf bytes.Buffer
	logger := rpcLogger("/m", req).Output(&buf)
	logger.Info().Msg("x")

	if !strings.Contains(buf.String(), `"callId":"call-7"`) {
		t.Errorf("expected callId in log line, got %s", buf.String())
	}
}
