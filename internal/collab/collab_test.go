package collab

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/czhharrison/MerchantChat/internal/config"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// #region handle-tests
func TestHandle_AbsentIsUnavailable(t *testing.T) {
	h := Absent()
	if h.Available() {
		t.Fatal("absent handle reports available")
	}
	_, err := h.Call(context.Background(), "p")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if Reason(err) != ReasonAbsent {
		t.Errorf("reason: got %q", Reason(err))
	}
	if h.Name() != "none" {
		t.Errorf("name: got %q", h.Name())
	}
}

func TestHandle_PresentNilGeneratorIsAbsent(t *testing.T) {
	if Present("x", nil, time.Second).Available() {
		t.Error("nil generator should yield absent handle")
	}
}

func TestHandle_Success(t *testing.T) {
	h := Present("fake", GeneratorFunc(func(_ context.Context, p string) (string, error) {
		return "标题：" + p, nil
	}), time.Second)
	got, err := h.Call(context.Background(), "连衣裙")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "标题：连衣裙" {
		t.Errorf("got %q", got)
	}
}

func TestHandle_TimeoutWhenGeneratorIgnoresContext(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	h := Present("stuck", GeneratorFunc(func(_ context.Context, _ string) (string, error) {
		<-block
		return "late", nil
	}), 20*time.Millisecond)

	start := time.Now()
	_, err := h.Call(context.Background(), "p")
	if !errors.Is(err, ErrUnavailable) || Reason(err) != ReasonTimeout {
		t.Fatalf("expected timeout, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("call did not respect the deadline")
	}
}

func TestHandle_PanicRecovered(t *testing.T) {
	h := Present("boom", GeneratorFunc(func(_ context.Context, _ string) (string, error) {
		panic("kaboom")
	}), time.Second)
	_, err := h.Call(context.Background(), "p")
	if Reason(err) != ReasonPanic {
		t.Fatalf("expected panic reason, got %v", err)
	}
}

func TestHandle_EmptyOutput(t *testing.T) {
	h := Present("blank", GeneratorFunc(func(_ context.Context, _ string) (string, error) {
		return "  \n ", nil
	}), time.Second)
	_, err := h.Call(context.Background(), "p")
	if Reason(err) != ReasonEmpty {
		t.Fatalf("expected empty reason, got %v", err)
	}
}

func TestHandle_GeneratorError(t *testing.T) {
	h := Present("bad", GeneratorFunc(func(_ context.Context, _ string) (string, error) {
		return "", errors.New("connection refused")
	}), time.Second)
	_, err := h.Call(context.Background(), "p")
	if !errors.Is(err, ErrUnavailable) || Reason(err) != ReasonError {
		t.Fatalf("expected error reason, got %v", err)
	}
}

// #endregion handle-tests

// #region grpc-tests
type mockInvoker struct {
	method string
	prompt string
	reply  string
	err    error
}

func (m *mockInvoker) Invoke(_ context.Context, method string, args any, reply any, _ ...grpc.CallOption) error {
	m.method = method
	m.prompt = args.(*wrapperspb.StringValue).GetValue()
	if m.err != nil {
		return m.err
	}
	reply.(*wrapperspb.StringValue).Value = m.reply
	return nil
}

func TestGRPCClient_Generate(t *testing.T) {
	mock := &mockInvoker{reply: "【爆款】连衣裙"}
	c := NewGRPCClientWithInvoker(mock)

	got, err := c.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "【爆款】连衣裙" {
		t.Errorf("got %q", got)
	}
	if mock.method != GenerateMethod || mock.prompt != "prompt" {
		t.Errorf("unexpected call %s(%q)", mock.method, mock.prompt)
	}
	if err := c.Close(); err != nil {
		t.Errorf("close without conn: %v", err)
	}
}

func TestGRPCClient_Error(t *testing.T) {
	c := NewGRPCClientWithInvoker(&mockInvoker{err: errors.New("unavailable")})
	if _, err := c.Generate(context.Background(), "p"); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewGRPCClient_LazyConnect(t *testing.T) {
	client, err := NewGRPCClient("localhost:0")
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}
	defer client.Close()
}

// #endregion grpc-tests

// #region gemini-tests
func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("简约"), genai.Text("连衣裙")}},
		}},
	}
	got, err := responseText(resp)
	if err != nil {
		t.Fatal(err)
	}
	if got != "简约连衣裙" {
		t.Errorf("got %q", got)
	}
	if _, err := responseText(&genai.GenerateContentResponse{}); err == nil {
		t.Error("expected error for empty response")
	}
}

// #endregion gemini-tests

// #region open-tests
func TestOpen_Kinds(t *testing.T) {
	ctx := context.Background()

	h, closer, err := Open(ctx, config.Collaborator{Kind: "none"})
	if err != nil || h.Available() {
		t.Fatalf("none: available=%v err=%v", h.Available(), err)
	}
	closer.Close()

	h, closer, err = Open(ctx, config.Collaborator{Kind: "grpc", Addr: "localhost:0", Timeout: time.Second})
	if err != nil || !h.Available() {
		t.Fatalf("grpc: available=%v err=%v", h.Available(), err)
	}
	closer.Close()

	h, _, err = Open(ctx, config.Collaborator{Kind: "gemini"})
	if err == nil || h.Available() {
		t.Fatal("gemini without key should fail closed")
	}

	if _, _, err := Open(ctx, config.Collaborator{Kind: "carrier-pigeon"}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

// #endregion open-tests
