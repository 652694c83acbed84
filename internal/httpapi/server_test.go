package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	corechess "github.com/park285/webchess/internal/chess"
	"github.com/park285/webchess/internal/msgcat"
	"github.com/park285/webchess/internal/results"
	svc "github.com/park285/webchess/internal/service/chess"
	"github.com/park285/webchess/pkg/chessdto"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

const initialFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

type scriptedSource struct {
	mu    sync.Mutex
	moves []string
}

func (s *scriptedSource) Name() string { return "scripted" }

func (s *scriptedSource) SelectMove(context.Context, corechess.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.moves) == 0 {
		return "", corechess.ErrEngineNoMove
	}
	mv := s.moves[0]
	s.moves = s.moves[1:]
	return mv, nil
}

type harness struct {
	client *fasthttp.Client
	sink   *results.FileSink
}

func newHarness(t *testing.T, replies ...string) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	policy := corechess.NewPolicy(ctx, &scriptedSource{moves: replies}, nil, nil)
	sink := results.NewFileSink(filepath.Join(t.TempDir(), "results.txt"))
	service, err := svc.NewService(svc.Config{
		Policy:   policy,
		Sink:     sink,
		Renderer: svc.NewBoardRenderer(),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	msgs, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	srv, err := New(Config{
		Service:           service,
		Logs:              sink,
		Messages:          msgs,
		DefaultDifficulty: "medium",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ln := fasthttputil.NewInmemoryListener()
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return &harness{
		client: &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }},
		sink:   sink,
	}
}

func (h *harness) do(t *testing.T, method, path string, body any) (int, []byte, string) {
	t.Helper()
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(method)
	req.SetRequestURI("http://webchess" + path)
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(raw)
	}
	if err := h.client.Do(req, resp); err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp.StatusCode(), append([]byte(nil), resp.Body()...), string(resp.Header.ContentType())
}

func (h *harness) move(t *testing.T, req chessdto.MoveRequest) chessdto.MoveResponse {
	t.Helper()
	status, body, _ := h.do(t, fasthttp.MethodPost, "/player_move", req)
	if status != fasthttp.StatusOK {
		t.Fatalf("player_move status %d: %s", status, body)
	}
	var out chessdto.MoveResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode move response: %v (%s)", err, body)
	}
	return out
}

func TestStateBeforeStart(t *testing.T) {
	h := newHarness(t)
	_, body, ctype := h.do(t, fasthttp.MethodGet, "/get_state", nil)
	if !strings.HasPrefix(ctype, "application/json") {
		t.Fatalf("content type = %q", ctype)
	}
	if !bytes.Contains(body, []byte(`"player":null`)) {
		t.Fatalf("player must be null before start: %s", body)
	}
	var state chessdto.StateResponse
	if err := json.Unmarshal(body, &state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.FEN != initialFEN || state.Turn != "white" || state.GameOver {
		t.Fatalf("unexpected state: %+v", state)
	}
}

func TestStartAndEnd(t *testing.T) {
	h := newHarness(t, "e7e5")
	_, body, _ := h.do(t, fasthttp.MethodPost, "/start", chessdto.StartRequest{Player: "Alice"})
	var started chessdto.StartResponse
	if err := json.Unmarshal(body, &started); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if started.Status != chessdto.StatusStarted || started.Player != "Alice" || started.FEN != initialFEN {
		t.Fatalf("unexpected start response: %+v", started)
	}

	h.move(t, chessdto.MoveRequest{Move: "e2e4"})

	_, body, _ = h.do(t, fasthttp.MethodPost, "/end", nil)
	var reset chessdto.ResetResponse
	if err := json.Unmarshal(body, &reset); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if reset.Status != chessdto.StatusReset || reset.FEN != initialFEN {
		t.Fatalf("unexpected reset response: %+v", reset)
	}
	_, body, _ = h.do(t, fasthttp.MethodGet, "/get_state", nil)
	if !bytes.Contains(body, []byte(`"player":null`)) {
		t.Fatalf("reset must clear the player: %s", body)
	}
}

func TestStartWithoutBodyUsesGuest(t *testing.T) {
	h := newHarness(t)
	_, body, _ := h.do(t, fasthttp.MethodPost, "/start", nil)
	var started chessdto.StartResponse
	if err := json.Unmarshal(body, &started); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if started.Player != svc.DefaultPlayer {
		t.Fatalf("player = %q, want %q", started.Player, svc.DefaultPlayer)
	}
}

func TestMoveScenarios(t *testing.T) {
	h := newHarness(t, "e7e5")

	ok := h.move(t, chessdto.MoveRequest{Move: "e2e4", Difficulty: "easy"})
	if ok.Status != chessdto.StatusOK || ok.AI == nil || *ok.AI != "e7e5" {
		t.Fatalf("unexpected ok response: %+v", ok)
	}
	afterReply := ok.FEN

	illegal := h.move(t, chessdto.MoveRequest{Move: "e2e5"})
	if illegal.Status != chessdto.StatusIllegal || illegal.FEN != afterReply {
		t.Fatalf("unexpected illegal response: %+v", illegal)
	}

	missing := h.move(t, chessdto.MoveRequest{})
	if missing.Status != chessdto.StatusError || missing.Message != "Missing move" || missing.FEN != afterReply {
		t.Fatalf("unexpected missing-move response: %+v", missing)
	}

	bad := h.move(t, chessdto.MoveRequest{Move: "zz99"})
	if bad.Status != chessdto.StatusError || bad.Message == "" {
		t.Fatalf("unexpected malformed response: %+v", bad)
	}
}

func TestMoveResponseCarriesNullAI(t *testing.T) {
	h := newHarness(t)
	_, body, _ := h.do(t, fasthttp.MethodPost, "/player_move", chessdto.MoveRequest{Move: "e2e5"})
	if !bytes.Contains(body, []byte(`"ai":null`)) {
		t.Fatalf("ai must be present as null: %s", body)
	}
}

func TestFinishedGameWritesLog(t *testing.T) {
	h := newHarness(t, "e7e5", "d8h4")

	_, body, _ := h.do(t, fasthttp.MethodGet, "/logs", nil)
	if string(body) != "No games yet." {
		t.Fatalf("logs before any game = %q", body)
	}

	h.do(t, fasthttp.MethodPost, "/start", chessdto.StartRequest{Player: "Alice"})
	h.move(t, chessdto.MoveRequest{Move: "f2f3", Difficulty: "hard"})
	done := h.move(t, chessdto.MoveRequest{Move: "g2g4", Difficulty: "hard"})
	if done.Status != chessdto.StatusFinished {
		t.Fatalf("expected finished, got %+v", done)
	}
	if !strings.Contains(done.Result, "Result: Black wins (0-1)") || !strings.Contains(done.Result, "Player: Alice") {
		t.Fatalf("unexpected record: %q", done.Result)
	}

	_, body, ctype := h.do(t, fasthttp.MethodGet, "/logs", nil)
	if !strings.HasPrefix(ctype, "text/plain") {
		t.Fatalf("content type = %q", ctype)
	}
	if string(body) != done.Result {
		t.Fatalf("log text mismatch\n got: %q\nwant: %q", body, done.Result)
	}

	over := h.move(t, chessdto.MoveRequest{Move: "a2a3"})
	if over.Status != chessdto.StatusError {
		t.Fatalf("moves after the end must be rejected: %+v", over)
	}
}

func TestValidMoves(t *testing.T) {
	h := newHarness(t)
	_, body, _ := h.do(t, fasthttp.MethodGet, "/valid_moves/g1", nil)
	var moves chessdto.ValidMovesResponse
	if err := json.Unmarshal(body, &moves); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(moves.Moves) != 2 {
		t.Fatalf("g1 moves = %v", moves.Moves)
	}

	_, body, _ = h.do(t, fasthttp.MethodGet, "/valid_moves/zz", nil)
	if string(body) != `{"moves":[]}` {
		t.Fatalf("malformed square must yield an empty list: %s", body)
	}
}

func TestBoardAndHealth(t *testing.T) {
	h := newHarness(t)
	status, body, ctype := h.do(t, fasthttp.MethodGet, "/board.png", nil)
	if status != fasthttp.StatusOK || ctype != "image/png" {
		t.Fatalf("board status=%d type=%q", status, ctype)
	}
	if !bytes.HasPrefix(body, []byte("\x89PNG\r\n\x1a\n")) {
		t.Fatalf("board body is not a PNG")
	}

	_, body, _ = h.do(t, fasthttp.MethodGet, "/healthz", nil)
	var health chessdto.HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Status != "ok" || health.Engine != "scripted" {
		t.Fatalf("unexpected health: %+v", health)
	}
}

func TestRoutingErrors(t *testing.T) {
	h := newHarness(t)
	if status, _, _ := h.do(t, fasthttp.MethodGet, "/player_move", nil); status != fasthttp.StatusMethodNotAllowed {
		t.Fatalf("GET /player_move status = %d", status)
	}
	if status, _, _ := h.do(t, fasthttp.MethodGet, "/nope", nil); status != fasthttp.StatusNotFound {
		t.Fatalf("unknown route status = %d", status)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI("http://webchess/player_move")
	req.SetBodyString("{not json")
	if err := h.client.Do(req, resp); err != nil {
		t.Fatalf("do: %v", err)
	}
	if resp.StatusCode() != fasthttp.StatusBadRequest {
		t.Fatalf("bad body status = %d", resp.StatusCode())
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error without a service")
	}
}
