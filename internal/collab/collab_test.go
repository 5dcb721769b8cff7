package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"

	"github.com/rfaga/storyteller/internal/asset"
	"github.com/rfaga/storyteller/internal/document"
	"github.com/rfaga/storyteller/internal/editor"
	"github.com/rfaga/storyteller/internal/game"
	"github.com/rfaga/storyteller/internal/render"
)

func testFactory(textures *render.MemoryTextures) SessionFactory {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return func(id string, surface render.Surface) *editor.Session {
		return editor.New(id,
			editor.WithRenderer(render.NewAdapter(surface, textures)),
			editor.WithLogger(logger),
		)
	}
}

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(testFactory(render.NewMemoryTextures()), time.Minute)
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func box(x float64) document.Object {
	return document.Object{Kind: document.KindProp, X: x, Y: 100, Width: 20, Height: 20}
}

// drain collects every message queued for a client without a connection.
func drain(c *Client) []Message {
	var out []Message
	for {
		select {
		case data := <-c.send:
			var m Message
			json.Unmarshal(data, &m)
			out = append(out, m)
		default:
			return out
		}
	}
}

func types(msgs []Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Type
	}
	return out
}

func TestRoomSerializesCommands(t *testing.T) {
	hub := newTestHub(t)
	room, err := hub.Create(context.Background(), []document.Object{box(0)})
	if err != nil {
		t.Fatal(err)
	}

	var id string
	room.View(context.Background(), func(s *editor.Session) { id = s.Objects()[0].ID })

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			room.Do(context.Background(), func(s *editor.Session) {
				obj := s.Objects()[0]
				s.Update(id, document.Move(obj.X+1, obj.Y))
			})
		}()
	}
	wg.Wait()

	var x float64
	room.View(context.Background(), func(s *editor.Session) { x = s.Objects()[0].X })
	if x != 50 {
		t.Errorf("x = %v, want 50", x)
	}
}

func TestRoomClosed(t *testing.T) {
	hub := newTestHub(t)
	room, _ := hub.Create(context.Background(), nil)
	room.Stop()

	if err := room.Do(context.Background(), func(*editor.Session) {}); !errors.Is(err, ErrRoomClosed) {
		t.Errorf("err = %v", err)
	}
}

func TestRoomSurvivesPanic(t *testing.T) {
	hub := newTestHub(t)
	room, _ := hub.Create(context.Background(), nil)

	room.Do(context.Background(), func(*editor.Session) { panic("bad command") })
	if err := room.Do(context.Background(), func(*editor.Session) {}); err != nil {
		t.Errorf("loop died after panic: %v", err)
	}
}

func TestHandleMessage(t *testing.T) {
	hub := newTestHub(t)
	room, _ := hub.Create(context.Background(), nil)
	c := NewClient(hub, room, nil, "c1")
	room.mu.Lock()
	room.clients[c.ClientID] = c
	room.mu.Unlock()

	send := func(typ string, payload interface{}) []Message {
		msg, _ := newMessage(typ, payload)
		room.handleMessage(context.Background(), c, msg)
		return drain(c)
	}

	send(TypeToolSelect, ToolSelectPayload{Tool: "drawRectangle"})
	send(TypePointerDown, PointerPayload{X: 10, Y: 10})
	msgs := send(TypePointerMove, PointerPayload{X: 50, Y: 30})
	if got := types(msgs); len(got) != 2 || got[0] != TypeRenderFrame {
		t.Fatalf("preview messages = %v", got)
	}
	var frame RenderFramePayload
	json.Unmarshal(msgs[0].Payload, &frame)
	if len(frame.Commands) != 1 || frame.Commands[0].Op != "overlay" {
		t.Errorf("preview frame = %+v", frame)
	}

	msgs = send(TypePointerUp, PointerPayload{X: 50, Y: 30})
	if got := types(msgs); len(got) != 3 || got[0] != TypeSceneChanged {
		t.Fatalf("draw messages = %v", got)
	}
	var change editor.Change
	json.Unmarshal(msgs[0].Payload, &change)
	if len(change.Objects) != 1 || !strings.Contains(change.GeneratedCode, "staticGroup") {
		t.Errorf("change = %+v", change)
	}
	var state editor.State
	json.Unmarshal(msgs[2].Payload, &state)
	if state.Tool != "select" || state.Selected != change.Objects[0].ID {
		t.Errorf("state = %+v", state)
	}

	msgs = send(TypeObjectDelete, nil)
	if got := types(msgs); len(got) == 0 || got[0] != TypeSceneChanged {
		t.Errorf("delete messages = %v", got)
	}

	for _, tt := range []struct {
		typ     string
		payload interface{}
	}{
		{"object.teleport", nil},
		{TypeToolSelect, ToolSelectPayload{Tool: "lasso"}},
		{TypeObjectUpdate, ObjectUpdatePayload{ID: "missing"}},
		{TypeObjectSelect, ObjectRefPayload{ID: "missing"}},
	} {
		msgs := send(tt.typ, tt.payload)
		if len(msgs) == 0 || msgs[len(msgs)-1].Type != TypeError {
			t.Errorf("%s: messages = %v, want trailing error", tt.typ, types(msgs))
		}
	}
}

func TestHubCompleteImport(t *testing.T) {
	hub := newTestHub(t)

	if _, err := hub.CompleteImport(context.Background(), "sess_missing", asset.Descriptor{}); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v", err)
	}

	room, _ := hub.Create(context.Background(), nil)
	obj, err := hub.CompleteImport(context.Background(), room.ID(), asset.Descriptor{TextureRef: "tex_1", Width: 10, Height: 20})
	if err != nil {
		t.Fatal(err)
	}
	if obj.Kind != document.KindCharacter || obj.TextureRef != "tex_1" {
		t.Errorf("object = %+v", obj)
	}
}

func TestHubNotifyGamesUpdated(t *testing.T) {
	hub := newTestHub(t)
	var clients []*Client
	for i := 0; i < 2; i++ {
		room, _ := hub.Create(context.Background(), nil)
		c := NewClient(hub, room, nil, fmt.Sprintf("c%d", i))
		room.mu.Lock()
		room.clients[c.ClientID] = c
		room.mu.Unlock()
		clients = append(clients, c)
	}

	hub.NotifyGamesUpdated("level1.json")

	for _, c := range clients {
		msgs := drain(c)
		if len(msgs) != 1 || msgs[0].Type != TypeGamesUpdated {
			t.Fatalf("%s got %v", c.ClientID, types(msgs))
		}
		var p GamesUpdatedPayload
		json.Unmarshal(msgs[0].Payload, &p)
		if p.File != "level1.json" {
			t.Errorf("file = %q", p.File)
		}
	}
}

func TestHubReapsIdleRooms(t *testing.T) {
	hub := NewHub(testFactory(render.NewMemoryTextures()), time.Minute)
	defer hub.Stop()
	room, _ := hub.Create(context.Background(), nil)

	hub.reap(time.Now())
	if hub.Len() != 1 {
		t.Fatal("fresh room reaped")
	}
	hub.reap(time.Now().Add(2 * time.Minute))
	if _, err := hub.Get(room.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("idle room kept: %v", err)
	}
}

type staticTokens struct{}

func (staticTokens) IssueToken(id string) (string, error) { return "tok:" + id, nil }

func (staticTokens) ValidateToken(tok string) (string, error) {
	if !strings.HasPrefix(tok, "tok:") {
		return "", errors.New("bad token")
	}
	return strings.TrimPrefix(tok, "tok:"), nil
}

func newTestServer(t *testing.T, hub *Hub, repo game.Repository, templateDir string) *httptest.Server {
	t.Helper()
	h := NewHandler(HandlerConfig{
		Hub:         hub,
		Tokens:      staticTokens{},
		Repo:        repo,
		Textures:    render.NewMemoryTextures(),
		TemplateDir: templateDir,
		Width:       160,
		Height:      120,
	})
	r := mux.NewRouter()
	r.HandleFunc("/api/sessions", h.Create).Methods(http.MethodPost)
	r.HandleFunc("/api/sessions/{id}", h.Get).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions/{id}/save", h.Save).Methods(http.MethodPost)
	r.HandleFunc("/api/sessions/{id}/load", h.Load).Methods(http.MethodPost)
	r.HandleFunc("/api/sessions/{id}/snapshot.png", h.Snapshot).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions/{id}/code", h.Code).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions/{id}/scene.yaml", h.Scene).Methods(http.MethodGet)
	r.HandleFunc("/ws/session/{id}", ServeWebSocket(hub, staticTokens{}, []string{"*"}))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func createSession(t *testing.T, srv *httptest.Server, template string) createResponse {
	t.Helper()
	resp := postJSON(t, srv.URL+"/api/sessions", `{"template":"`+template+`"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var cr createResponse
	json.NewDecoder(resp.Body).Decode(&cr)
	return cr
}

func TestSessionHTTP(t *testing.T) {
	templates := t.TempDir()
	os.WriteFile(filepath.Join(templates, "arena.yaml"), []byte("objects:\n  - kind: prop\n    x: 10\n    y: 10\n    width: 5\n    height: 5\n"), 0644)

	hub := newTestHub(t)
	repo := game.NewFileStore(t.TempDir())
	srv := newTestServer(t, hub, repo, templates)

	cr := createSession(t, srv, SampleTemplate)
	if cr.Token != "tok:"+cr.SessionID {
		t.Errorf("token = %q", cr.Token)
	}
	base := srv.URL + "/api/sessions/" + cr.SessionID

	resp, _ := http.Get(base)
	var st stateResponse
	json.NewDecoder(resp.Body).Decode(&st)
	resp.Body.Close()
	if len(st.Objects) != 3 || st.State.Tool != "select" {
		t.Errorf("state = %+v", st)
	}

	if resp := postJSON(t, base+"/save", `{"name":"demo"}`); resp.StatusCode != http.StatusOK {
		t.Fatalf("save status = %d", resp.StatusCode)
	}
	saved, err := repo.Get(context.Background(), "demo")
	if err != nil || len(saved.Objects) != 3 || saved.GeneratedCode == "" {
		t.Fatalf("saved = %+v, %v", saved, err)
	}

	arena := createSession(t, srv, "arena")
	arenaBase := srv.URL + "/api/sessions/" + arena.SessionID
	if resp := postJSON(t, arenaBase+"/load", `{"name":"demo"}`); resp.StatusCode != http.StatusOK {
		t.Fatalf("load status = %d", resp.StatusCode)
	}
	if resp := postJSON(t, arenaBase+"/load", `{"name":"nope"}`); resp.StatusCode != http.StatusNotFound {
		t.Errorf("load missing status = %d", resp.StatusCode)
	}

	resp, _ = http.Get(arenaBase + "/snapshot.png")
	img, err := png.Decode(resp.Body)
	resp.Body.Close()
	if err != nil || img.Bounds().Dx() != 160 {
		t.Errorf("snapshot: %v", err)
	}

	resp, _ = http.Get(arenaBase + "/code")
	code, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !bytes.Contains(code, []byte("// Ledge")) {
		t.Error("loaded scene not reflected in code")
	}

	resp, _ = http.Get(arenaBase + "/scene.yaml")
	objs, err := document.DecodeScene(resp.Body)
	resp.Body.Close()
	if err != nil || len(objs) != 3 {
		t.Errorf("scene.yaml = %d objects, %v", len(objs), err)
	}
}

func TestCreateRejectsTemplates(t *testing.T) {
	srv := newTestServer(t, newTestHub(t), game.NewFileStore(t.TempDir()), t.TempDir())
	for _, name := range []string{"../etc/passwd", "missing"} {
		resp := postJSON(t, srv.URL+"/api/sessions", `{"template":"`+name+`"}`)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("template %q status = %d", name, resp.StatusCode)
		}
	}
	if resp, _ := http.Get(srv.URL + "/api/sessions/sess_nope"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown session status = %d", resp.StatusCode)
	}
}

func TestWebSocket(t *testing.T) {
	hub := newTestHub(t)
	srv := newTestServer(t, hub, game.NewFileStore(t.TempDir()), t.TempDir())
	cr := createSession(t, srv, SampleTemplate)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/session/" + cr.SessionID
	if _, _, err := websocket.Dial(ctx, wsURL+"?token=tok:other", nil); err == nil {
		t.Fatal("dial with foreign token succeeded")
	}

	conn, _, err := websocket.Dial(ctx, wsURL+"?token="+cr.Token, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	read := func() Message {
		t.Helper()
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatal(err)
		}
		var m Message
		json.Unmarshal(data, &m)
		return m
	}

	welcome := read()
	if welcome.Type != TypeWelcome {
		t.Fatalf("first message = %s", welcome.Type)
	}
	var wp WelcomePayload
	json.Unmarshal(welcome.Payload, &wp)
	if len(wp.Objects) != 3 || len(wp.Frame) != 3 {
		t.Errorf("welcome = %d objects, %d commands", len(wp.Objects), len(wp.Frame))
	}

	msg, _ := newMessage(TypeObjectDelete, ObjectRefPayload{ID: wp.Objects[0].ID})
	data, _ := json.Marshal(msg)
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatal(err)
	}

	changed := read()
	if changed.Type != TypeSceneChanged {
		t.Fatalf("message = %s", changed.Type)
	}
	var ch editor.Change
	json.Unmarshal(changed.Payload, &ch)
	if len(ch.Objects) != 2 {
		t.Errorf("objects after delete = %d", len(ch.Objects))
	}
}
