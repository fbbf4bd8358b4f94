package tts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type dashScopeFrame struct {
	Header  dashScopeHeader `json:"header"`
	Payload json.RawMessage `json:"payload"`
}

// fakeDashScope serves one synthesis task. fail makes it reject the task
// instead of starting it.
func fakeDashScope(t *testing.T, fail bool, frames chan<- dashScopeFrame) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "bearer ds-key" {
			t.Errorf("Authorization = %q", auth)
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		read := func() dashScopeFrame {
			var f dashScopeFrame
			if err := conn.ReadJSON(&f); err != nil {
				t.Errorf("read frame: %v", err)
			}
			frames <- f
			return f
		}
		event := func(taskID, name string, extra ...string) {
			h := map[string]string{"task_id": taskID, "event": name}
			if len(extra) == 2 {
				h["error_code"], h["error_message"] = extra[0], extra[1]
			}
			conn.WriteJSON(map[string]interface{}{"header": h, "payload": map[string]interface{}{}})
		}

		run := read()
		if fail {
			event(run.Header.TaskID, "task-failed", "InvalidParameter", "voice not found")
			return
		}
		event(run.Header.TaskID, "task-started")
		read()
		read()
		conn.WriteMessage(websocket.BinaryMessage, []byte("RIFF"))
		conn.WriteMessage(websocket.BinaryMessage, []byte("data"))
		event(run.Header.TaskID, "result-generated")
		event(run.Header.TaskID, "task-finished")
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestAliyunSynthesize(t *testing.T) {
	frames := make(chan dashScopeFrame, 3)
	srv := fakeDashScope(t, false, frames)
	defer srv.Close()

	cfg := testConfig()
	cfg.Providers.Aliyun.BaseURL = wsURL(srv)
	a, _ := NewAliyunProvider(cfg)

	res := a.Synthesize(context.Background(), "你好 <strong>世界</strong>", VoiceProfile{
		VoiceID: "longwan_v2",
		Speed:   3,
		Gain:    0,
	}, FormatAAC)
	if !res.OK {
		t.Fatalf("Synthesize failed: %s", res.Error())
	}
	if string(res.Audio) != "RIFFdata" || res.Format != FormatWAV {
		t.Errorf("unexpected result %s %q", res.Format, res.Audio)
	}

	run := <-frames
	if run.Header.Action != "run-task" || run.Header.Streaming != "duplex" || run.Header.TaskID == "" {
		t.Errorf("run-task header = %+v", run.Header)
	}
	var payload dashScopeRunPayload
	if err := json.Unmarshal(run.Payload, &payload); err != nil {
		t.Fatal(err)
	}
	p := payload.Parameters
	if payload.Model != "cosyvoice-v2" || p.Voice != "longwan_v2" || p.Format != "wav" {
		t.Errorf("run-task payload = %+v", payload)
	}
	if p.Rate != 2.0 || p.Volume != 50 || p.SampleRate != 22050 {
		t.Errorf("parameters not mapped: rate %v volume %d sample rate %d", p.Rate, p.Volume, p.SampleRate)
	}

	cont := <-frames
	if cont.Header.Action != "continue-task" || cont.Header.TaskID != run.Header.TaskID {
		t.Errorf("continue-task header = %+v", cont.Header)
	}
	var text dashScopeTextPayload
	json.Unmarshal(cont.Payload, &text)
	if text.Input.Text != "你好 <strong>世界</strong>" {
		t.Errorf("text = %q, want markup forwarded", text.Input.Text)
	}

	if finish := <-frames; finish.Header.Action != "finish-task" {
		t.Errorf("last frame = %+v", finish.Header)
	}
}

func TestAliyunTaskFailed(t *testing.T) {
	frames := make(chan dashScopeFrame, 3)
	srv := fakeDashScope(t, true, frames)
	defer srv.Close()

	cfg := testConfig()
	cfg.Providers.Aliyun.BaseURL = wsURL(srv)
	a, _ := NewAliyunProvider(cfg)

	res := a.Synthesize(context.Background(), "hello", VoiceProfile{}, FormatWAV)
	if res.OK || !strings.Contains(res.Error(), "voice not found") {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestAliyunContextTimeout(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		// Never answer run-task
		conn.ReadMessage()
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Providers.Aliyun.BaseURL = wsURL(srv)
	a, _ := NewAliyunProvider(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	res := a.Synthesize(ctx, "hello", VoiceProfile{}, FormatWAV)
	if res.OK {
		t.Fatal("expected failure on timeout")
	}
	if time.Since(start) > 900*time.Millisecond {
		t.Errorf("Synthesize did not honor the deadline")
	}
}

func TestAliyunUnknownModelFallsBack(t *testing.T) {
	frames := make(chan dashScopeFrame, 3)
	srv := fakeDashScope(t, false, frames)
	defer srv.Close()

	cfg := testConfig()
	cfg.Providers.Aliyun.BaseURL = wsURL(srv)
	a, _ := NewAliyunProvider(cfg)

	res := a.Synthesize(context.Background(), "hello", VoiceProfile{Model: "cosyvoice-v9"}, FormatWAV)
	if !res.OK {
		t.Fatalf("Synthesize failed: %s", res.Error())
	}

	var payload dashScopeRunPayload
	if err := json.Unmarshal((<-frames).Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Model != "cosyvoice-v2" {
		t.Errorf("model = %q, want cosyvoice-v2", payload.Model)
	}
	if payload.Parameters.Voice != "longxiaochun_v2" {
		t.Errorf("voice = %q, want default", payload.Parameters.Voice)
	}
}
