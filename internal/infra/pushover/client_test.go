package pushover_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"switchstack/internal/application"
	"switchstack/internal/infra/pushover"
)

type pushServer struct {
	*httptest.Server

	mu    sync.Mutex
	forms []url.Values
}

func newPushServer(t *testing.T, status int, body string) *pushServer {
	t.Helper()

	s := &pushServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		s.mu.Lock()
		s.forms = append(s.forms, r.PostForm)
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *pushServer) last(t *testing.T) url.Values {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.forms) == 0 {
		t.Fatal("no notification received")
	}
	return s.forms[len(s.forms)-1]
}

func TestClient_Notify(t *testing.T) {
	server := newPushServer(t, http.StatusOK, `{"status":1,"request":"abc"}`)
	client := pushover.NewClientWithURL("token", "user", server.URL)

	if err := client.Notify(context.Background(), application.MsgBackOnline); err != nil {
		t.Fatalf("Notify error: %v", err)
	}

	form := server.last(t)
	if got := form.Get("message"); got != application.MsgBackOnline {
		t.Errorf("message: got %s", got)
	}
	if got := form.Get("token"); got != "token" {
		t.Errorf("token: got %s, want token", got)
	}
	if got := form.Get("title"); got != "SwitchStack" {
		t.Errorf("title: got %s, want SwitchStack", got)
	}
	if got := form.Get("priority"); got != "0" {
		t.Errorf("priority: got %s, want 0", got)
	}
}

func TestClient_NotifyPriorityFollowsSeverity(t *testing.T) {
	server := newPushServer(t, http.StatusOK, `{"status":1}`)
	client := pushover.NewClientWithURL("token", "user", server.URL)

	tests := []struct {
		message  string
		priority string
		title    string
	}{
		{application.MsgReconnecting + "2...", "-1", "SwitchStack connection"},
		{application.MsgServerDisconnected, "-1", "SwitchStack connection"},
		{application.MsgReconnectExhausted, "1", "SwitchStack needs attention"},
		{application.MsgToggleRejected + "device offline", "1", "SwitchStack needs attention"},
		{"Room updated successfully", "0", "SwitchStack"},
	}

	for _, tt := range tests {
		if err := client.Notify(context.Background(), tt.message); err != nil {
			t.Fatalf("Notify(%q): %v", tt.message, err)
		}
		form := server.last(t)
		if got := form.Get("priority"); got != tt.priority {
			t.Errorf("%q priority: got %s, want %s", tt.message, got, tt.priority)
		}
		if got := form.Get("title"); got != tt.title {
			t.Errorf("%q title: got %s, want %s", tt.message, got, tt.title)
		}
	}
}

func TestClient_NotifyWithoutCredentialsIsNoop(t *testing.T) {
	client := pushover.NewClientWithURL("", "", "http://127.0.0.1:1")

	if err := client.Notify(context.Background(), "hello"); err != nil {
		t.Errorf("got %v, want nil", err)
	}
}

func TestClient_NotifyServerError(t *testing.T) {
	server := newPushServer(t, http.StatusBadRequest, `{"status":0,"errors":["user identifier is invalid"]}`)
	client := pushover.NewClientWithURL("token", "user", server.URL)

	err := client.Notify(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "user identifier is invalid") {
		t.Errorf("error: got %v", err)
	}
}
