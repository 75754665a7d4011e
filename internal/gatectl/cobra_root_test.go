package gatectl

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func run(t *testing.T, url string, args ...string) (string, error) {
	t.Helper()
	cmd := BuildRootCmd(&Config{URL: url, LogLvl: "error", Timeout: 5 * time.Second})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCmdModels(t *testing.T) {
	ts := fakeGateway(t, true)
	out, err := run(t, ts.URL, "models")
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	if !strings.Contains(out, "acme/alpha") || !strings.Contains(out, "2023-11-14T22:13:20Z") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestCmdChat(t *testing.T) {
	ts := fakeGateway(t, true)
	for _, stream := range []string{"--stream=true", "--stream=false"} {
		out, err := run(t, ts.URL, "chat", "acme/alpha", "--user", "hi", stream)
		if err != nil {
			t.Fatalf("chat %s: %v", stream, err)
		}
		if strings.TrimSpace(out) != "Hello" {
			t.Fatalf("chat %s: got %q", stream, out)
		}
	}
}

func TestCmdChatRequiresModel(t *testing.T) {
	if _, err := run(t, "http://127.0.0.1:1", "chat"); err == nil {
		t.Fatalf("expected arg error")
	}
}

func TestCmdWait(t *testing.T) {
	ts := fakeGateway(t, true)
	if _, err := run(t, ts.URL, "wait", "--every", "10ms"); err != nil {
		t.Fatalf("wait: %v", err)
	}
}
