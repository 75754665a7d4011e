package manager

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"modelgate/pkg/types"
)

func TestSubprocessArgv_ExpandsTemplate(t *testing.T) {
	a := NewSubprocessAdapter(SubprocessConfig{
		Command:  "/usr/bin/python3 -m llama_cpp.server",
		Args:     "--model {model} --host {host} --port {port} --alias {id}",
		PortBase: 8000,
	}, zerolog.Nop(), nil).(*subprocessAdapter)

	desc := types.Model{ID: "acme/alpha", Path: "/models/acme/alpha.gguf"}
	port := a.portFor(2)
	if port != 8003 {
		t.Fatalf("port for slot 2: %d", port)
	}
	argv, err := a.argv(desc, port)
	if err != nil {
		t.Fatal(err)
	}
	want := "/usr/bin/python3 -m llama_cpp.server --model /models/acme/alpha.gguf --host 127.0.0.1 --port 8003 --alias acme/alpha"
	if got := strings.Join(argv, " "); got != want {
		t.Fatalf("argv\n got %q\nwant %q", got, want)
	}
}

func TestSubprocessArgv_EmptyCommand(t *testing.T) {
	a := NewSubprocessAdapter(SubprocessConfig{Command: "  "}, zerolog.Nop(), nil).(*subprocessAdapter)
	if _, err := a.argv(types.Model{ID: "x"}, 1); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestSubprocessConfig_Defaults(t *testing.T) {
	c := SubprocessConfig{}.withDefaults()
	if c.Host != "127.0.0.1" || c.MaxReadyAttempts != 100 || c.ReadyInterval <= 0 || c.StopTimeout <= 0 || c.CheckTimeout <= 0 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
}

func TestTailBuffer_KeepsLastBytes(t *testing.T) {
	b := newTailBuffer(8)
	_, _ = b.Write([]byte("hello "))
	_, _ = b.Write([]byte("world!"))
	if got := b.String(); got != "o world!" {
		t.Fatalf("tail: %q", got)
	}
}

func TestRenderPrompt(t *testing.T) {
	got := renderPrompt([]types.ChatMessage{
		{Role: "system", Content: "Be brief."},
		{Role: "user", Content: "Hi"},
	})
	want := "### System:\nBe brief.\n\n### User:\nHi\n\n### Assistant:\n"
	if got != want {
		t.Fatalf("prompt\n got %q\nwant %q", got, want)
	}
}

func TestSanityCheck(t *testing.T) {
	r := SanityCheck("subprocess", "sh -c true")
	if !r.OK() || r.BackendPath == "" {
		t.Fatalf("sh should be found: %+v", r)
	}
	r = SanityCheck("subprocess", "/definitely/not/here --flag")
	if r.OK() {
		t.Fatalf("missing binary reported OK")
	}
	r = SanityCheck("subprocess", "")
	if r.OK() {
		t.Fatalf("empty command reported OK")
	}
	r = SanityCheck("inprocess", "")
	if r.OK() != llamaBuilt {
		t.Fatalf("inprocess sanity=%v llamaBuilt=%v", r.OK(), llamaBuilt)
	}
}
