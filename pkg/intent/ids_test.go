package intent

import (
	"strings"
	"testing"
)

func TestNewUserID(t *testing.T) {
	id := NewUserID("web")
	if !strings.HasPrefix(id, "web_") {
		t.Errorf("id = %q, want web_ prefix", id)
	}
	if len(id) != len("web_")+6 {
		t.Errorf("id = %q, want 6 hex chars after prefix", id)
	}

	if def := NewUserID(""); !strings.HasPrefix(def, "user_") {
		t.Errorf("empty prefix id = %q, want user_ prefix", def)
	}

	if NewUserID("web") == NewUserID("web") {
		t.Error("consecutive ids should differ")
	}
}

func TestHashIdentifier(t *testing.T) {
	h1 := HashIdentifier("alice@example.com")
	h2 := HashIdentifier("alice@example.com")
	if h1 != h2 {
		t.Error("hash must be stable")
	}
	if len(h1) != 16 {
		t.Errorf("hash length = %d, want 16", len(h1))
	}
	if h1 == HashIdentifier("bob@example.com") {
		t.Error("distinct inputs should hash differently")
	}
}
