package logger

import "testing"

func TestSanitizeKVsRedactsSecrets(t *testing.T) {
	kv := sanitizeKVs([]interface{}{
		"admin_token", "abc",
		"postgres_dsn", "postgres://u:p@h/db",
		"inserted", 3,
		"dangling",
	})
	if len(kv) != 7 {
		t.Fatalf("unexpected length: %d", len(kv))
	}
	if kv[1] != redacted || kv[3] != redacted {
		t.Fatalf("expected secrets to be redacted, got %v", kv)
	}
	if kv[5] != 3 {
		t.Fatalf("expected plain value to pass through, got %v", kv[5])
	}
	if kv[6] != "dangling" {
		t.Fatalf("expected trailing key kept, got %v", kv[6])
	}
}

func TestSanitizeValueNestedMap(t *testing.T) {
	got := sanitizeValue("headers", map[string]interface{}{"Cookie": "x", "Accept": "text/html"})
	m, ok := got.(map[string]interface{})
	if !ok {
		t.Fatalf("expected map, got %T", got)
	}
	if m["Cookie"] != redacted {
		t.Fatalf("cookie not redacted: %v", m["Cookie"])
	}
	if m["Accept"] != "text/html" {
		t.Fatalf("accept changed: %v", m["Accept"])
	}
}
