package logger

import "testing"

func TestSanitizeKVs(t *testing.T) {
	kv := sanitizeKVs([]interface{}{
		"api_key", "sk-live",
		"download_url", "https://cdn.example.com/v/abc.mp4?sig=xyz",
		"user_id", "u-1",
		"lesson", "1/0",
	})
	if len(kv) != 8 {
		t.Fatalf("unexpected kv length: %d", len(kv))
	}
	if kv[1] != "[REDACTED]" {
		t.Fatalf("api_key not redacted: %v", kv[1])
	}
	if kv[3] != "https://cdn.example.com/v/abc.mp4?[REDACTED]" {
		t.Fatalf("download_url query not stripped: %v", kv[3])
	}
	if s, _ := kv[5].(string); len(s) < 5 || s[:5] != "hash:" {
		t.Fatalf("user_id not hashed: %v", kv[5])
	}
	if kv[7] != "1/0" {
		t.Fatalf("plain value modified: %v", kv[7])
	}
}

func TestStripQueryLeavesPlainURL(t *testing.T) {
	if got := stripQuery("https://cdn.example.com/v/abc.mp4"); got != "https://cdn.example.com/v/abc.mp4" {
		t.Fatalf("stripQuery changed plain url: %q", got)
	}
}
