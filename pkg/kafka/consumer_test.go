package kafka

import "testing"

type runEvent struct {
	RunID     string `json:"run_id"`
	IndexName string `json:"index_name"`
}

func TestDecodeJSON(t *testing.T) {
	got, err := DecodeJSON[runEvent]([]byte(`{"run_id":"abc","index_name":"main_index"}`))
	if err != nil {
		t.Fatal(err)
	}
	if got.RunID != "abc" || got.IndexName != "main_index" {
		t.Fatalf("got %+v", got)
	}
	if _, err := DecodeJSON[runEvent]([]byte("{")); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
}
