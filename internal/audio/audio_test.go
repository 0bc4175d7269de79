package audio

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/bobarin/placeguide/internal/models"
)

func TestConcatPreservesOrder(t *testing.T) {
	chunks := []models.AudioChunk{[]byte("ab"), nil, []byte("cd"), []byte("e")}
	if got := string(Concat(chunks)); got != "abcde" {
		t.Errorf("Concat = %q, want abcde", got)
	}
	if got := Concat(nil); len(got) != 0 {
		t.Errorf("Concat(nil) should be empty, got %d bytes", len(got))
	}
}

func TestDataURI(t *testing.T) {
	payload := []byte{0xff, 0xfb, 0x90, 0x00, 0x01}
	uri := DataURI(payload)

	if !strings.HasPrefix(uri, "data:audio/mp3;base64,") {
		t.Fatalf("unexpected prefix: %s", uri)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, DataURIPrefix))
	if err != nil {
		t.Fatalf("payload is not valid base64: %v", err)
	}
	if string(decoded) != string(payload) {
		t.Errorf("decoded payload mismatch: %x", decoded)
	}
}

func TestDurationRejectsGarbage(t *testing.T) {
	if _, err := Duration(nil); err == nil {
		t.Error("expected error for empty audio")
	}
	if _, err := Duration([]byte("not an mp3 stream at all")); err == nil {
		t.Error("expected error for non-mp3 data")
	}
}
