package bot

import (
	"testing"

	"github.com/m3rciful/refbot/internal/session"

	tele "gopkg.in/telebot.v4"
)

func TestDraftPreview(t *testing.T) {
	got := draftPreview(session.Draft{Kind: session.DraftText, Text: "hello"})
	if text, ok := got.(string); !ok || text != "hello" {
		t.Fatalf("text draft preview = %#v, want the staged text", got)
	}

	got = draftPreview(session.Draft{Kind: session.DraftPhoto, Text: "cap", MediaRef: "file-1"})
	photo, ok := got.(*tele.Photo)
	if !ok {
		t.Fatalf("photo draft preview = %#v, want *tele.Photo", got)
	}
	if photo.FileID != "file-1" || photo.Caption != "cap" {
		t.Fatalf("photo preview = %+v, want file-1 with caption cap", photo)
	}
}
