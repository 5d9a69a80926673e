package twiml_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	"tourism_assistant/internal/adapters/twiml"
)

func TestReply_Marshal(t *testing.T) {
	b, err := twiml.Reply("Rooms from 120 EUR & up <today>").Marshal()
	if err != nil {
		t.Fatal(err)
	}
	want := `<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
		`<Response><Message>Rooms from 120 EUR &amp; up &lt;today&gt;</Message></Response>`
	if string(b) != want {
		t.Fatalf("got\n%s\nwant\n%s", b, want)
	}
}

func TestWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := twiml.Write(rec, twiml.Reply("hi")); err != nil {
		t.Fatal(err)
	}
	if rec.Code != 200 || rec.Header().Get("Content-Type") != twiml.ContentType {
		t.Fatalf("unexpected response: %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "<Message>hi</Message>") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}
