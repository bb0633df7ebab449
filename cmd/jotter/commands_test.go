package main

import (
	"bytes"
	"testing"

	"github.com/starford/jotter/internal/noteservice"
)

func TestPrintKeywords(t *testing.T) {
	kws := []noteservice.KeywordCount{{Keyword: "alpha", Count: 3}, {Keyword: "beta", Count: 12}}

	var buf bytes.Buffer
	printKeywords(&buf, kws, false)
	if got := buf.String(); got != "alpha\nbeta\n" {
		t.Errorf("list = %q", got)
	}

	buf.Reset()
	printKeywords(&buf, kws, true)
	if got, want := buf.String(), "   3  alpha\n  12  beta\n"; got != want {
		t.Errorf("count = %q, want %q", got, want)
	}
}
