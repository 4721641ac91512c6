package domain

import (
	"errors"
	"testing"
)

func TestThankedID_StringAndParse(t *testing.T) {
	cases := []struct {
		in   string
		want ThankedID
	}{
		{"revision-42", RevisionID(42)},
		{"rev-42", RevisionID(42)},
		{"REV-7", RevisionID(7)},
		{"log-9", LogID(9)},
	}
	for _, tc := range cases {
		got, err := ParseThankedID(tc.in)
		if err != nil {
			t.Fatalf("ParseThankedID(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseThankedID(%q) = %+v; want %+v", tc.in, got, tc.want)
		}
	}
	if s := RevisionID(42).String(); s != "revision-42" {
		t.Fatalf("String() = %q", s)
	}
	if s := LogID(9).String(); s != "log-9" {
		t.Fatalf("String() = %q", s)
	}
}

func TestThankedID_RejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "revision", "revision-", "-5", "page-5", "log-0", "log--3", "log-x"} {
		if _, err := ParseThankedID(in); !errors.Is(err, ErrBadThankedID) {
			t.Fatalf("ParseThankedID(%q) err = %v; want ErrBadThankedID", in, err)
		}
	}
}

func TestThankedID_Valid(t *testing.T) {
	if !RevisionID(1).Valid() || !LogID(1).Valid() {
		t.Fatalf("positive ids should be valid")
	}
	if RevisionID(0).Valid() || LogID(-1).Valid() || (ThankedID{Kind: "page", ID: 3}).Valid() {
		t.Fatalf("zero/negative ids and unknown kinds must be invalid")
	}
}

func TestCanonicalThankedID(t *testing.T) {
	if got := CanonicalThankedID("rev-5"); got != "revision-5" {
		t.Fatalf("CanonicalThankedID(rev-5) = %q", got)
	}
	if got := CanonicalThankedID("garbage"); got != "garbage" {
		t.Fatalf("unparseable entries must pass through, got %q", got)
	}
}

func TestParseKind(t *testing.T) {
	if k, ok := ParseKind(" rev "); !ok || k != KindRevision {
		t.Fatalf("ParseKind(rev) = %q,%v", k, ok)
	}
	if k, ok := ParseKind("log"); !ok || k != KindLog {
		t.Fatalf("ParseKind(log) = %q,%v", k, ok)
	}
	if _, ok := ParseKind("edit"); ok {
		t.Fatalf("ParseKind(edit) should fail")
	}
}
