package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alexflint/go-arg"
)

func newParser(t *testing.T, a *args) *arg.Parser {
	t.Helper()
	p, err := arg.NewParser(arg.Config{}, a)
	if err != nil {
		t.Fatalf("parser: %v", err)
	}
	return p
}

func TestRunWritesOutputFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.txt")
	output := filepath.Join(dir, "out.txt")
	cmds := "Insert(3508,24,10)\nInsert(4322,5,9)\nGetNextRide()\nInsert(3508,1,1)\nPrint(3508)\n"
	if err := os.WriteFile(input, []byte(cmds), 0o644); err != nil {
		t.Fatal(err)
	}

	a := args{Input: input, Output: output, LogLevel: "error"}
	if code := run(newParser(t, &a), a); code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	got, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	want := "(4322,5,9)\nDuplicate RideNumber\n"
	if string(got) != want {
		t.Fatalf("output mismatch:\nwant %q\ngot  %q", want, string(got))
	}
}

func TestRunMissingInput(t *testing.T) {
	dir := t.TempDir()
	a := args{Input: filepath.Join(dir, "nope.txt"), Output: filepath.Join(dir, "out.txt"), LogLevel: "error"}
	if code := run(newParser(t, &a), a); code == 0 {
		t.Fatal("expected non-zero exit for unreadable input")
	}
}
