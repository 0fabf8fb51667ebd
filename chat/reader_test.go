package chat_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bosley/chatrttm/chat"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFromDir_Recursive(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.cha"), sampleCHAT())
	writeFile(t, filepath.Join(dir, "sub", "b.cha"), sampleCHAT())
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")

	r, err := chat.FromDir(dir)
	if err != nil {
		t.Fatalf("FromDir returned error: %v", err)
	}
	if got := strings.Join(r.IDs(), ","); got != "a,sub/b" {
		t.Errorf("IDs()=%q, want %q", got, "a,sub/b")
	}
	b, ok := r.Get("sub/b")
	if !ok {
		t.Fatal("sub/b not found")
	}
	if b.ID != "sub/b" {
		t.Errorf("transcript ID=%q, want sub/b", b.ID)
	}
}

func TestFromDir_SkipsAndReportsMalformed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "good.cha"), sampleCHAT())
	writeFile(t, filepath.Join(dir, "corrupt.cha"), "\xff\xfe\x00garbage")

	r, err := chat.FromDir(dir)
	if r == nil {
		t.Fatalf("FromDir returned nil reader, err=%v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("Len()=%d, want 1", r.Len())
	}
	if _, ok := r.Get("good"); !ok {
		t.Error("good transcript missing")
	}

	var batch *chat.BatchError
	if !errors.As(err, &batch) {
		t.Fatalf("error %v is not a *BatchError", err)
	}
	if len(batch.Failures) != 1 {
		t.Fatalf("got %d failures, want 1", len(batch.Failures))
	}

	var fe *chat.FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("error %v does not expose a *FormatError", err)
	}
	if filepath.Base(fe.Path) != "corrupt.cha" {
		t.Errorf("failure path=%q, want corrupt.cha", fe.Path)
	}
	if !errors.Is(err, chat.ErrMalformed) {
		t.Error("batch error does not wrap ErrMalformed")
	}
}

func TestFromDir_AllMalformed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "x.cha"), "nothing here")

	r, err := chat.FromDir(dir)
	if r != nil {
		t.Errorf("reader = %v, want nil", r)
	}
	if !errors.Is(err, chat.ErrNoTranscripts) {
		t.Errorf("error %v does not wrap ErrNoTranscripts", err)
	}
	var batch *chat.BatchError
	if !errors.As(err, &batch) {
		t.Errorf("error %v does not carry the failures", err)
	}
}

func TestFromDir_Empty(t *testing.T) {
	t.Parallel()

	_, err := chat.FromDir(t.TempDir())
	if !errors.Is(err, chat.ErrNoTranscripts) {
		t.Errorf("error %v does not wrap ErrNoTranscripts", err)
	}
}

func TestFromDir_MissingDir(t *testing.T) {
	t.Parallel()

	_, err := chat.FromDir(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error %v does not wrap os.ErrNotExist", err)
	}
}

func TestNewReader_Empty(t *testing.T) {
	t.Parallel()

	if _, err := chat.NewReader(nil); !errors.Is(err, chat.ErrNoTranscripts) {
		t.Errorf("error %v, want ErrNoTranscripts", err)
	}
}

func TestSaveRTTMs_Format(t *testing.T) {
	t.Parallel()

	r, err := chat.NewReader(map[string]*chat.Transcript{
		"a": {ID: "a", Turns: []chat.Turn{
			{Speaker: "CHI", Start: 1.23, End: 4.56},
			{Speaker: "CHI", Start: 4.56, End: 5.0},
			{Speaker: "MOT", Start: 0.5, End: 1.0},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "nested", "rttm")
	if err := r.SaveRTTMs(out); err != nil {
		t.Fatalf("SaveRTTMs returned error: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(out, "a.rttm"))
	if err != nil {
		t.Fatal(err)
	}
	// Duration, not end time; file order; adjacent CHI turns stay separate.
	want := "SPEAKER a 1 1.230 3.330 <NA> <NA> CHI <NA> <NA>\n" +
		"SPEAKER a 1 4.560 0.440 <NA> <NA> CHI <NA> <NA>\n" +
		"SPEAKER a 1 0.500 0.500 <NA> <NA> MOT <NA> <NA>\n"
	if string(got) != want {
		t.Errorf("rttm contents:\n%s\nwant:\n%s", got, want)
	}
}

func TestSaveRTTMs_Idempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "cha", "one.cha"), sampleCHAT())
	writeFile(t, filepath.Join(dir, "cha", "deep", "two.cha"), sampleCHAT())

	r, err := chat.FromDir(filepath.Join(dir, "cha"))
	if err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "rttm")
	read := func() map[string][]byte {
		files := map[string][]byte{}
		for _, name := range []string{"one.rttm", filepath.Join("deep", "two.rttm")} {
			b, err := os.ReadFile(filepath.Join(out, name))
			if err != nil {
				t.Fatal(err)
			}
			files[name] = b
		}
		return files
	}

	if err := r.SaveRTTMs(out); err != nil {
		t.Fatal(err)
	}
	first := read()
	if err := r.SaveRTTMs(out); err != nil {
		t.Fatal(err)
	}
	second := read()

	for name, b := range first {
		if !bytes.Equal(b, second[name]) {
			t.Errorf("%s changed between saves", name)
		}
	}
	nested := first[filepath.Join("deep", "two.rttm")]
	if !bytes.HasPrefix(nested, []byte("SPEAKER two 1 ")) {
		t.Errorf("nested rttm should carry the file stem: %s", nested)
	}
	if bytes.Contains(nested, []byte("deep")) {
		t.Errorf("nested rttm leaks its directory: %s", nested)
	}
}

func TestSaveRTTMs_UnwritableDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	writeFile(t, blocker, "not a directory")

	r, err := chat.NewReader(map[string]*chat.Transcript{
		"a": {ID: "a", Turns: []chat.Turn{{Speaker: "A", Start: 0, End: 1}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.SaveRTTMs(blocker); err == nil {
		t.Fatal("expected error writing below a regular file, got nil")
	}
}

func TestFromDir_SymlinkedRoot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "real", "a.cha"), sampleCHAT())
	writeFile(t, filepath.Join(dir, "real", "sub", "b.cha"), sampleCHAT())
	link := filepath.Join(dir, "link")
	if err := os.Symlink(filepath.Join(dir, "real"), link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	r, err := chat.FromDir(link)
	if err != nil {
		t.Fatalf("FromDir returned error: %v", err)
	}
	if got := strings.Join(r.IDs(), ","); got != "a,sub/b" {
		t.Errorf("IDs()=%q, want %q", got, "a,sub/b")
	}
}
