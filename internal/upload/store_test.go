package upload

import (
	"bytes"
	"errors"
	"mime/multipart"
	"os"
	"path/filepath"
	"testing"

	"github.com/regsense/assistant-gateway/internal/config"
)

func testConfig(t *testing.T) config.UploadsConfig {
	t.Helper()
	return config.UploadsConfig{
		Dir:               t.TempDir(),
		MaxFileSizeBytes:  1024,
		MaxFilesPerQuery:  3,
		AllowedExtensions: []string{".pdf", ".docx", ".txt", ".png", ".jpg", ".jpeg"},
	}
}

// makeHeaders builds real multipart file headers from name/content pairs.
func makeHeaders(t *testing.T, files map[string]string) []*multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := w.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		part.Write([]byte(content))
	}
	w.Close()

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(10 << 20)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["files"]
}

func TestStage_ValidFiles(t *testing.T) {
	store, err := NewStore(testConfig(t))
	if err != nil {
		t.Fatal(err)
	}

	headers := makeHeaders(t, map[string]string{
		"report.pdf": "pdf content",
		"notes.txt":  "some notes",
	})

	staged, rejected, err := store.Stage(headers)
	if err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	if len(rejected) != 0 {
		t.Errorf("unexpected rejections: %v", rejected)
	}
	if len(staged) != 2 {
		t.Fatalf("expected 2 staged files, got %d", len(staged))
	}

	for _, f := range staged {
		if _, err := os.Stat(f.Path); err != nil {
			t.Errorf("staged file %s missing on disk: %v", f.Name, err)
		}
		if f.Size == 0 {
			t.Errorf("staged file %s has zero size", f.Name)
		}
	}

	ReleaseAll(staged)
	for _, f := range staged {
		if _, err := os.Stat(f.Path); !os.IsNotExist(err) {
			t.Errorf("staged file %s not removed on release", f.Name)
		}
	}
}

func TestStage_RejectsDisallowedExtension(t *testing.T) {
	store, _ := NewStore(testConfig(t))

	headers := makeHeaders(t, map[string]string{
		"malware.exe": "nope",
		"fine.txt":    "ok",
	})

	staged, rejected, err := store.Stage(headers)
	if err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	defer ReleaseAll(staged)

	if len(staged) != 1 || staged[0].Name != "fine.txt" {
		t.Errorf("expected only fine.txt staged, got %v", stagedNames(staged))
	}
	if len(rejected) != 1 || rejected[0].Filename != "malware.exe" {
		t.Errorf("expected malware.exe rejected, got %v", rejected)
	}
}

func TestStage_RejectsOversizeFile(t *testing.T) {
	store, _ := NewStore(testConfig(t))

	big := make([]byte, 2048)
	headers := makeHeaders(t, map[string]string{
		"big.pdf": string(big),
	})

	staged, rejected, err := store.Stage(headers)
	if err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	defer ReleaseAll(staged)

	if len(staged) != 0 {
		t.Errorf("oversize file should not be staged")
	}
	if len(rejected) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(rejected))
	}
}

func TestStage_TooManyFiles(t *testing.T) {
	store, _ := NewStore(testConfig(t))

	headers := makeHeaders(t, map[string]string{
		"a.txt": "a", "b.txt": "b", "c.txt": "c", "d.txt": "d",
	})

	_, _, err := store.Stage(headers)
	if err == nil {
		t.Fatal("expected error when exceeding the per-request file count")
	}
	if !errors.Is(err, ErrTooManyFiles) {
		t.Errorf("expected ErrTooManyFiles, got %v", err)
	}
}

func TestRelease_Idempotent(t *testing.T) {
	store, _ := NewStore(testConfig(t))

	headers := makeHeaders(t, map[string]string{"doc.txt": "content"})
	staged, _, err := store.Stage(headers)
	if err != nil {
		t.Fatal(err)
	}

	f := staged[0]
	f.Release()
	f.Release() // second release must be a no-op
	ReleaseAll(staged)

	if _, err := os.Stat(f.Path); !os.IsNotExist(err) {
		t.Error("file should be gone after release")
	}
}

func TestRelease_NeverStagedHandle(t *testing.T) {
	f := &StagedFile{Name: "ghost.txt", Path: filepath.Join(t.TempDir(), "missing")}
	f.Release() // must not panic or error on a handle with no file behind it
}

func TestStage_CaseInsensitiveExtension(t *testing.T) {
	store, _ := NewStore(testConfig(t))

	headers := makeHeaders(t, map[string]string{"REPORT.PDF": "content"})
	staged, rejected, err := store.Stage(headers)
	if err != nil {
		t.Fatal(err)
	}
	defer ReleaseAll(staged)

	if len(staged) != 1 {
		t.Errorf("uppercase extension should be accepted, rejections: %v", rejected)
	}
}

func stagedNames(files []*StagedFile) []string {
	var names []string
	for _, f := range files {
		names = append(names, f.Name)
	}
	return names
}
