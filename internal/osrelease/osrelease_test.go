package osrelease

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeRelease(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "os-release")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

func TestDetectFromUbuntu(t *testing.T) {
	path := writeRelease(t, `NAME="Ubuntu"
ID=ubuntu
ID_LIKE=debian
VERSION_ID="22.04"
PRETTY_NAME="Ubuntu 22.04.4 LTS"
`)

	profile, err := DetectFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.ID != "ubuntu" {
		t.Errorf("expected id ubuntu, got %q", profile.ID)
	}
	if len(profile.IDLike) != 1 || profile.IDLike[0] != "debian" {
		t.Errorf("expected id_like [debian], got %v", profile.IDLike)
	}
	if profile.VersionID != "22.04" {
		t.Errorf("expected version 22.04, got %q", profile.VersionID)
	}
}

func TestDetectFromSplitsIDLike(t *testing.T) {
	path := writeRelease(t, `ID=rocky
ID_LIKE="rhel centos fedora"
VERSION_ID="9.3"
`)

	profile, err := DetectFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"rhel", "centos", "fedora"}
	if len(profile.IDLike) != len(want) {
		t.Fatalf("expected %v, got %v", want, profile.IDLike)
	}
	for i, like := range want {
		if profile.IDLike[i] != like {
			t.Errorf("id_like[%d]: expected %q, got %q", i, like, profile.IDLike[i])
		}
	}
}

func TestDetectFromMissingFileIsUnsupported(t *testing.T) {
	_, err := DetectFrom(filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, ErrUnsupportedPlatform) {
		t.Fatalf("expected ErrUnsupportedPlatform, got %v", err)
	}
}

func TestDetectFromMissingIDIsUnsupported(t *testing.T) {
	path := writeRelease(t, "NAME=Mystery\n")
	_, err := DetectFrom(path)
	if !errors.Is(err, ErrUnsupportedPlatform) {
		t.Fatalf("expected ErrUnsupportedPlatform, got %v", err)
	}
}

func TestDetectFromLowercasesID(t *testing.T) {
	path := writeRelease(t, "ID=Debian\n")
	profile, err := DetectFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.ID != "debian" {
		t.Errorf("expected lowercased id, got %q", profile.ID)
	}
}
