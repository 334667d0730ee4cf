package memblob

import (
	"context"
	"testing"
)

func TestResolveURL(t *testing.T) {
	t.Parallel()

	s := New()
	s.Put("img-1", "https://blobs.test/img-1")

	url, ok, err := s.ResolveURL(context.Background(), "img-1")
	if err != nil || !ok {
		t.Fatalf("ResolveURL: ok=%v err=%v", ok, err)
	}
	if url != "https://blobs.test/img-1" {
		t.Errorf("url = %q", url)
	}

	if _, ok, _ := s.ResolveURL(context.Background(), "missing"); ok {
		t.Error("ResolveURL(missing) = ok")
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()

	s := New()
	s.Put("img-1", "https://blobs.test/img-1")
	s.Delete("img-1")

	if _, ok, _ := s.ResolveURL(context.Background(), "img-1"); ok {
		t.Error("reference survived Delete")
	}

	// Deleting an absent ref is a no-op.
	s.Delete("img-1")
}

func TestPut_Overwrite(t *testing.T) {
	t.Parallel()

	s := New()
	s.Put("img-1", "https://blobs.test/old")
	s.Put("img-1", "https://blobs.test/new")

	url, ok, _ := s.ResolveURL(context.Background(), "img-1")
	if !ok || url != "https://blobs.test/new" {
		t.Errorf("url = %q ok=%v, want latest write", url, ok)
	}
}
