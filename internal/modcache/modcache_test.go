package modcache

import (
	"crypto/sha256"
	"testing"
)

func TestPutGetRoundTrip(t *testing.T) {
	cache, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	key := sha256.Sum256([]byte("fn main() -> Int { 0 }"))
	want := &Payload{
		Path:            "main.kooix",
		Broken:          true,
		ErrorCount:      2,
		WarningCount:    1,
		FirstDiagnostic: "something went wrong",
	}
	if err := cache.Put(key, want); err != nil {
		t.Fatal(err)
	}

	got, ok := cache.Get(key)
	if !ok {
		t.Fatal("cache miss after put")
	}
	if got.Path != want.Path || !got.Broken || got.ErrorCount != 2 || got.FirstDiagnostic != want.FirstDiagnostic {
		t.Fatalf("payload = %+v", got)
	}
}

func TestMissOnUnknownKey(t *testing.T) {
	cache, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	key := sha256.Sum256([]byte("never stored"))
	if _, ok := cache.Get(key); ok {
		t.Fatal("unexpected hit")
	}
}

func TestNilCacheIsInert(t *testing.T) {
	var cache *Cache
	key := sha256.Sum256([]byte("x"))
	if _, ok := cache.Get(key); ok {
		t.Fatal("nil cache hit")
	}
	if err := cache.Put(key, &Payload{}); err != nil {
		t.Fatal("nil cache put errored")
	}
}
