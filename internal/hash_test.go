package internal

import (
	"fmt"
	"testing"
)

func BenchmarkSHA256sum(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = SHA256sum("serialization", fmt.Sprintf(`{"text":"%d"}`, i))
	}
}

func BenchmarkFastHash(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = FastHash(fmt.Sprintf("numcaptcha-%d", i%255), "cookie-value")
	}
}

func TestSHA256sum(t *testing.T) {
	// echo -n "" | sha256sum
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

	if got := SHA256sum(""); got != empty {
		t.Errorf("wanted %s, got %s", empty, got)
	}

	if got := SHA256sum(); got != empty {
		t.Errorf("no parts: wanted %s, got %s", empty, got)
	}

	if SHA256sum("a") == SHA256sum("b") {
		t.Error("distinct inputs hashed to the same value")
	}

	if SHA256sum("ab", "c") == SHA256sum("a", "bc") {
		t.Error("part boundaries are not part of the hash")
	}
}

func TestFastHashCollisions(t *testing.T) {
	seen := map[string]string{}

	for _, pattern := range []string{
		"numcaptcha-%d-%d",
		"tombstone:10.0.%d.%d",
		"font:%d-%d",
	} {
		for i := 0; i < 5000; i++ {
			input := fmt.Sprintf(pattern, i, i%255)
			hash := FastHash(input)
			if existing, ok := seen[hash]; ok && existing != input {
				t.Errorf("collision: %q and %q both hash to %s", input, existing, hash)
			}
			seen[hash] = input
		}
	}

	t.Logf("hashed %d inputs without collisions", len(seen))
}

func TestFastHashFormat(t *testing.T) {
	for _, parts := range [][]string{{""}, {"short"}, {"numcaptcha-abc", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"}} {
		hash := FastHash(parts...)

		if len(hash) != 16 {
			t.Errorf("hash %q of %q is not 16 characters", hash, parts)
		}

		for _, char := range hash {
			if !((char >= '0' && char <= '9') || (char >= 'a' && char <= 'f')) {
				t.Errorf("non-hex character %c in hash %s", char, hash)
			}
		}
	}

	if FastHash("ab", "c") == FastHash("a", "bc") {
		t.Error("part boundaries are not part of the hash")
	}
}
