package mysql

import (
	"crypto/sha1"
	"crypto/sha256"
	"testing"
)

func TestScrambleNativePasswordEmpty(t *testing.T) {
	if got := scrambleNativePassword([]byte("12345678901234567890"), nil); got != nil {
		t.Errorf("expected nil for empty password, got %x", got)
	}
}

func TestScrambleNativePasswordProperty(t *testing.T) {
	seed := []byte("01234567890123456789")
	password := []byte("s3cr3t")

	got := scrambleNativePassword(seed, password)
	if len(got) != sha1.Size {
		t.Fatalf("len(got) = %d, want %d", len(got), sha1.Size)
	}

	stage1 := sha1.Sum(password)
	stage2 := sha1.Sum(stage1[:])
	h := sha1.New()
	h.Write(seed)
	h.Write(stage2[:])
	mixed := h.Sum(nil)

	// scrambleNativePassword XOR mixed must recover stage1, since the
	// scramble is defined as stage1 XOR SHA1(seed + SHA1(SHA1(password))).
	for i := range got {
		if got[i]^mixed[i] != stage1[i] {
			t.Fatalf("scramble does not XOR back to SHA1(password) at byte %d", i)
		}
	}
}

func TestScrambleNativePasswordDeterministic(t *testing.T) {
	seed := []byte("aaaaaaaaaaaaaaaaaaaa")
	a := scrambleNativePassword(seed, []byte("pw"))
	b := scrambleNativePassword(seed, []byte("pw"))
	if string(a) != string(b) {
		t.Error("scrambleNativePassword is not deterministic")
	}
}

func TestScrambleCachingSHA2PasswordProperty(t *testing.T) {
	seed := []byte("01234567890123456789")
	password := []byte("s3cr3t")

	got := scrambleCachingSHA2Password(seed, password)
	if len(got) != sha256.Size {
		t.Fatalf("len(got) = %d, want %d", len(got), sha256.Size)
	}

	stage1 := sha256.Sum256(password)
	stage2 := sha256.Sum256(stage1[:])
	h := sha256.New()
	h.Write(stage2[:])
	h.Write(seed)
	mixed := h.Sum(nil)

	for i := range got {
		if got[i]^mixed[i] != stage1[i] {
			t.Fatalf("scramble does not XOR back to SHA256(password) at byte %d", i)
		}
	}
}

func TestScrambleOldPasswordLength(t *testing.T) {
	seed := []byte("12345678")
	got := scrambleOldPassword(seed, []byte("pw"))
	if len(got) != len(seed) {
		t.Fatalf("len(got) = %d, want %d", len(got), len(seed))
	}
	if scrambleOldPassword(seed, nil) != nil {
		t.Error("expected nil for empty password")
	}
}

func TestXorBytesWraps(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5}
	seed := []byte{0xff, 0x00}
	got := xorBytes(data, seed)
	want := []byte{1 ^ 0xff, 2, 3 ^ 0xff, 4, 5 ^ 0xff}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("xorBytes[%d] = %x, want %x", i, got[i], want[i])
		}
	}
}

func TestScrambleEd25519PasswordDeterministic(t *testing.T) {
	seed := []byte("01234567890123456789")
	a, err := scrambleEd25519Password(seed, []byte("s3cret"))
	if err != nil {
		t.Fatalf("scrambleEd25519Password: %v", err)
	}
	if len(a) != 64 {
		t.Fatalf("len(sig) = %d, want 64", len(a))
	}
	b, err := scrambleEd25519Password(seed, []byte("s3cret"))
	if err != nil {
		t.Fatalf("scrambleEd25519Password: %v", err)
	}
	if string(a) != string(b) {
		t.Error("expected deterministic signature for same seed/password")
	}
}

func TestScrambleEd25519PasswordVariesBySeed(t *testing.T) {
	a, err := scrambleEd25519Password([]byte("seed-one-0123456789"), []byte("s3cret"))
	if err != nil {
		t.Fatalf("scrambleEd25519Password: %v", err)
	}
	b, err := scrambleEd25519Password([]byte("seed-two-0123456789"), []byte("s3cret"))
	if err != nil {
		t.Fatalf("scrambleEd25519Password: %v", err)
	}
	if string(a) == string(b) {
		t.Error("expected different signatures for different seeds")
	}
}
