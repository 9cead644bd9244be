package randx

import (
	"strings"
	"testing"
)

func TestRoomCodeShape(t *testing.T) {
	seen := make(map[string]struct{})

	for i := 0; i < 50; i++ {
		code, err := RoomCode()
		if err != nil {
			t.Fatalf("RoomCode: %v", err)
		}
		if !IsValidRoomCode(code) {
			t.Fatalf("generated code %q fails its own validation", code)
		}
		seen[code] = struct{}{}
	}

	// 50 draws from a 62^6 space colliding down to a handful would mean
	// the generator is broken.
	if len(seen) < 45 {
		t.Fatalf("only %d distinct codes out of 50", len(seen))
	}
}

func TestGuestID(t *testing.T) {
	id, err := GuestID()
	if err != nil {
		t.Fatalf("GuestID: %v", err)
	}

	if !strings.HasPrefix(id, GuestIDPrefix) {
		t.Fatalf("id = %q, want %q prefix", id, GuestIDPrefix)
	}
	raw := strings.TrimPrefix(id, GuestIDPrefix)
	if len(raw) != guestIDRawLength {
		t.Fatalf("random part %q has length %d", raw, len(raw))
	}
	for _, char := range raw {
		if !strings.ContainsRune(Base62Chars, char) {
			t.Fatalf("id %q contains non-base62 character %q", id, char)
		}
	}
}

func TestGuestNickname(t *testing.T) {
	name, err := GuestNickname()
	if err != nil {
		t.Fatalf("GuestNickname: %v", err)
	}
	if !strings.HasPrefix(name, "Guest_") {
		t.Fatalf("nickname = %q", name)
	}
}

func TestMessageIDDistinct(t *testing.T) {
	if MessageID() == MessageID() {
		t.Fatalf("MessageID returned duplicates")
	}
}

func TestIsValidRoomCode(t *testing.T) {
	cases := []struct {
		code string
		want bool
	}{
		{"Abc123", true},
		{"000000", true},
		{"abc12", false},
		{"abc1234", false},
		{"abc 12", false},
		{"abc-12", false},
		{"", false},
	}

	for _, tc := range cases {
		if got := IsValidRoomCode(tc.code); got != tc.want {
			t.Fatalf("IsValidRoomCode(%q) = %v, want %v", tc.code, got, tc.want)
		}
	}
}
