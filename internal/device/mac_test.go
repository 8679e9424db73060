package device

import "testing"

func TestNormalizeMAC(t *testing.T) {
	cases := map[string]string{
		"8c-85-90-12-34-56": "8C:85:90:12:34:56",
		"50:c7:bf:1:2:3":    "50:C7:BF:01:02:03",
		"50C7BF123456":      "50:C7:BF:12:34:56",
		"00:00:00:00:00:00": "",
		"invalid":           "",
		"":                  "",
	}
	for in, want := range cases {
		if got := NormalizeMAC(in); got != want {
			t.Fatalf("NormalizeMAC(%q): expected %q, got %q", in, want, got)
		}
	}
}
