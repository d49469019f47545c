package language

import "testing"

func TestToISO2(t *testing.T) {
	cases := map[string]string{
		"eng":     "en",
		"GER":     "de",
		"fre":     "fr",
		" ja ":    "ja",
		"english": "en",
		"xx":      "xx",
		"und":     "",
		"klingon": "",
		"":        "",
	}
	for in, want := range cases {
		if got := ToISO2(in); got != want {
			t.Fatalf("ToISO2(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	cases := map[string]string{
		"eng": "English",
		"dut": "Dutch",
		"und": "Unknown",
		"":    "Unknown",
		"tlh": "TLH",
	}
	for in, want := range cases {
		if got := DisplayName(in); got != want {
			t.Fatalf("DisplayName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFromTags(t *testing.T) {
	if got := FromTags(map[string]string{"LANGUAGE": " ENG\x00"}); got != "eng" {
		t.Fatalf("unexpected language %q", got)
	}
	if got := FromTags(nil); got != "" {
		t.Fatalf("expected empty language, got %q", got)
	}
}
