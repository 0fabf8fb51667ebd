package chat_test

import (
	"testing"

	"github.com/bosley/chatrttm/chat"
)

func TestFormatter_Defaults(t *testing.T) {
	t.Parallel()

	f := chat.DefaultFormatter()
	tests := []struct {
		in   string
		want string
	}{
		{"&=yells hm .", "hm."},
		{"yeah [/] yeah [/] yeah .", "yeah yeah yeah."},
		{"oh nope +/.", "oh nope"},
		{"yyy .", ""},
		{"yeah we gotta [: have to] sit on the pee_pee pot .", "yeah we gotta sit on the pee pee pot."},
		{"yyy yyy yyy &=squeals !", ""},
		{"&=yells &=vocalizes .", ""},
		{"xxx do it .", "do it."},
		{"don('t)", "don't"},
		{"&+ba back", "back"},
		{"&-uh I want &~gaga it .", "I want it."},
		{"<I want> [/] I want cookie .", "I want cookie."},
		{"0is he going ?", "he going?"},
		{"bonjour@s:fra mommy .", "bonjour mommy."},
		{"it's café time !", "it's caf time!"},
		{"xxxl shirt .", "xxxl shirt."},
		{"the yyyy one xxx .", "the yyyy one."},
	}
	for _, tt := range tests {
		if got := f.Format(tt.in); got != tt.want {
			t.Errorf("Format(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatter_Switches(t *testing.T) {
	t.Parallel()

	shortenings := chat.DefaultFormatter()
	shortenings.Shortenings = true
	if got := shortenings.Format("goin(g) home ."); got != "goin home." {
		t.Errorf("Shortenings: got %q, want %q", got, "goin home.")
	}

	special := chat.DefaultFormatter()
	special.SpecialForms = true
	if got := special.Format("bonjour@s:fra mommy ."); got != "mommy." {
		t.Errorf("SpecialForms: got %q, want %q", got, "mommy.")
	}

	keepShort := chat.DefaultFormatter()
	keepShort.DiscardEmpty = false
	if got := keepShort.Format("hm ."); got != "hm." {
		t.Errorf("DiscardEmpty off: got %q, want %q", got, "hm.")
	}
	if got := keepShort.Format("yyy ."); got != "." {
		t.Errorf("DiscardEmpty off: got %q, want %q", got, ".")
	}
}
