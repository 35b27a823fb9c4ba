package beats

import (
	"reflect"
	"testing"
)

func TestTokenizeWords(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []string
	}{
		{"simple", "hello world", []string{"hello", "world"}},
		{"punctuation", "wait, stop!", []string{"wait", ",", "stop", "!"}},
		{"digits", "over 9000 points", []string{"over", "9000", "points"}},
		{"empty", "   ", nil},
		{"accented", "déjà vu", []string{"déjà", "vu"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Tokenize(tc.text, "")
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestTokenizePerCharacterScripts(t *testing.T) {
	got := Tokenize("你好 世界", "")
	want := []string{"你", "好", "世", "界"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CJK tokenize = %v, want %v", got, want)
	}

	got = Tokenize("さようなら", "")
	if len(got) != 5 {
		t.Errorf("expected 5 hiragana tokens, got %v", got)
	}

	got = Tokenize("สวัสดี", "")
	if len(got) == 0 {
		t.Errorf("expected Thai text tokenized per character, got none")
	}
}

func TestTokenizeLangHintForcesPerCharacter(t *testing.T) {
	// Latin text with a zh hint still tokenizes per character.
	got := Tokenize("ab cd", "zh")
	want := []string{"a", "b", "c", "d"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("hinted tokenize = %v, want %v", got, want)
	}

	// Regioned hints normalize to the base language.
	got = Tokenize("ab", "ja-JP")
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("ja-JP hint tokenize = %v", got)
	}

	// Non-CJK hints keep word tokenization.
	got = Tokenize("ab cd", "fr")
	if !reflect.DeepEqual(got, []string{"ab", "cd"}) {
		t.Errorf("fr hint tokenize = %v", got)
	}
}
