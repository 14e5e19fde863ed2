package sanitize

import (
	"strings"
	"testing"

	"github.com/matryer/is"
)

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "안녕", want: "안녕"},
		{name: "url", in: "see https://example.com/x?y=1 now", want: "see link now"},
		{name: "custom emoji", in: "hi <:pepe:12345> <a:dance:999>", want: "hi pepe dance"},
		{name: "raw mentions", in: "<@123> <@!456> <@&789> <#42> hey", want: "hey"},
		{name: "markdown", in: "**bold** __under__ ||spoiler|| `code`", want: "bold under spoiler code"},
		{name: "block quote", in: "> quoted\n>>> more", want: "quoted more"},
		{name: "comparison", in: "a > b", want: "a > b"},
		{name: "repeats", in: "ㅋㅋㅋㅋㅋㅋㅋㅋㅋ", want: "ㅋㅋㅋㅋㅋ"},
		{name: "whitespace", in: "  a \n\t b  ", want: "a b"},
		{name: "empty", in: "<@1>", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			is.Equal(Text(tt.in), tt.want)
		})
	}
}

func TestTruncateCountsGraphemes(t *testing.T) {
	is := is.New(t)

	// each Hangul syllable is 3 bytes; the cap applies to characters, not bytes
	out, cut := Truncate("가나다라마", 3)
	is.True(cut)
	is.Equal(out, "가나다")

	// a flag is two code points but one grapheme
	out, cut = Truncate("🇰🇷🇰🇷🇰🇷", 2)
	is.True(cut)
	is.Equal(out, "🇰🇷🇰🇷")

	out, cut = Truncate("short", 10)
	is.True(!cut)
	is.Equal(out, "short")
}

func TestLength(t *testing.T) {
	is := is.New(t)
	is.Equal(Length("안녕"), 2)
	is.Equal(Length(strings.Repeat("a", 7)), 7)
}
