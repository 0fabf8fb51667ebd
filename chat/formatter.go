package chat

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const wordChars = `[A-Za-z0-9:]+`

var (
	rePhonological = regexp.MustCompile(`&\+` + wordChars)
	reFillers      = regexp.MustCompile(`&-` + wordChars)
	reNonwords     = regexp.MustCompile(`&~` + wordChars)
	reEvents       = regexp.MustCompile(`&=` + wordChars)
	reOmitted      = regexp.MustCompile(`(^|\s)0[A-Za-z:]+`)
	reTerminators  = regexp.MustCompile(`\+[^\s\\]+`)
	reBrackets     = regexp.MustCompile(`\[.*?\]`)
	reScopes       = regexp.MustCompile(`<.*?>`)
	reShortenings  = regexp.MustCompile(`\(.*?\)`)
	reSpecialForm  = regexp.MustCompile(`(` + wordChars + `)@[a-z:]+`)
	reUnintell     = regexp.MustCompile(`\bxxx\b`)
	reUninterp     = regexp.MustCompile(`\byyy\b`)

	reSpaces           = regexp.MustCompile(`\s+`)
	reSpaceBeforePunct = regexp.MustCompile(`\s+([.,!?;:])`)
)

const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// Formatter strips CHAT annotation codes from utterance text. Each switch
// removes one family of codes; see the CHAT manual for their meaning.
type Formatter struct {
	// &+fr
	PhonologicalFragments bool
	// &-uh
	Fillers bool
	// &~ga
	Nonwords bool
	// &=laughs
	SimpleEvents bool
	// 0is
	OmittedWords bool
	// +/. +... +//?
	Terminators bool
	// [/] [: word] [*]
	Brackets bool
	// <scoped words>
	Scopes bool
	// When set, (text) is dropped entirely. Otherwise only the parentheses
	// go and the shortened material stays.
	Shortenings bool
	// When set, word@l is dropped entirely. Otherwise only @l goes.
	SpecialForms bool
	// xxx
	Unintelligible bool
	// yyy
	Uninterpretable bool
	// Return "" for results of two characters or fewer.
	DiscardEmpty bool
	// Keep only ASCII letters, digits, whitespace, in-word apostrophes and a
	// single trailing punctuation mark.
	FinalFilter bool
}

// DefaultFormatter removes every code family except shortenings and
// special forms, whose content is kept.
func DefaultFormatter() Formatter {
	return Formatter{
		PhonologicalFragments: true,
		Fillers:               true,
		Nonwords:              true,
		SimpleEvents:          true,
		OmittedWords:          true,
		Terminators:           true,
		Brackets:              true,
		Scopes:                true,
		Unintelligible:        true,
		Uninterpretable:       true,
		DiscardEmpty:          true,
		FinalFilter:           true,
	}
}

// Format returns the cleaned utterance, or "" when DiscardEmpty applies.
func (f Formatter) Format(line string) string {
	line = f.dropUnknown(line)

	strip := []struct {
		on bool
		re *regexp.Regexp
	}{
		{f.PhonologicalFragments, rePhonological},
		{f.Fillers, reFillers},
		{f.Nonwords, reNonwords},
		{f.SimpleEvents, reEvents},
		{f.Terminators, reTerminators},
		{f.Brackets, reBrackets},
		{f.Scopes, reScopes},
	}
	for _, s := range strip {
		if s.on {
			line = s.re.ReplaceAllString(line, "")
		}
	}
	if f.OmittedWords {
		line = reOmitted.ReplaceAllString(line, "${1}")
	}

	if f.Shortenings {
		line = reShortenings.ReplaceAllString(line, "")
	} else {
		line = strings.NewReplacer("(", "", ")", "").Replace(line)
	}
	if f.SpecialForms {
		line = reSpecialForm.ReplaceAllString(line, "")
	} else {
		line = reSpecialForm.ReplaceAllString(line, "${1}")
	}

	line = f.dropUnknown(line)

	line = reSpaces.ReplaceAllString(line, " ")
	line = reSpaceBeforePunct.ReplaceAllString(line, "${1}")
	line = strings.TrimSpace(line)

	// Underscores join compounds and names.
	line = strings.ReplaceAll(line, "_", " ")

	if f.FinalFilter {
		line = finalFilter(line)
	}

	if f.DiscardEmpty && utf8.RuneCountInString(line) <= 2 {
		return ""
	}
	return line
}

func (f Formatter) dropUnknown(line string) string {
	if f.Unintelligible {
		line = reUnintell.ReplaceAllString(line, "")
	}
	if f.Uninterpretable {
		line = reUninterp.ReplaceAllString(line, "")
	}
	return line
}

func finalFilter(line string) string {
	runes := []rune(line)
	var b strings.Builder
	b.Grow(len(line))
	for i, r := range runes {
		switch {
		case isASCIIAlnum(r), r == ' ', r == '\t':
			b.WriteRune(r)
		case r == '\'' && i > 0 && i < len(runes)-1 && isASCIIAlnum(runes[i-1]) && isASCIIAlnum(runes[i+1]):
			b.WriteRune(r)
		case i == len(runes)-1 && strings.ContainsRune(asciiPunctuation, r):
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(reSpaces.ReplaceAllString(b.String(), " "))
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
