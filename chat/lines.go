package chat

// lineKind tags a physical line of a CHAT file by its leading byte.
type lineKind int

const (
	kindOther lineKind = iota
	kindHeader
	kindMain
	kindDependent
	kindContinuation
)

var linePrefixes = map[byte]lineKind{
	'@':  kindHeader,
	'*':  kindMain,
	'%':  kindDependent,
	'\t': kindContinuation,
}

func classify(line string) lineKind {
	if line == "" {
		return kindOther
	}
	if k, ok := linePrefixes[line[0]]; ok {
		return k
	}
	return kindOther
}

// tier is a logical line: a header, main or dependent line with any
// continuation lines folded into it.
type tier struct {
	kind lineKind
	text string
	line int
}

type tierHandler func(p *parser, t tier)

var tierHandlers = map[lineKind]tierHandler{
	kindHeader:    (*parser).handleHeader,
	kindMain:      (*parser).handleMain,
	kindDependent: (*parser).handleDependent,
}
