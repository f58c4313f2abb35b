package ppcalc

import (
	"bytes"
	"fmt"

	"github.com/pp-server/pp-server/internal/domain"
)

// osuFileSignature is the first line of every real .osu file.
const osuFileSignature = "osu file format v"

// Parser turns raw .osu bytes into the opaque ParsedBeatmap handle this
// module's Calculator consumes. Like Calculator, this is a stand-in for an
// external difficulty-parsing library: it validates the file header and
// otherwise passes the raw text through untouched.
type Parser struct{}

// NewParser builds a Parser.
func NewParser() *Parser { return &Parser{} }

// Parse validates that raw looks like a .osu file and wraps it as the
// opaque ParsedBeatmap handle (here, simply its text).
func (p *Parser) Parse(raw []byte) (domain.ParsedBeatmap, error) {
	firstLine := raw
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		firstLine = raw[:i]
	}
	if !bytes.Contains(firstLine, []byte(osuFileSignature)) {
		return nil, fmt.Errorf("missing %q header", osuFileSignature)
	}
	return string(raw), nil
}

var _ domain.Parser = (*Parser)(nil)
