package cut

import (
	"github.com/saylorsolutions/logdissect/plugin"
)

const (
	qualifier = "cut"

	SpaceType = "CUT.SPACE"
	CommaType = "CUT.COMMA"
	TabType   = "CUT.TAB"
)

var _ plugin.Plugin = (*cutPlugin)(nil)

// Plugin registers delimiter dissectors. Remap a field to one of their input types to split it.
func Plugin() plugin.Plugin {
	return new(cutPlugin)
}

type cutPlugin struct{}

func (*cutPlugin) ID() string {
	return qualifier
}

func (*cutPlugin) Stopping() error {
	return nil
}

func (*cutPlugin) Register(reg *plugin.Registration) {
	reg.RegisterDissector(qualifier, "space", NewCutter(SpaceType, CutCollapse()))
	reg.DocumentDissector(qualifier, "space", `cut.space

CUT.SPACE -> STRING:*
Splits a value on runs of spaces. Each part is named by its index, starting at 0.`)
	reg.RegisterDissector(qualifier, "comma", NewCutter(CommaType, CutDelim(","), CutTrim()))
	reg.DocumentDissector(qualifier, "comma", `cut.comma

CUT.COMMA -> STRING:*
Splits a value on commas, like the X-Forwarded-For header. Parts are trimmed and named by their index, starting at 0.`)
	reg.RegisterDissector(qualifier, "tab", NewCutter(TabType, CutDelim("\t")))
	reg.DocumentDissector(qualifier, "tab", `cut.tab

CUT.TAB -> STRING:*
Splits a value on tab characters. Each part is named by its index, starting at 0.`)
}
