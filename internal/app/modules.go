package app

import (
	"github.com/specialistvlad/bibixgo/internal/registry"
	"github.com/specialistvlad/bibixgo/modules/file"
	"github.com/specialistvlad/bibixgo/modules/prelude"
)

// coreModules is the definitive list of all plugins that are compiled into
// the bibix binary.
var coreModules = []registry.Module{
	&prelude.Module{},
	&file.Module{},
}
