package prelude

import (
	"context"

	"github.com/specialistvlad/bibixgo/internal/plugin"
	"github.com/specialistvlad/bibixgo/internal/value"
)

// CurrentEnv describes the machine the build runs on as an Env instance.
func CurrentEnv(ctx context.Context, bc *plugin.BuildContext) (plugin.Return, error) {
	return plugin.TransientValue(value.NClassInstance{
		NameTokens: []string{"Env"},
		Fields: map[string]value.Value{
			"os":   value.String(osName(bc.Env.OS)),
			"arch": value.String(archName(bc.Env.Arch)),
		},
	})
}

func osName(goos string) string {
	switch goos {
	case "linux":
		return "linux"
	case "darwin":
		return "osx"
	case "windows":
		return "windows"
	}
	return "unknown"
}

func archName(goarch string) string {
	switch goarch {
	case "386":
		return "x86"
	case "amd64":
		return "x86_64"
	case "arm64":
		return "aarch_64"
	}
	return "unknown"
}
