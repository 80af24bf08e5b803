package build

import "strings"

// Set at link time with -ldflags "-X github.com/remindcli/remind/internal/build.Version=...".
var (
	Version = "dev"
	AppName = "remind"
	Slug    = ""
)

func init() {
	if Slug == "" {
		Slug = strings.ToLower(AppName)
	}
}
