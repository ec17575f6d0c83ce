// Package buildinfo 保存构建时注入的版本信息。
//
//	go build -ldflags "-X github.com/ByLCY/versecard/buildinfo.Version=v0.3.0 \
//	    -X github.com/ByLCY/versecard/buildinfo.Commit=$(git rev-parse --short HEAD)"
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String 返回多行的版本信息。
func String() string {
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s", Version, Commit, Date)
}

// Template returns the cobra version template.
func Template() string {
	return fmt.Sprintf("{{.Name}} %s (%s, %s)\n", Version, Commit, Date)
}
