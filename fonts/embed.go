package fonts

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/gofont/gosmallcaps"
)

// Default 是未指定字体或字体加载失败时使用的内置字体名称。
const Default = "go-regular"

var builtin = map[string][]byte{
	"go-regular":   goregular.TTF,
	"go-medium":    gomedium.TTF,
	"go-bold":      gobold.TTF,
	"go-italic":    goitalic.TTF,
	"go-mono":      gomono.TTF,
	"go-smallcaps": gosmallcaps.TTF,
}

// Load 返回内置字体的字节数据，path 可写为 "embed:go-bold" 或直接 "go-bold"。
func Load(path string) ([]byte, error) {
	name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(path, "embed:")))
	name = strings.TrimSuffix(name, ".ttf")
	data, ok := builtin[name]
	if !ok {
		return nil, fmt.Errorf("读取内置字体 %s 失败: 未知字体（可用: %s）", path, strings.Join(Names(), ", "))
	}
	return data, nil
}

// Names 列出全部内置字体名称。
func Names() []string {
	out := make([]string, 0, len(builtin))
	for name := range builtin {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
