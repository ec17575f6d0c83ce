package layout

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DebugDump 汇总一次渲染的裁剪区域与排版计划。
type DebugDump struct {
	Ratio  string   `json:"ratio"`
	Source [2]int   `json:"source"` // 源图宽高
	Crop   CropRect `json:"crop"`
	Plan   *Plan    `json:"plan"`
}

// WriteDebugJSON 把 d 写成缩进的 JSON 文件，必要时创建父目录。
func WriteDebugJSON(path string, d DebugDump) error {
	if d.Plan == nil {
		return fmt.Errorf("没有可输出的排版计划")
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
