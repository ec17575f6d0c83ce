package layout

import (
	"fmt"

	"github.com/ByLCY/versecard/binding"
	"github.com/ByLCY/versecard/dsl"
)

// DefaultBodyTemplate 与 DefaultSubtitleTemplate 在作业文件没有写正文/副标题时使用，
// 取值来自经文接口的响应。
const (
	DefaultBodyTemplate     = "${text}"
	DefaultSubtitleTemplate = "${reference}"
)

// Job 是从 .card 作业文件解析出的一次渲染任务。正文与副标题仍是模板，
// 需要用经文数据调用 Bind 后才能渲染。
type Job struct {
	Name        string      `json:"name"`
	Image       string      `json:"image,omitempty"`
	Preset      string      `json:"preset,omitempty"`
	Verse       string      `json:"verse,omitempty"`
	Translation string      `json:"translation,omitempty"`
	Ratio       string      `json:"ratio"`
	Output      string      `json:"output,omitempty"`
	Template    TextBlock   `json:"template"`
	Style       StyleParams `json:"style"`
}

// Bind 用经文数据填充正文与副标题模板。
func (j *Job) Bind(data any) TextBlock {
	return TextBlock{
		Body:     binding.Interpolate(j.Template.Body, data),
		Subtitle: binding.Interpolate(j.Template.Subtitle, data),
	}
}

// BuildJob 将作业文件 AST 转换为 Job；base 提供未在文件中出现的样式默认值。
func BuildJob(doc *dsl.Document, base StyleParams) (*Job, error) {
	if doc == nil {
		return nil, fmt.Errorf("作业文件为空")
	}
	job := &Job{
		Name:     string(doc.Name),
		Ratio:    "default",
		Style:    base,
		Template: TextBlock{Body: DefaultBodyTemplate, Subtitle: DefaultSubtitleTemplate},
	}

	for key, as := range doc.Block.Assignments() {
		raw := as.Value.Raw()
		switch key {
		case "image":
			job.Image = raw
		case "preset":
			job.Preset = raw
		case "verse":
			job.Verse = raw
		case "translation":
			job.Translation = raw
		case "ratio":
			job.Ratio = raw
		case "output":
			job.Output = raw
		case "subtitle":
			job.Template.Subtitle = raw
		case "text":
			job.Template.Body = raw
		default:
			return nil, fmt.Errorf("%s: 未知的属性 %s", as.Pos, key)
		}
	}

	if sec := doc.Block.Section("text"); sec != nil {
		lits := sec.Block.Texts()
		if len(lits) == 0 {
			return nil, fmt.Errorf("%s: text 段落缺少文本", sec.Pos)
		}
		body := lits[0]
		for _, l := range lits[1:] {
			body += " " + l
		}
		job.Template.Body = body
	}

	if sec := doc.Block.Section("style"); sec != nil {
		if err := applyStyle(&job.Style, sec.Block); err != nil {
			return nil, err
		}
	}
	if err := job.Style.Validate(); err != nil {
		return nil, err
	}
	return job, nil
}

func applyStyle(style *StyleParams, block *dsl.Block) error {
	for key, as := range block.Assignments() {
		raw := as.Value.Raw()
		var err error
		switch key {
		case "subtitle":
			var on bool
			if on, err = as.Value.Bool(); err == nil {
				style.IncludeSubtitle = on
			}
		default:
			err = ApplyStyleField(style, key, raw)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", as.Pos, err)
		}
	}
	return nil
}

// ApplyStyleField 把表单或命令行传入的单个字符串字段写入样式，
// 所有外部输入都经过这里，保证解析规则一致。
func ApplyStyleField(style *StyleParams, field, raw string) error {
	switch field {
	case "size", "font-size":
		l, err := ParseLength(raw)
		if err != nil {
			return err
		}
		size := l.ToPX(style.FontSize)
		if size <= 0 {
			return &InvalidStyleError{Field: "fontSize", Value: raw}
		}
		style.FontSize = size
	case "color", "text-color":
		c, err := ParseColor(raw)
		if err != nil {
			return &InvalidStyleError{Field: "color", Value: raw}
		}
		style.Color = c
	case "align", "text-align":
		a, err := ParseAlign(raw)
		if err != nil {
			return err
		}
		style.Align = a
	case "offset", "vertical-align":
		l, err := ParseLength(raw)
		if err != nil {
			return err
		}
		if l.Unit != UnitNone && l.Unit != UnitPercent {
			return &InvalidStyleError{Field: "offset", Value: raw}
		}
		style.VerticalOffset = l.Value
	case "font":
		style.Font = FontResource{Name: raw, Src: raw}
	default:
		return &InvalidStyleError{Field: field, Value: raw}
	}
	return nil
}
