package descriptor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	xerrors "A2A-Supervisor/internal/errors"
)

// Skill 描述智能体声明的一项能力，ID 即任务请求中的方法名。
type Skill struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name,omitempty" yaml:"name,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Descriptor 是智能体的静态元数据（agent card），启动时读取一次。
type Descriptor struct {
	Name        string  `json:"name" yaml:"name"`
	SlugValue   string  `json:"slug,omitempty" yaml:"slug,omitempty"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Version     string  `json:"version,omitempty" yaml:"version,omitempty"`
	URL         string  `json:"url,omitempty" yaml:"url,omitempty"`
	Skills      []Skill `json:"skills" yaml:"skills"`

	// Source 记录描述文件路径，仅用于诊断。
	Source string `json:"-" yaml:"-"`
}

// Slug 返回用于查找实现的标识：优先使用显式 slug，否则将名称转为小写并把空格替换为 "-"。
func (d Descriptor) Slug() string {
	if slug := strings.TrimSpace(d.SlugValue); slug != "" {
		return slug
	}
	return strings.ReplaceAll(strings.ToLower(d.Name), " ", "-")
}

// SkillIDs 返回描述文件中声明的全部技能 ID，忽略空值。
func (d Descriptor) SkillIDs() []string {
	ids := make([]string, 0, len(d.Skills))
	for _, skill := range d.Skills {
		if strings.TrimSpace(skill.ID) == "" {
			continue
		}
		ids = append(ids, skill.ID)
	}
	return ids
}

// Load 依次读取描述文件，按扩展名选择 JSON 或 YAML 解析，返回顺序与参数一致。
func Load(paths ...string) ([]Descriptor, error) {
	out := make([]Descriptor, 0, len(paths))
	for _, path := range paths {
		desc, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		out = append(out, desc)
	}
	return out, nil
}

// LoadFile 读取单个描述文件。
func LoadFile(path string) (Descriptor, error) {
	if strings.TrimSpace(path) == "" {
		return Descriptor{}, xerrors.New(xerrors.CodeInvalidArgument, "描述文件路径为空")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Descriptor{}, xerrors.Wrap(xerrors.CodeNotFound, err, "描述文件不存在",
				xerrors.WithMetadata("path", path))
		}
		return Descriptor{}, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "读取描述文件失败",
			xerrors.WithMetadata("path", path))
	}
	desc, err := Parse(raw, filepath.Ext(path))
	if err != nil {
		return Descriptor{}, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "解析描述文件失败",
			xerrors.WithMetadata("path", path))
	}
	desc.Source = path
	return desc, nil
}

// Parse 解析描述文件内容，ext 为 ".json" 时按 JSON 处理，其余按 YAML 处理。
func Parse(raw []byte, ext string) (Descriptor, error) {
	var desc Descriptor
	var err error
	if strings.EqualFold(ext, ".json") {
		err = json.Unmarshal(raw, &desc)
	} else {
		err = yaml.Unmarshal(raw, &desc)
	}
	if err != nil {
		return Descriptor{}, err
	}
	if strings.TrimSpace(desc.Name) == "" && strings.TrimSpace(desc.SlugValue) == "" {
		return Descriptor{}, xerrors.New(xerrors.CodeInvalidArgument, "描述文件缺少 name 或 slug")
	}
	return desc, nil
}
