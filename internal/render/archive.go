package render

import (
	"fmt"
	"time"
)

// Archive 将多个产物打包为一个 zip（下载用）
func Archive(name string, artifacts []*Artifact, modified time.Time) (*Artifact, error) {
	if len(artifacts) == 0 {
		return nil, ErrEmptyReport
	}
	parts := make([]zipPart, 0, len(artifacts))
	seen := make(map[string]bool, len(artifacts))
	for _, a := range artifacts {
		if seen[a.Filename] {
			return nil, fmt.Errorf("产物文件名重复: %s", a.Filename)
		}
		seen[a.Filename] = true
		parts = append(parts, zipPart{Name: a.Filename, Data: a.Data})
	}

	data, err := zipParts(parts, modified)
	if err != nil {
		return nil, fmt.Errorf("打包产物失败: %w", err)
	}
	return &Artifact{
		Format:      "zip",
		Filename:    name,
		ContentType: "application/zip",
		Data:        data,
	}, nil
}
