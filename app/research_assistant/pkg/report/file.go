package report

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/model"
)

const (
	filePrefix = "research_report_"
	fileSuffix = ".md"
	fileLayout = "20060102_150405"
)

// FileName 返回报告文件名 research_report_<YYYYMMDD_HHMMSS>.md
func FileName(t time.Time) string {
	return filePrefix + t.Format(fileLayout) + fileSuffix
}

// Save 渲染报告并写入 dir，返回文件路径。
// 使用独占创建，同一秒内的并发运行依次得到 _1、_2 … 后缀，互不覆盖。
func Save(dir string, r *model.Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	content := []byte(Render(r))
	base := strings.TrimSuffix(FileName(r.GeneratedAt), fileSuffix)
	for i := 0; i < 1000; i++ {
		name := base + fileSuffix
		if i > 0 {
			name = fmt.Sprintf("%s_%d%s", base, i, fileSuffix)
		}
		path := filepath.Join(dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create report file: %w", err)
		}
		if _, err := f.Write(content); err != nil {
			f.Close()
			os.Remove(path)
			return "", fmt.Errorf("write report file: %w", err)
		}
		if err := f.Close(); err != nil {
			os.Remove(path)
			return "", fmt.Errorf("close report file: %w", err)
		}
		return path, nil
	}
	return "", fmt.Errorf("too many reports named %s in %s", base, dir)
}

// FileInfo 已保存报告的概要
type FileInfo struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// List 列出 dir 下的报告文件，按文件名倒序 (最新在前)。目录不存在时返回空列表
func List(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []FileInfo
	for _, e := range entries {
		if e.IsDir() || !IsReportFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, FileInfo{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name > out[j].Name })
	return out, nil
}

// IsReportFile 判断文件名是否是本程序生成的报告 (不含路径分隔符)
func IsReportFile(name string) bool {
	return name == filepath.Base(name) &&
		strings.HasPrefix(name, filePrefix) &&
		strings.HasSuffix(name, fileSuffix)
}
