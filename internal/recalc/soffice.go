package recalc

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// DefaultSofficeTimeout 单次 LibreOffice 转换的超时
const DefaultSofficeTimeout = 120 * time.Second

// Soffice 用 LibreOffice 无头模式重算：
// 带 --convert-to xlsx 重新保存一遍会触发全量公式求值并写回缓存值。
type Soffice struct {
	Binary  string        // 可执行文件，默认 soffice
	Timeout time.Duration // 单次转换超时
}

// NewSoffice 创建 LibreOffice 引擎
func NewSoffice(binary string, timeout time.Duration) *Soffice {
	if binary == "" {
		binary = "soffice"
	}
	if timeout <= 0 {
		timeout = DefaultSofficeTimeout
	}
	return &Soffice{Binary: binary, Timeout: timeout}
}

// Recalc 转换到临时目录后用结果覆盖原文件
func (s *Soffice) Recalc(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("解析产物路径失败: %w", err)
	}
	outDir, err := os.MkdirTemp(filepath.Dir(abs), "recalc-*")
	if err != nil {
		return fmt.Errorf("创建重算临时目录失败: %w", err)
	}
	defer os.RemoveAll(outDir)

	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.Binary,
		"--headless", "--norestore", "--convert-to", "xlsx", "--outdir", outDir, abs)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("LibreOffice 重算超时 (%s)", s.Timeout)
		}
		return fmt.Errorf("LibreOffice 重算失败: %w: %s", err, string(out))
	}

	converted := filepath.Join(outDir, filepath.Base(abs))
	if _, err := os.Stat(converted); err != nil {
		return fmt.Errorf("LibreOffice 未产出转换结果: %w", err)
	}
	if err := os.Rename(converted, abs); err != nil {
		return fmt.Errorf("覆盖产物文件失败: %w", err)
	}
	return nil
}
