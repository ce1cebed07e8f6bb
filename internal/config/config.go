package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// AppConfig 应用配置
type AppConfig struct {
	Data     DataConfig     `toml:"data"`
	Generate GenerateConfig `toml:"generate"`
	Verify   VerifyConfig   `toml:"verify"`
	Engine   EngineConfig   `toml:"engine"`
}

// DataConfig 数据与存档配置
type DataConfig struct {
	DataDir string `toml:"data_dir"` // 产物与审计库的根目录
	DBFile  string `toml:"db_file"`  // SQLite 审计库文件名
}

// GenerateConfig 公式生成配置
type GenerateConfig struct {
	HelperBaseColumn   int  `toml:"helper_base_column"`
	MaxFrequencyLevels int  `toml:"max_frequency_levels"`
	MaxCrosstabLevels  int  `toml:"max_crosstab_levels"`
	DefaultMaxColumns  int  `toml:"default_max_columns"`
	SkipCleanedSheet   bool `toml:"skip_cleaned_sheet"`
}

// VerifyConfig 验证与质量门配置
type VerifyConfig struct {
	MinFormulaPercentage float64 `toml:"min_formula_percentage"`
}

// EngineConfig 重算引擎配置
type EngineConfig struct {
	Kind           string `toml:"kind"`            // soffice / local
	SofficeBinary  string `toml:"soffice_binary"`  // LibreOffice 可执行文件
	TimeoutSeconds int    `toml:"timeout_seconds"` // 单次重算超时
	RetryPauseMS   int    `toml:"retry_pause_ms"`  // 重试前的等待
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Data: DataConfig{
			DataDir: "data",
			DBFile:  "veristat.db",
		},
		Generate: GenerateConfig{
			HelperBaseColumn:   40,
			MaxFrequencyLevels: 15,
			MaxCrosstabLevels:  10,
			DefaultMaxColumns:  30,
		},
		Verify: VerifyConfig{
			MinFormulaPercentage: 50,
		},
		Engine: EngineConfig{
			Kind:           "soffice",
			SofficeBinary:  "soffice",
			TimeoutSeconds: 120,
			RetryPauseMS:   500,
		},
	}
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// LoadConfigFile 从指定路径加载配置。
// 文件不存在时返回默认配置，不视为错误。
func LoadConfigFile(path string) (*AppConfig, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, err
	}

	// 环境变量覆盖（用于 E2E / 本地运行）
	if v := os.Getenv("VERISTAT_SOFFICE"); v != "" {
		config.Engine.SofficeBinary = v
	}
	if v := os.Getenv("VERISTAT_DATA_DIR"); v != "" {
		config.Data.DataDir = v
	}

	return config, nil
}

// LoadConfig 从可执行文件同目录的 config.toml 加载配置
func LoadConfig() (*AppConfig, error) {
	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		exeDir = "."
	}
	return LoadConfigFile(filepath.Join(exeDir, "config.toml"))
}

// SaveConfig 保存配置到指定路径
func SaveConfig(config *AppConfig, path string) error {
	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// EnsureDataDir 确保数据目录及其子目录存在
func EnsureDataDir(config *AppConfig) (string, error) {
	dataDir := config.Data.DataDir
	if !filepath.IsAbs(dataDir) {
		exeDir, err := GetExeDir()
		if err != nil {
			exeDir = "."
		}
		dataDir = filepath.Join(exeDir, dataDir)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	subdirs := []string{"artifacts", "plans"}
	for _, subdir := range subdirs {
		if err := os.MkdirAll(filepath.Join(dataDir, subdir), 0755); err != nil {
			return "", err
		}
	}

	return dataDir, nil
}

// DBPath 审计库文件路径
func DBPath(config *AppConfig, dataDir string) string {
	return filepath.Join(dataDir, config.Data.DBFile)
}
