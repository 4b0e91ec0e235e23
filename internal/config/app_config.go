// Package config loads and merges application configuration for the codemap
// commands from the global and local configuration files.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/YickelFuboo/moling-coding-service/internal/utils"
)

// DefaultExcludedFolders are the dependency and build directories skipped by
// traversal and import resolution unless configuration overrides them.
var DefaultExcludedFolders = []string{
	"node_modules",
	"vendor",
	"venv",
	".venv",
	"__pycache__",
	"dist",
	"build",
	"target",
	"obj",
}

// DefaultExcludedFiles are file patterns skipped everywhere by default.
var DefaultExcludedFiles = []string{
	"*.min.js",
	"*.bundle.js",
}

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration holds command-specific configuration defaults.
type ApplicationConfiguration struct {
	Function AnalysisCommandConfiguration `mapstructure:"function"`
	File     AnalysisCommandConfiguration `mapstructure:"file"`
}

// AnalysisCommandConfiguration defines options shared by the function and file
// commands.
type AnalysisCommandConfiguration struct {
	Format      string             `mapstructure:"format"`
	Depth       *int               `mapstructure:"depth"`
	MaxNodes    *int               `mapstructure:"max_nodes"`
	Concurrency *int               `mapstructure:"concurrency"`
	Tokens      TokenConfiguration `mapstructure:"tokens"`
	Paths       PathConfiguration  `mapstructure:"paths"`
	Clipboard   *bool              `mapstructure:"clipboard"`
}

// TokenConfiguration controls token counting defaults.
type TokenConfiguration struct {
	Enabled *bool  `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
}

// PathConfiguration configures exclusion rules for traversal and resolution.
type PathConfiguration struct {
	ExcludeFolders []string `mapstructure:"exclude_folders"`
	ExcludeFiles   []string `mapstructure:"exclude_files"`
	UseGitignore   *bool    `mapstructure:"use_gitignore"`
}

// LoadApplicationConfiguration loads configuration from global and local files.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.ConfigFileName)
		globalConfig, loadErr := loadConfigurationFromPath(globalPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath, resolveErr := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	if resolveErr != nil {
		return ApplicationConfiguration{}, resolveErr
	}
	if localPath != "" {
		localConfig, loadErr := loadConfigurationFromPath(localPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(localConfig)
	}

	merged.Function.Paths.ExcludeFolders = utils.DeduplicatePatterns(merged.Function.Paths.ExcludeFolders)
	merged.File.Paths.ExcludeFolders = utils.DeduplicatePatterns(merged.File.Paths.ExcludeFolders)

	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) (string, error) {
	if explicitPath != "" {
		if filepath.IsAbs(explicitPath) {
			return explicitPath, nil
		}
		if workingDirectory == "" {
			absolute, err := filepath.Abs(explicitPath)
			if err != nil {
				return "", fmt.Errorf("resolve configuration path %s: %w", explicitPath, err)
			}
			return absolute, nil
		}
		return filepath.Join(workingDirectory, explicitPath), nil
	}
	if workingDirectory == "" {
		return "", nil
	}
	return filepath.Join(workingDirectory, utils.ConfigFileName), nil
}

func loadConfigurationFromPath(path string) (ApplicationConfiguration, error) {
	if path == "" {
		return ApplicationConfiguration{}, nil
	}
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	result.Function = result.Function.merge(override.Function)
	result.File = result.File.merge(override.File)
	return result
}

func (config AnalysisCommandConfiguration) merge(override AnalysisCommandConfiguration) AnalysisCommandConfiguration {
	result := config
	if override.Format != "" {
		result.Format = override.Format
	}
	if override.Depth != nil {
		result.Depth = cloneInt(override.Depth)
	}
	if override.MaxNodes != nil {
		result.MaxNodes = cloneInt(override.MaxNodes)
	}
	if override.Concurrency != nil {
		result.Concurrency = cloneInt(override.Concurrency)
	}
	result.Tokens = result.Tokens.merge(override.Tokens)
	result.Paths = result.Paths.merge(override.Paths)
	if override.Clipboard != nil {
		result.Clipboard = cloneBool(override.Clipboard)
	}
	return result
}

func (config TokenConfiguration) merge(override TokenConfiguration) TokenConfiguration {
	result := config
	if override.Enabled != nil {
		result.Enabled = cloneBool(override.Enabled)
	}
	if override.Model != "" {
		result.Model = override.Model
	}
	return result
}

func (config PathConfiguration) merge(override PathConfiguration) PathConfiguration {
	result := config
	if len(override.ExcludeFolders) > 0 {
		result.ExcludeFolders = append([]string{}, utils.DeduplicatePatterns(override.ExcludeFolders)...)
	}
	if len(override.ExcludeFiles) > 0 {
		result.ExcludeFiles = append([]string{}, utils.DeduplicatePatterns(override.ExcludeFiles)...)
	}
	if override.UseGitignore != nil {
		result.UseGitignore = cloneBool(override.UseGitignore)
	}
	return result
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
