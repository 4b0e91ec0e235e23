package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/YickelFuboo/moling-coding-service/internal/utils"
)

type configTestCase struct {
	name              string
	globalContent     string
	localContent      string
	explicitPath      string
	expectFormat      string
	expectDepth       *int
	expectMaxNodes    *int
	expectTokens      *bool
	expectModel       string
	expectFolders     []string
	expectClipboard   *bool
	expectFileFormat  string
	expectFileFolders []string
}

func boolPointer(value bool) *bool {
	pointer := value
	return &pointer
}

func intPointer(value int) *int {
	pointer := value
	return &pointer
}

func TestLoadApplicationConfigurationMergesSources(testingInstance *testing.T) {
	testCases := []configTestCase{
		{
			name:            "local_overrides_global",
			globalContent:   "function:\n  format: raw\n  depth: 3\n  clipboard: true\n",
			localContent:    "function:\n  format: json\n  max_nodes: 50\n  tokens:\n    enabled: true\n    model: custom\n",
			expectFormat:    "json",
			expectDepth:     intPointer(3),
			expectMaxNodes:  intPointer(50),
			expectTokens:    boolPointer(true),
			expectModel:     "custom",
			expectClipboard: boolPointer(true),
		},
		{
			name:          "explicit_path_replaces_local",
			globalContent: "function:\n  format: json\n",
			localContent:  "",
			explicitPath:  "custom.yaml",
			expectFormat:  "raw",
		},
		{
			name:          "exclude_folders_deduplicated",
			globalContent: "function:\n  paths:\n    exclude_folders:\n      - vendor\n      - vendor\n      - dist\n",
			expectFolders: []string{"vendor", "dist"},
		},
		{
			name:              "file_section_is_independent",
			globalContent:     "function:\n  format: json\nfile:\n  format: raw\n  paths:\n    exclude_folders:\n      - build\n",
			expectFormat:      "json",
			expectFileFormat:  "raw",
			expectFileFolders: []string{"build"},
		},
	}

	for caseIndex, testCase := range testCases {
		testingInstance.Run(testCase.name, func(testingInstance *testing.T) {
			homeDirectory := testingInstance.TempDir()
			workingDirectory := testingInstance.TempDir()
			globalDirectory := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName)
			if mkdirError := os.MkdirAll(globalDirectory, 0o755); mkdirError != nil {
				testingInstance.Fatalf("create config dir: %v", mkdirError)
			}
			if testCase.globalContent != "" {
				globalPath := filepath.Join(globalDirectory, utils.ConfigFileName)
				if writeError := os.WriteFile(globalPath, []byte(testCase.globalContent), 0o600); writeError != nil {
					testingInstance.Fatalf("write global config: %v", writeError)
				}
			}
			if testCase.localContent != "" {
				localPath := filepath.Join(workingDirectory, utils.ConfigFileName)
				if writeError := os.WriteFile(localPath, []byte(testCase.localContent), 0o600); writeError != nil {
					testingInstance.Fatalf("write local config: %v", writeError)
				}
			}
			if testCase.explicitPath != "" {
				explicitTarget := filepath.Join(workingDirectory, testCase.explicitPath)
				if writeError := os.WriteFile(explicitTarget, []byte("function:\n  format: raw\n"), 0o600); writeError != nil {
					testingInstance.Fatalf("write explicit config: %v", writeError)
				}
			}

			testingInstance.Setenv("HOME", homeDirectory)
			testingInstance.Setenv("USERPROFILE", homeDirectory)

			loadedConfiguration, loadError := LoadApplicationConfiguration(LoadOptions{
				WorkingDirectory: workingDirectory,
				ExplicitFilePath: testCase.explicitPath,
			})
			if loadError != nil {
				testingInstance.Fatalf("case %d (%s): unexpected error: %v", caseIndex, testCase.name, loadError)
			}

			functionConfiguration := loadedConfiguration.Function
			if functionConfiguration.Format != testCase.expectFormat {
				testingInstance.Errorf("case %d (%s): expected format %q, got %q", caseIndex, testCase.name, testCase.expectFormat, functionConfiguration.Format)
			}
			if !intPointersEqual(functionConfiguration.Depth, testCase.expectDepth) {
				testingInstance.Errorf("case %d (%s): depth mismatch", caseIndex, testCase.name)
			}
			if !intPointersEqual(functionConfiguration.MaxNodes, testCase.expectMaxNodes) {
				testingInstance.Errorf("case %d (%s): max_nodes mismatch", caseIndex, testCase.name)
			}
			if !boolPointersEqual(functionConfiguration.Tokens.Enabled, testCase.expectTokens) {
				testingInstance.Errorf("case %d (%s): tokens.enabled mismatch", caseIndex, testCase.name)
			}
			if functionConfiguration.Tokens.Model != testCase.expectModel {
				testingInstance.Errorf("case %d (%s): expected model %q, got %q", caseIndex, testCase.name, testCase.expectModel, functionConfiguration.Tokens.Model)
			}
			if !boolPointersEqual(functionConfiguration.Clipboard, testCase.expectClipboard) {
				testingInstance.Errorf("case %d (%s): clipboard mismatch", caseIndex, testCase.name)
			}
			if !stringSlicesEqual(functionConfiguration.Paths.ExcludeFolders, testCase.expectFolders) {
				testingInstance.Errorf("case %d (%s): expected folders %v, got %v", caseIndex, testCase.name, testCase.expectFolders, functionConfiguration.Paths.ExcludeFolders)
			}
			if loadedConfiguration.File.Format != testCase.expectFileFormat {
				testingInstance.Errorf("case %d (%s): expected file format %q, got %q", caseIndex, testCase.name, testCase.expectFileFormat, loadedConfiguration.File.Format)
			}
			if !stringSlicesEqual(loadedConfiguration.File.Paths.ExcludeFolders, testCase.expectFileFolders) {
				testingInstance.Errorf("case %d (%s): expected file folders %v, got %v", caseIndex, testCase.name, testCase.expectFileFolders, loadedConfiguration.File.Paths.ExcludeFolders)
			}
		})
	}
}

func TestMergeClonesPointerValues(testingInstance *testing.T) {
	overrideDepth := intPointer(7)
	overrideClipboard := boolPointer(true)
	override := ApplicationConfiguration{
		Function: AnalysisCommandConfiguration{
			Depth:     overrideDepth,
			Clipboard: overrideClipboard,
		},
	}
	merged := ApplicationConfiguration{}.Merge(override)
	if merged.Function.Depth == overrideDepth {
		testingInstance.Errorf("expected the merged depth pointer to be cloned")
	}
	if merged.Function.Depth == nil || *merged.Function.Depth != 7 {
		testingInstance.Errorf("expected merged depth 7, got %v", merged.Function.Depth)
	}
	*overrideClipboard = false
	if merged.Function.Clipboard == nil || !*merged.Function.Clipboard {
		testingInstance.Errorf("expected the merged clipboard value to be independent of the override")
	}
}

func TestLoadApplicationConfigurationRejectsDirectoryPath(testingInstance *testing.T) {
	workingDirectory := testingInstance.TempDir()
	explicitDirectory := filepath.Join(workingDirectory, "confdir")
	if mkdirError := os.MkdirAll(explicitDirectory, 0o755); mkdirError != nil {
		testingInstance.Fatalf("create directory: %v", mkdirError)
	}
	testingInstance.Setenv("HOME", testingInstance.TempDir())
	testingInstance.Setenv("USERPROFILE", workingDirectory)
	if _, loadError := LoadApplicationConfiguration(LoadOptions{
		WorkingDirectory: workingDirectory,
		ExplicitFilePath: "confdir",
	}); loadError == nil {
		testingInstance.Errorf("expected an error for a directory configuration path")
	}
}

func intPointersEqual(actual *int, expected *int) bool {
	if actual == nil || expected == nil {
		return actual == expected
	}
	return *actual == *expected
}

func boolPointersEqual(actual *bool, expected *bool) bool {
	if actual == nil || expected == nil {
		return actual == expected
	}
	return *actual == *expected
}

func stringSlicesEqual(actual []string, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}
	for valueIndex := range actual {
		if actual[valueIndex] != expected[valueIndex] {
			return false
		}
	}
	return true
}
