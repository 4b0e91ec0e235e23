package utils_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/YickelFuboo/moling-coding-service/internal/utils"
)

// textFileName defines the name of the text file used in tests.
const textFileName = "sample.txt"

// TestDeduplicatePatterns verifies that DeduplicatePatterns removes duplicate patterns.
func TestDeduplicatePatterns(testingInstance *testing.T) {
	testCases := []struct {
		testName string
		patterns []string
		expected []string
	}{
		{
			testName: "removes duplicates",
			patterns: []string{"a", "b", "a"},
			expected: []string{"a", "b"},
		},
		{
			testName: "keeps unique",
			patterns: []string{"a", "b"},
			expected: []string{"a", "b"},
		},
		{
			testName: "keeps first occurrence order",
			patterns: []string{"b", "a", "b", "a"},
			expected: []string{"b", "a"},
		},
	}
	for index, testCase := range testCases {
		actual := utils.DeduplicatePatterns(testCase.patterns)
		if len(actual) != len(testCase.expected) {
			testingInstance.Errorf("case %d (%s): expected length %d, got %d", index, testCase.testName, len(testCase.expected), len(actual))
			continue
		}
		for position, value := range actual {
			if value != testCase.expected[position] {
				testingInstance.Errorf("case %d (%s): expected %s at position %d, got %s", index, testCase.testName, testCase.expected[position], position, value)
			}
		}
	}
}

// TestContainsString verifies that ContainsString locates strings in a slice.
func TestContainsString(testingInstance *testing.T) {
	testCases := []struct {
		testName string
		slice    []string
		target   string
		expected bool
	}{
		{
			testName: "contains target",
			slice:    []string{"alpha", "beta"},
			target:   "beta",
			expected: true,
		},
		{
			testName: "missing target",
			slice:    []string{"alpha", "beta"},
			target:   "gamma",
			expected: false,
		},
	}
	for index, testCase := range testCases {
		actual := utils.ContainsString(testCase.slice, testCase.target)
		if actual != testCase.expected {
			testingInstance.Errorf("case %d (%s): expected %t, got %t", index, testCase.testName, testCase.expected, actual)
		}
	}
}

// TestRelativePathOrSelf verifies relative path calculations.
func TestRelativePathOrSelf(testingInstance *testing.T) {
	temporaryRoot := testingInstance.TempDir()
	subPath := filepath.Join(temporaryRoot, textFileName)
	creationError := os.WriteFile(subPath, []byte("content"), 0600)
	if creationError != nil {
		testingInstance.Fatalf("failed to create file: %v", creationError)
	}
	testCases := []struct {
		testName string
		fullPath string
		root     string
		expected string
	}{
		{
			testName: "file under root",
			fullPath: subPath,
			root:     temporaryRoot,
			expected: textFileName,
		},
		{
			testName: "root itself",
			fullPath: temporaryRoot,
			root:     temporaryRoot,
			expected: ".",
		},
	}
	for index, testCase := range testCases {
		actual := utils.RelativePathOrSelf(testCase.fullPath, testCase.root)
		if actual != testCase.expected {
			testingInstance.Errorf("case %d (%s): expected %s, got %s", index, testCase.testName, testCase.expected, actual)
		}
	}
}

// TestIsPathWithin verifies containment checks between absolute paths.
func TestIsPathWithin(testingInstance *testing.T) {
	temporaryRoot := testingInstance.TempDir()
	testCases := []struct {
		testName  string
		candidate string
		root      string
		expected  bool
	}{
		{
			testName:  "root itself",
			candidate: temporaryRoot,
			root:      temporaryRoot,
			expected:  true,
		},
		{
			testName:  "nested path",
			candidate: filepath.Join(temporaryRoot, "nested", "file.go"),
			root:      temporaryRoot,
			expected:  true,
		},
		{
			testName:  "parent of root",
			candidate: filepath.Dir(temporaryRoot),
			root:      temporaryRoot,
			expected:  false,
		},
	}
	for index, testCase := range testCases {
		actual := utils.IsPathWithin(testCase.candidate, testCase.root)
		if actual != testCase.expected {
			testingInstance.Errorf("case %d (%s): expected %t, got %t", index, testCase.testName, testCase.expected, actual)
		}
	}
}
