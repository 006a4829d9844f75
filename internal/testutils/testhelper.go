//go:build test

package testutils

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/srg/blimp/internal/gatt"
)

type TestHelper struct {
	T      *testing.T
	Logger *logrus.Logger
}

// NewTestHelper creates a test helper with a debug-level logger.
func NewTestHelper(t *testing.T) *TestHelper {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel) // enable debug logs to track execution flow
	return &TestHelper{
		T:      t,
		Logger: logger,
	}
}

// ServiceToJSON renders a service tree for JSONAsserter comparisons.
func ServiceToJSON(svc *gatt.Service) string {
	return MustJSON(svc.Snapshot())
}

// ServicesToJSON renders a list of service trees.
func ServicesToJSON(svcs []*gatt.Service) string {
	snaps := make([]gatt.ServiceSnapshot, 0, len(svcs))
	for _, svc := range svcs {
		snaps = append(snaps, svc.Snapshot())
	}
	return MustJSON(snaps)
}

// LoadFile reads a file relative to the module root (the directory holding go.mod).
func LoadFile(relPath string) (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	projectRoot := wd
	for {
		if _, err := os.Stat(filepath.Join(projectRoot, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(projectRoot)
		if parent == projectRoot {
			return "", fmt.Errorf("could not find project root (go.mod not found)")
		}
		projectRoot = parent
	}

	data, err := os.ReadFile(filepath.Join(projectRoot, relPath))
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", relPath, err)
	}
	return string(data), nil
}
