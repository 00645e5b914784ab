//go:build windows

package repository

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// SystemVolumes lists logical drives as "C:" style names.
type SystemVolumes struct{}

func (SystemVolumes) Volumes() ([]string, error) {
	mask, err := windows.GetLogicalDrives()
	if err != nil {
		return nil, fmt.Errorf("failed to get logical drives: %w", err)
	}

	var volumes []string
	for i := 0; i < 26; i++ {
		if mask&(1<<uint(i)) != 0 {
			volumes = append(volumes, fmt.Sprintf("%c:", 'A'+i))
		}
	}
	return volumes, nil
}
