//go:build linux

package repository

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// SystemVolumes lists mounted block-device filesystems, always including "/".
type SystemVolumes struct{}

func (SystemVolumes) Volumes() ([]string, error) {
	file, err := os.Open("/proc/self/mounts")
	if err != nil {
		return []string{"/"}, nil
	}
	defer file.Close()

	seen := map[string]bool{"/": true}
	volumes := []string{"/"}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || !strings.HasPrefix(fields[0], "/dev/") {
			continue
		}

		mountPoint := unescapeMount(fields[1])
		if seen[mountPoint] {
			continue
		}

		var st unix.Statfs_t
		if err := unix.Statfs(mountPoint, &st); err != nil || st.Blocks == 0 {
			continue
		}

		seen[mountPoint] = true
		volumes = append(volumes, mountPoint)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read mount table: %w", err)
	}

	return volumes, nil
}

// unescapeMount decodes the octal escapes (\040 for space) used in /proc/mounts.
func unescapeMount(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) {
			if v, err := strconv.ParseUint(s[i+1:i+4], 8, 8); err == nil {
				b.WriteByte(byte(v))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
