//go:build !linux && !windows

package repository

type SystemVolumes struct{}

func (SystemVolumes) Volumes() ([]string, error) {
	return []string{"/"}, nil
}
