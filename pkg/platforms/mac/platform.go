//go:build darwin

package mac

import (
	"os"
	"path/filepath"

	"github.com/ShareMountProject/sharemount-core/pkg/config"
	"github.com/ShareMountProject/sharemount-core/pkg/platforms"
	"github.com/adrg/xdg"
)

type Platform struct{}

func (*Platform) ID() string {
	return platforms.PlatformIDMac
}

func (*Platform) Settings() platforms.Settings {
	return platforms.Settings{
		DataDir:   filepath.Join(xdg.DataHome, config.AppName),
		ConfigDir: filepath.Join(xdg.ConfigHome, config.AppName),
		TempDir:   filepath.Join(os.TempDir(), config.AppName),
	}
}

// DefaultMountRoot keeps mounts out of /Volumes, which is owned by the
// system and requires elevated privileges on modern macOS.
func (*Platform) DefaultMountRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), config.AppName, "mounts")
	}
	return filepath.Join(home, config.MountRootDirName)
}
