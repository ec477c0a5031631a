//go:build !linux

package mount

import (
	"errors"
	"os"

	"github.com/moby/sys/mountinfo"
)

var errUnsupported = errors.New("mount: 仅支持 Linux")

// Host 在非 Linux 平台上只能读挂载表；挂载/卸载一律失败。
type Host struct{}

func (h Host) MountTmpfs(dir, data string) error { return errUnsupported }
func (h Host) Unmount(dir string) error          { return errUnsupported }

func (h Host) Mounts() ([]Entry, error) {
	infos, err := mountinfo.GetMounts(nil)
	if err != nil {
		return nil, err
	}
	return fromInfos(infos), nil
}

func (h Host) Geteuid() int { return os.Geteuid() }

func (h Host) IsTmpfs(dir string) (bool, error) { return false, errUnsupported }
