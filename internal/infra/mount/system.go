package mount

// FSTypeTmpfs 是 tmpfs 在挂载表中的类型名。
const FSTypeTmpfs = "tmpfs"

// System 是挂载相关的系统调用集合；测试中用假实现替换。
type System interface {
	// MountTmpfs 在 dir 挂载一个 tmpfs，data 为挂载选项（例如 "size=1000000000,mode=0777"）。
	MountTmpfs(dir, data string) error
	Unmount(dir string) error
	// Mounts 返回当前挂载表。
	Mounts() ([]Entry, error)
	Geteuid() int
	// IsTmpfs 确认 dir 当前所在文件系统是否为 tmpfs（挂载后的自检）。
	IsTmpfs(dir string) (bool, error)
}
