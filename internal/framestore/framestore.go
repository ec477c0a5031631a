// Package framestore 负责从抽帧目录构造有序、可寻址的 FrameStore。
package framestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/John-Robertt/swiper/internal/domain"
	"github.com/John-Robertt/swiper/internal/scan"
)

// 寻址上限；测试可调小以免生成上万个文件。
var maxFrames = domain.MaxFrames

// Load 枚举 root 下已抽好的帧，返回 FrameStore。
//
// 规则（硬约束）：
//  1. 只统计第一层、非隐藏的普通文件
//  2. 数量超过寻址上限时，按合成名删除序号 max+1..count 的帧（绝不删除范围内的帧）
//  3. 帧名由最终数量合成（0001.<ext> ...），不依赖目录读取顺序
//  4. 合成名与磁盘实际文件名必须一一对应，否则视为致命的一致性错误
func Load(root, format string) (domain.FrameStore, error) {
	root = filepath.Clean(root)
	if !domain.ValidFormat(format) {
		return domain.FrameStore{}, domain.Precondition("load frames", fmt.Errorf("不支持的帧格式：%q", format))
	}

	files, err := scan.Files(root, scan.Options{})
	if err != nil {
		return domain.FrameStore{}, domain.Resource("read frames", root, err)
	}
	count := len(files)
	if count == 0 {
		return domain.FrameStore{}, domain.Consistency("load frames", root, errors.New("目录中没有任何帧"))
	}

	present := make(map[string]struct{}, count)
	for _, f := range files {
		present[f.Name] = struct{}{}
	}

	if count > maxFrames {
		if err := shave(root, format, count, present); err != nil {
			return domain.FrameStore{}, err
		}
		count = maxFrames
	}

	names := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		name := domain.FrameName(i, format)
		if _, ok := present[name]; !ok {
			return domain.FrameStore{}, domain.Consistency("load frames", filepath.Join(root, name),
				fmt.Errorf("缺少帧（目录中共 %d 个可见文件，命名必须是连续的 %%04d.%s）", count, format))
		}
		names = append(names, name)
	}

	return domain.FrameStore{Root: root, Format: format, Names: names}, nil
}

// shave 删除超出寻址范围的帧：序号 maxFrames+1 .. count。
// 删除前先确认每个合成名都存在，保证不会误删，也不会只删一半。
func shave(root, format string, count int, present map[string]struct{}) error {
	victims := make([]string, 0, count-maxFrames)
	for i := maxFrames + 1; i <= count; i++ {
		name := domain.FrameName(i, format)
		if _, ok := present[name]; !ok {
			return domain.Consistency("shave frames", filepath.Join(root, name), errors.New("无法识别的帧路径"))
		}
		victims = append(victims, name)
	}

	for _, name := range victims {
		p := filepath.Join(root, name)
		if err := os.Remove(p); err != nil {
			return domain.Resource("shave frames", p, err)
		}
		delete(present, name)
	}
	return nil
}
