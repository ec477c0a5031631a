package run

import (
	"time"

	"github.com/John-Robertt/swiper/internal/config"
	"github.com/John-Robertt/swiper/internal/domain"
)

// 元数据展示的场景，决定展示哪些字段（与 -i / -s / -a 对应）。
const (
	StageInspect = "inspect"
	StageSave    = "save"
	StageApply   = "apply"
)

// Observer 把“阶段/元数据”事件从执行流程中解耦出来；run 包本身不做任何面向用户的输出。
//
// 进度条不走 Observer：抽帧/缓存进度直接写到 Deps.Progress。
type Observer interface {
	// OnStart 在每个动作开始时调用。
	OnStart(eff config.EffectiveConfig)
	// OnMetadata 在元数据确定后调用（保存前、播放前）。
	OnMetadata(stage string, m domain.FrameMetadata)
	// OnPhaseDone 在阶段结束时调用（用于打印阶段统计与耗时）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
}

type nopObserver struct{}

func (nopObserver) OnStart(config.EffectiveConfig)                    {}
func (nopObserver) OnMetadata(string, domain.FrameMetadata)           {}
func (nopObserver) OnPhaseDone(string, map[string]any, time.Duration) {}

func orNop(obs Observer) Observer {
	if obs == nil {
		return nopObserver{}
	}
	return obs
}
