package engine

// State 一次运行所处的阶段: Idle -> Searching -> Fetching(i) -> Summarizing(i) -> Composing -> Done | Failed
type State string

const (
	StateIdle        State = "idle"
	StateSearching   State = "searching"
	StateFetching    State = "fetching"
	StateSummarizing State = "summarizing"
	StateComposing   State = "composing"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Terminal 是否为终止状态
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Progress 进度事件。Index/Total 只在 Fetching、Summarizing 阶段有意义，从 1 开始计数
type Progress struct {
	State   State
	Index   int
	Total   int
	Source  string
	Percent int
	Message string
}
