package types

// SampleState 样本是否已被读取
type SampleState uint8

const (
	// SampleRead 已读取
	SampleRead SampleState = 1 << iota
	// SampleNotRead 未读取
	SampleNotRead

	// AnySampleState 任意样本状态
	AnySampleState = SampleRead | SampleNotRead
)

// ViewState 读端是否首次看到该实例
type ViewState uint8

const (
	// ViewNew 新实例（或实例重生）
	ViewNew ViewState = 1 << iota
	// ViewNotNew 已看到过
	ViewNotNew

	// AnyViewState 任意视图状态
	AnyViewState = ViewNew | ViewNotNew
)

// InstanceState 实例存活状态
type InstanceState uint8

const (
	// InstanceAlive 存在活跃写端
	InstanceAlive InstanceState = 1 << iota
	// InstanceNotAliveDisposed 实例已被销毁
	InstanceNotAliveDisposed
	// InstanceNotAliveNoWriters 没有写端
	InstanceNotAliveNoWriters

	// AnyInstanceState 任意实例状态
	AnyInstanceState = InstanceAlive | InstanceNotAliveDisposed | InstanceNotAliveNoWriters
	// NotAliveInstanceState 任意非存活状态
	NotAliveInstanceState = InstanceNotAliveDisposed | InstanceNotAliveNoWriters
)

// String 返回实例状态名称
func (s InstanceState) String() string {
	switch s {
	case InstanceAlive:
		return "ALIVE"
	case InstanceNotAliveDisposed:
		return "NOT_ALIVE_DISPOSED"
	case InstanceNotAliveNoWriters:
		return "NOT_ALIVE_NO_WRITERS"
	default:
		return "UNKNOWN"
	}
}

// DataState 样本、视图、实例状态的组合掩码，用于过滤 read/take
type DataState struct {
	Sample   SampleState
	View     ViewState
	Instance InstanceState
}

// AnyState 不做状态过滤
func AnyState() DataState {
	return DataState{Sample: AnySampleState, View: AnyViewState, Instance: AnyInstanceState}
}

// NewData 未读取的样本
func NewData() DataState {
	return DataState{Sample: SampleNotRead, View: AnyViewState, Instance: AnyInstanceState}
}

// WithSample 返回替换样本状态掩码后的 DataState
func (d DataState) WithSample(s SampleState) DataState {
	d.Sample = s
	return d
}

// WithView 返回替换视图状态掩码后的 DataState
func (d DataState) WithView(v ViewState) DataState {
	d.View = v
	return d
}

// WithInstance 返回替换实例状态掩码后的 DataState
func (d DataState) WithInstance(i InstanceState) DataState {
	d.Instance = i
	return d
}

// Matches 检查给定状态是否落在掩码内；掩码为零的维度不参与过滤
func (d DataState) Matches(s SampleState, v ViewState, i InstanceState) bool {
	if d.Sample != 0 && d.Sample&s == 0 {
		return false
	}
	if d.View != 0 && d.View&v == 0 {
		return false
	}
	return d.Instance == 0 || d.Instance&i != 0
}
