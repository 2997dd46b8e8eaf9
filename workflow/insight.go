package workflow

// AppRequestCount 单个应用的请求数
type AppRequestCount struct {
	AppID    string `json:"appId"`
	Name     string `json:"name"`
	Requests int    `json:"requests"`
}

// Stats 看板统计
type Stats struct {
	ActiveApps int               `json:"activeApps"`
	Total      int               `json:"total"`
	Pending    int               `json:"pending"`
	Completed  int               `json:"completed"`
	Rejected   int               `json:"rejected"`
	PerApp     []AppRequestCount `json:"perApp"`
}

// CompletionRate 完成率, 没有请求时是0
func (s *Stats) CompletionRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Total)
}

func ComputeStats(apps []*Application) *Stats {
	stats := &Stats{
		ActiveApps: len(apps),
		PerApp:     make([]AppRequestCount, 0, len(apps)),
	}
	for _, app := range apps {
		stats.PerApp = append(stats.PerApp, AppRequestCount{AppID: app.ID, Name: app.Name, Requests: len(app.Requests)})
		for _, r := range app.Requests {
			stats.Total++
			switch r.Status {
			case RequestStatusPending:
				stats.Pending++
			case RequestStatusCompleted:
				stats.Completed++
			case RequestStatusRejected:
				stats.Rejected++
			}
		}
	}
	return stats
}

type TimelineState = string

const (
	TimelineStatePast     TimelineState = "past"
	TimelineStateCurrent  TimelineState = "current"
	TimelineStateUpcoming TimelineState = "upcoming"
)

// TimelineEntry 请求在某个模块上的进度
type TimelineEntry struct {
	Module *Module
	State  TimelineState
}

// RequestTimeline 按模块顺序给出请求的进度
// history里出现过的是past, 否则当前模块是current, 其余upcoming
func RequestTimeline(app *Application, request *LiveRequest) []TimelineEntry {
	visited := make(map[string]struct{}, len(request.History))
	for _, h := range request.History {
		visited[h.ModuleID] = struct{}{}
	}
	ret := make([]TimelineEntry, 0, len(app.Modules))
	for _, m := range app.Modules {
		state := TimelineStateUpcoming
		if _, ok := visited[m.ID]; ok {
			state = TimelineStatePast
		} else if m.ID == request.CurrentModuleID {
			state = TimelineStateCurrent
		}
		ret = append(ret, TimelineEntry{Module: m, State: state})
	}
	return ret
}
