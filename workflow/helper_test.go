package workflow

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fixedCatalog 模块id按顺序生成: m1, m2, ...
func fixedCatalog() *Catalog {
	seq := 0
	return NewCatalog(WithModuleIDGenerator(func() string {
		seq++
		return fmt.Sprintf("m%d", seq)
	}))
}

// stepClock 每次调用前进一秒
func stepClock(start time.Time) func() time.Time {
	now := start
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

// buildApp 按类型顺序建一个已发布的应用
func buildApp(t *testing.T, kinds ...ModuleKind) *Application {
	t.Helper()
	catalog := fixedCatalog()
	app, err := NewApplication("app-1", "报销", "财务")
	require.NoError(t, err)
	for _, kind := range kinds {
		module, err := catalog.NewModule(kind)
		require.NoError(t, err)
		app, err = AppendModule(app, module)
		require.NoError(t, err)
	}
	return Publish(app)
}

func titleData() map[string]string {
	return map[string]string{DefaultFormFieldLabel: "出差报销"}
}
