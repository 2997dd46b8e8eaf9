// Package workflow 提供 ezyflow 低代码工作流应用的设计和运行功能。
//
// 一个应用(Application)是一串有序的模块(Module), 用户在画布上拖拽模块设计流程,
// 发布后就可以提交请求(LiveRequest), 请求按模块顺序一步一步流转, 每一步都会记录历史。
//
// 主要特性：
//   - 纯函数引擎：提交和流转都不修改入参, 返回新的应用快照
//   - 持久化：整个应用列表按 namespace 存成一个带版本号的 blob, 支持内存、GORM、Redis
//   - 并发安全：写操作在本地锁或 Redis 分布式锁里执行, 版本号冲突时重新读取再重试
//   - 存储出错时保留内存里的数据, 下一次写入时再对齐
//   - 统计和时间线：应用数、待处理请求数、完成率、请求时间线
//
// 基础使用示例:
//
//	package main
//
//	import (
//	    "context"
//
//	    "github.com/blingmoon/ezyflow/workflow"
//	    "gorm.io/driver/sqlite"
//	    "gorm.io/gorm"
//	)
//
//	func main() {
//	    ctx := context.Background()
//
//	    // 1. 初始化数据库
//	    db, _ := gorm.Open(sqlite.Open("ezyflow.db"), &gorm.Config{})
//	    db.AutoMigrate(&workflow.AppBlobPo{})
//
//	    // 2. 创建应用服务
//	    repo := workflow.NewGormAppStoreRepo(db)
//	    service := workflow.NewAppService(repo, workflow.NewLocalAppStoreLock())
//
//	    // 3. 设计应用: 提交 -> 审批
//	    app, _ := service.CreateApplication(ctx, &workflow.CreateApplicationReq{
//	        Name: "报销", Department: "财务", ActorID: "1",
//	    })
//	    service.AddModule(ctx, &workflow.AddModuleReq{AppID: app.ID, Kind: workflow.ModuleKindStart, ActorID: "1"})
//	    service.AddModule(ctx, &workflow.AddModuleReq{AppID: app.ID, Kind: workflow.ModuleKindApproval, ActorID: "1"})
//	    service.PublishApplication(ctx, &workflow.PublishApplicationReq{AppID: app.ID, ActorID: "1"})
//
//	    // 4. 提交请求, 审批人处理
//	    request, _ := service.SubmitRequest(ctx, &workflow.SubmitRequestReq{
//	        AppID:   app.ID,
//	        Data:    map[string]string{workflow.DefaultFormFieldLabel: "出差报销"},
//	        ActorID: "20",
//	    })
//	    service.ActOnRequest(ctx, &workflow.ActOnRequestReq{
//	        AppID: app.ID, RequestID: request.ID, Action: workflow.ActionApproved, ActorID: "1",
//	    })
//	}
//
// 请求流转规则：
//
//   - 提交时请求停在第一个 start 模块上, 没有 start 模块就停在第一个模块上
//   - 当前模块的负责人才能处理请求, 可用动作由模块类型决定
//   - REJECTED 在非最后一个模块上直接结束请求
//   - 在最后一个模块上处理后请求 completed
//   - 其余情况请求前进到下一个模块, 保持 pending
//
// 更多示例和文档请访问: https://github.com/blingmoon/ezyflow
package workflow
