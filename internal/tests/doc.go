// Package tests 是 ezyflow 的内部测试模块。
//
// 此包位于 internal/ 目录下，外部项目无法导入。
//
// 测试内容
//
// 此模块只通过 workflow.AppService 这个对外接口测试：
//   - 应用设计: 新建、加模块、改模块、删模块、权限、发布
//   - 请求流转: 提交、审批、驳回、完成、终止状态
//   - 待办查询、看板统计、请求进度
//   - sqlite / redis 两种存储, 多实例共享存储时的并发写入
//
// 运行测试
//
// 在项目根目录：
//
//	go test ./internal/tests/...
//
// 查看覆盖率：
//
//	go test -coverprofile=coverage.out -coverpkg=github.com/blingmoon/ezyflow/workflow ./internal/tests/...
//	go tool cover -html=coverage.out
package tests
