package main

// csv作为应用存储的数据源

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/blingmoon/ezyflow/internal/commonregister"
	"github.com/blingmoon/ezyflow/workflow"
	"github.com/pkg/errors"
)

var _ workflow.AppStoreRepo = (*CsvRepo)(nil)

var csvHeader = []string{"namespace", "revision", "data"}

// CsvRepo 一个csv文件, 一行一个namespace: namespace,revision,data(应用列表json)
type CsvRepo struct {
	file string
	mu   sync.Mutex
}

// NewCsvRepo 创建 CSV 存储实现, 文件不存在时创建并写入表头
func NewCsvRepo(file string) (*CsvRepo, error) {
	repo := &CsvRepo{file: file}
	if _, err := os.Stat(file); os.IsNotExist(err) {
		if err := repo.writeRows(map[string]*workflow.Blob{}); err != nil {
			return nil, err
		}
	}
	return repo, nil
}

func (c *CsvRepo) readRows() (map[string]*workflow.Blob, error) {
	file, err := os.Open(c.file)
	if err != nil {
		return nil, errors.WithMessagef(err, "open %s failed", c.file)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, errors.WithMessagef(err, "read %s failed", c.file)
	}
	rows := make(map[string]*workflow.Blob, len(records))
	for i, record := range records {
		if i == 0 {
			// 表头
			continue
		}
		if len(record) != len(csvHeader) {
			return nil, errors.Errorf("line %d has %d columns", i+1, len(record))
		}
		revision, err := strconv.ParseInt(record[1], 10, 64)
		if err != nil {
			return nil, errors.WithMessagef(err, "line %d revision", i+1)
		}
		rows[record[0]] = &workflow.Blob{Data: []byte(record[2]), Revision: revision}
	}
	return rows, nil
}

// writeRows 先写临时文件再改名, 不会留下写了一半的文件
func (c *CsvRepo) writeRows(rows map[string]*workflow.Blob) error {
	tmp := c.file + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return errors.WithMessagef(err, "create %s failed", tmp)
	}
	writer := csv.NewWriter(file)
	_ = writer.Write(csvHeader)
	for namespace, blob := range rows {
		_ = writer.Write([]string{namespace, strconv.FormatInt(blob.Revision, 10), string(blob.Data)})
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return errors.WithMessagef(err, "write %s failed", tmp)
	}
	if err := file.Close(); err != nil {
		return errors.WithMessagef(err, "close %s failed", tmp)
	}
	return os.Rename(tmp, c.file)
}

func (c *CsvRepo) Load(ctx context.Context, namespace string) (*workflow.Blob, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rows, err := c.readRows()
	if err != nil {
		return nil, err
	}
	if blob, ok := rows[namespace]; ok {
		return blob, nil
	}
	return &workflow.Blob{}, nil
}

func (c *CsvRepo) Save(ctx context.Context, namespace string, data []byte, expectedRevision int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rows, err := c.readRows()
	if err != nil {
		return 0, err
	}
	var current int64
	if blob, ok := rows[namespace]; ok {
		current = blob.Revision
	}
	if current != expectedRevision {
		return 0, errors.WithMessagef(workflow.ErrStoreRevisionConflict, "namespace: %s, expected: %d, current: %d", namespace, expectedRevision, current)
	}
	rows[namespace] = &workflow.Blob{Data: data, Revision: current + 1}
	if err := c.writeRows(rows); err != nil {
		return 0, err
	}
	return current + 1, nil
}

// Delete 行留着, 只清空data, revision加一
func (c *CsvRepo) Delete(ctx context.Context, namespace string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rows, err := c.readRows()
	if err != nil {
		return 0, err
	}
	blob, ok := rows[namespace]
	if !ok {
		return 0, nil
	}
	rows[namespace] = &workflow.Blob{Revision: blob.Revision + 1}
	if err := c.writeRows(rows); err != nil {
		return 0, err
	}
	return blob.Revision + 1, nil
}

func main() {
	repo, err := NewCsvRepo("ezyflow_apps.csv")
	if err != nil {
		panic(err)
	}
	service := workflow.NewAppService(repo, workflow.NewLocalAppStoreLock())
	ctx := context.Background()

	// 注册报销审批应用
	app, err := commonregister.RegisterExpenseApproval(ctx, service, &commonregister.ExpenseApprovalParams{
		OwnerID:   "1",
		ManagerID: "2",
		FinanceID: "3",
	})
	if err != nil {
		panic(err)
	}

	request, err := service.SubmitRequest(ctx, &workflow.SubmitRequestReq{
		AppID: app.ID,
		Data: map[string]string{
			commonregister.ExpenseFieldTitle:    "ORDER-2024-001",
			commonregister.ExpenseFieldAmount:   "1000",
			commonregister.ExpenseFieldCategory: "Equipment",
		},
		ActorID: "4",
	})
	if err != nil {
		panic(err)
	}
	fmt.Printf("submitted %s, waiting for manager %s\n", request.ID, "2")
}
