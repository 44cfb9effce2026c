package syncer

import (
	"context"

	"github.com/cybermouflons/CTFNote/models"
	"github.com/cybermouflons/CTFNote/repositories"
)

// TaskRef — маркированный вариант "задача по ID либо полная запись".
// Разрешается в каноническую форму ровно один раз, на границе обработчика.
type TaskRef struct {
	id   int
	task *models.Task
}

func TaskByID(id int) TaskRef {
	return TaskRef{id: id}
}

func TaskRecord(task *models.Task) TaskRef {
	return TaskRef{task: task}
}

// Resolve возвращает полную запись задачи, запрашивая её при
// необходимости через переданный executor.
func (r TaskRef) Resolve(ctx context.Context, exec repositories.SQLExecutor, repo repositories.TaskRepository) (*models.Task, error) {
	if r.task != nil {
		return r.task, nil
	}
	return repo.GetByID(ctx, exec, r.id)
}
