package port

import (
	"context"

	"github.com/TinhAnhGitHub/Shot-Detection/internal/domain/entity"
	"github.com/google/uuid"
)

type JobRepository interface {
	Create(ctx context.Context, job *entity.Job) error
	Update(ctx context.Context, job *entity.Job) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error)
}

type SceneRepository interface {
	ReplaceScenes(ctx context.Context, jobID uuid.UUID, scenes []entity.SceneRecord) error
}
