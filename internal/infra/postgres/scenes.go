package postgres

import (
	"context"
	"fmt"

	"github.com/TinhAnhGitHub/Shot-Detection/internal/domain/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var sceneColumns = []string{
	"job_id", "scene_index", "start_frame", "end_frame",
	"start_seconds", "end_seconds", "keyframes", "keyframe_files",
}

type SceneRepository struct {
	pool *pgxpool.Pool
}

func NewSceneRepository(pool *pgxpool.Pool) *SceneRepository {
	return &SceneRepository{pool: pool}
}

// ReplaceScenes swaps the stored scenes of a job in one transaction, so a
// retried job never leaves scenes from an earlier attempt behind.
func (r *SceneRepository) ReplaceScenes(ctx context.Context, jobID uuid.UUID, scenes []entity.SceneRecord) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM scenes WHERE job_id=$1`, jobID); err != nil {
			return fmt.Errorf("delete scenes: %w", err)
		}

		rows := make([][]any, len(scenes))
		for i, s := range scenes {
			files := s.KeyframeKeys
			if files == nil {
				files = []string{}
			}
			rows[i] = []any{
				jobID, s.Index, s.StartFrame, s.EndFrame,
				s.StartSeconds, s.EndSeconds, s.Keyframes, files,
			}
		}

		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"scenes"}, sceneColumns, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("copy scenes: %w", err)
		}
		return nil
	})
}

func (r *SceneRepository) ListScenes(ctx context.Context, jobID uuid.UUID) ([]entity.SceneRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT scene_index, start_frame, end_frame, start_seconds, end_seconds, keyframes, keyframe_files
		FROM scenes WHERE job_id=$1 ORDER BY scene_index`, jobID)
	if err != nil {
		return nil, fmt.Errorf("query scenes: %w", err)
	}
	defer rows.Close()

	var scenes []entity.SceneRecord
	for rows.Next() {
		s := entity.SceneRecord{JobID: jobID}
		if err := rows.Scan(&s.Index, &s.StartFrame, &s.EndFrame, &s.StartSeconds, &s.EndSeconds, &s.Keyframes, &s.KeyframeKeys); err != nil {
			return nil, fmt.Errorf("scan scene: %w", err)
		}
		scenes = append(scenes, s)
	}
	return scenes, rows.Err()
}
