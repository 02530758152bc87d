package application

import (
	"context"
	"fmt"

	"github.com/jeremiehuchet/chatops-bot/internal/domain"
	"go.uber.org/zap"
)

// ReleaseUseCase merges develop into master and tags the result.
type ReleaseUseCase struct {
	log *zap.Logger
	gl  domain.ReleaseClient
}

func NewReleaseUseCase(log *zap.Logger, gl domain.ReleaseClient) *ReleaseUseCase {
	return &ReleaseUseCase{log: log, gl: gl}
}

// Release forces the project's merge method to a plain merge for the
// duration of the release, opens and accepts a develop→master merge
// request, tags master with the version, then restores the saved merge
// method even when a step failed.
func (u *ReleaseUseCase) Release(ctx context.Context, projectPath, version string) error {
	p, err := u.gl.GetProject(ctx, projectPath)
	if err != nil {
		return fmt.Errorf("resolve project %s: %w", projectPath, err)
	}

	savedMergeMethod := p.MergeMethod
	if err := u.gl.SetMergeMethod(ctx, p.ID, "merge"); err != nil {
		return fmt.Errorf("set merge method: %w", err)
	}
	defer func() {
		if err := u.gl.SetMergeMethod(ctx, p.ID, savedMergeMethod); err != nil {
			u.log.Warn("restore merge method failed",
				zap.Int64("project", p.ID),
				zap.String("merge_method", savedMergeMethod),
				zap.Error(err))
		}
	}()

	title := fmt.Sprintf("Release %s", version)

	mr, err := u.gl.CreateMergeRequest(ctx, p.ID, "develop", "master", title)
	if err != nil {
		return fmt.Errorf("create merge request: %w", err)
	}
	if err := u.gl.AcceptMergeRequest(ctx, mr.ProjectID, mr.IID); err != nil {
		return fmt.Errorf("accept merge request !%d: %w", mr.IID, err)
	}
	if err := u.gl.CreateTag(ctx, p.ID, version, "master", title); err != nil {
		return fmt.Errorf("tag %s: %w", version, err)
	}

	return nil
}
