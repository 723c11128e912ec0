package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/academic-engine/internal/models"
	appErrors "github.com/noah-isme/academic-engine/pkg/errors"
)

type prerequisiteGraph interface {
	ListPrerequisites(ctx context.Context, courseID string) ([]models.Course, error)
	HasPassed(ctx context.Context, studentID, courseID string) (bool, error)
}

// PrerequisiteResolver decides whether a student has completed every course a course depends on.
type PrerequisiteResolver struct {
	graph  prerequisiteGraph
	logger *zap.Logger
}

// NewPrerequisiteResolver constructs the resolver.
func NewPrerequisiteResolver(graph prerequisiteGraph, logger *zap.Logger) *PrerequisiteResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrerequisiteResolver{graph: graph, logger: logger}
}

// Check walks the prerequisite graph of courseID depth first. Each prerequisite must have been
// passed, and its own prerequisites are checked in turn. Courses already seen in this call are
// treated as satisfied, which keeps cyclic catalogues from looping.
//
// The returned error is PREREQUISITE_NOT_MET wrapping a *models.PrerequisiteError.
func (r *PrerequisiteResolver) Check(ctx context.Context, courseID, studentID string) error {
	visited := map[string]struct{}{courseID: {}}
	unmet, err := r.walk(ctx, courseID, studentID, visited)
	if err != nil {
		return appErrors.Internal(err, "failed to resolve prerequisites")
	}
	if unmet != nil {
		r.logger.Debug("prerequisite not met",
			zap.String("student_id", studentID),
			zap.String("course_id", courseID),
			zap.String("prerequisite", unmet.PrerequisiteCode))
		wrapped := appErrors.Clone(appErrors.ErrPrerequisiteNotMet, "")
		wrapped.Err = unmet
		return wrapped
	}
	return nil
}

// IsSatisfied is the boolean form of Check. Store failures are still returned.
func (r *PrerequisiteResolver) IsSatisfied(ctx context.Context, courseID, studentID string) (bool, error) {
	err := r.Check(ctx, courseID, studentID)
	if err == nil {
		return true, nil
	}
	var unmet *models.PrerequisiteError
	if errors.As(err, &unmet) {
		return false, nil
	}
	return false, err
}

func (r *PrerequisiteResolver) walk(ctx context.Context, courseID, studentID string, visited map[string]struct{}) (*models.PrerequisiteError, error) {
	prereqs, err := r.graph.ListPrerequisites(ctx, courseID)
	if err != nil {
		return nil, err
	}
	for _, prereq := range prereqs {
		if _, seen := visited[prereq.ID]; seen {
			continue
		}
		visited[prereq.ID] = struct{}{}

		passed, err := r.graph.HasPassed(ctx, studentID, prereq.ID)
		if err != nil {
			return nil, err
		}
		if !passed {
			return &models.PrerequisiteError{CourseID: courseID, PrerequisiteID: prereq.ID, PrerequisiteCode: prereq.Code}, nil
		}
		unmet, err := r.walk(ctx, prereq.ID, studentID, visited)
		if err != nil || unmet != nil {
			return unmet, err
		}
	}
	return nil, nil
}
