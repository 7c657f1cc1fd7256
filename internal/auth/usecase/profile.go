package usecase

import (
	"context"

	"github.com/shandysiswandi/authflow/internal/auth/entity"
	"github.com/shandysiswandi/authflow/internal/pkg/goerror"
)

func (s *Usecase) Profile(ctx context.Context) (*entity.User, error) {
	ctx, span := s.startSpan(ctx, "Profile")
	defer span.End()

	if !s.session.IsAuthenticated() {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	return s.api.Profile(ctx)
}
