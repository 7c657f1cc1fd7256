package usecase

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"
	"github.com/shandysiswandi/authflow/internal/pkg/goerror"
	"github.com/shandysiswandi/authflow/internal/pkg/mfa"
	"github.com/shandysiswandi/authflow/internal/pkg/storage"
)

type ExportBackupCodesInput struct {
	UserID int64
	Codes  []string `validate:"required,min=1"`
}

type ExportBackupCodesOutput struct {
	Name      string
	Location  string
	Encrypted bool
}

// ExportBackupCodes writes the codes, one per line, to the export storage.
func (s *Usecase) ExportBackupCodes(ctx context.Context, in ExportBackupCodesInput) (*ExportBackupCodesOutput, error) {
	ctx, span := s.startSpan(ctx, "ExportBackupCodes")
	defer span.End()

	in.Codes = lo.FilterMap(in.Codes, func(c string, _ int) (string, bool) {
		c = strings.TrimSpace(c)
		return c, c != ""
	})

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	content := []byte(strings.Join(in.Codes, "\n"))
	name := fmt.Sprintf("socialpluse-backup-codes-%d.txt", s.clock.Now().UnixMilli())
	contentType := "text/plain"

	if s.encryptor != nil {
		sealed, err := s.encryptor.Encrypt(content, mfa.Scope{UserID: in.UserID, Purpose: mfa.PurposeBackupCodes})
		if err != nil {
			slog.ErrorContext(ctx, "failed to encrypt backup codes", "user_id", in.UserID, "error", err)
			return nil, goerror.NewServer(err)
		}
		content = sealed
		name += ".enc"
		contentType = "application/octet-stream"
	}

	info, err := s.storage.PutObject(ctx, s.cfg.GetString("export.bucket"), name, bytes.NewReader(content), storage.PutOptions{
		Size:        int64(len(content)),
		ContentType: contentType,
	})
	if err != nil {
		span.RecordError(err)
		slog.ErrorContext(ctx, "failed to store backup codes", "user_id", in.UserID, "name", name, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &ExportBackupCodesOutput{
		Name:      name,
		Location:  info.Location,
		Encrypted: s.encryptor != nil,
	}, nil
}
