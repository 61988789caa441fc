package services

import (
	"context"
	"errors"
	"net/http"

	"github.com/yungbote/agepredict-backend/internal/domain"
	"github.com/yungbote/agepredict-backend/internal/inference/client"
	"github.com/yungbote/agepredict-backend/internal/platform/apierr"
	"github.com/yungbote/agepredict-backend/internal/questionnaire"
	"github.com/yungbote/agepredict-backend/internal/session"
)

var flowErrCodes = []struct {
	err    error
	status int
	code   string
}{
	{session.ErrNoModalities, http.StatusBadRequest, "no_modalities"},
	{session.ErrDuplicateModality, http.StatusBadRequest, "duplicate_modality"},
	{domain.ErrUnknownModality, http.StatusBadRequest, "unknown_modality"},
	{ErrEmptyText, http.StatusBadRequest, "empty_text"},
	{ErrMissingFile, http.StatusBadRequest, "missing_file"},
	{ErrNotUpload, http.StatusBadRequest, "not_upload_modality"},
	{questionnaire.ErrOptionOutOfRange, http.StatusBadRequest, "option_out_of_range"},

	{session.ErrNotFound, http.StatusNotFound, "session_not_found"},

	{session.ErrNotSelected, http.StatusConflict, "modality_not_selected"},
	{session.ErrAlreadyCompleted, http.StatusConflict, "modality_completed"},
	{session.ErrSubmissionInFlight, http.StatusConflict, "submission_in_flight"},
	{session.ErrStaleEpoch, http.StatusConflict, "stale_session"},
	{session.ErrFlowStarted, http.StatusConflict, "flow_started"},
	{questionnaire.ErrFinished, http.StatusConflict, "questionnaire_finished"},
	{ErrFlowIncomplete, http.StatusConflict, "flow_incomplete"},
}

// mapErr attaches an HTTP status and code to a flow error. Unknown errors pass
// through and surface as 500.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	for _, e := range flowErrCodes {
		if errors.Is(err, e.err) {
			return apierr.New(e.status, e.code, err)
		}
	}
	return err
}

// mapAdapterErr classifies a failed prediction call. All of them leave the
// session untouched, so the client may retry.
func mapAdapterErr(err error) error {
	var herr *client.HTTPError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apierr.BadGateway("prediction_timeout", err)
	case errors.Is(err, client.ErrNoLabel):
		return apierr.BadGateway("prediction_no_label", err)
	case errors.As(err, &herr):
		return apierr.BadGateway("prediction_failed", err)
	default:
		return apierr.BadGateway("prediction_unavailable", err)
	}
}
