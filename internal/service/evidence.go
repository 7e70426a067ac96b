package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rmcmillan34/edge-journal/internal/apperr"
	"github.com/rmcmillan34/edge-journal/internal/models"
)

type EvidenceInput struct {
	FieldKey   string  `json:"field_key"`
	SourceKind string  `json:"source_kind"`
	SourceID   *uint64 `json:"source_id,omitempty"`
	URL        string  `json:"url,omitempty"`
	Note       string  `json:"note,omitempty"`
}

// AddEvidence attaches supporting material to one field of a response. Evidence
// never changes the response's score.
func (s *PlaybookService) AddEvidence(ctx context.Context, userID, responseID uint64, in EvidenceInput) (*models.PlaybookEvidence, error) {
	resp, err := s.Repo.GetResponse(ctx, userID, responseID)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, apperr.NotFound("playbook response", responseID)
	}
	tpl, err := s.Repo.GetTemplate(ctx, userID, resp.TemplateID)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return nil, apperr.NotFound("template", resp.TemplateID)
	}
	rec, err := templateFromModel(tpl)
	if err != nil {
		return nil, err
	}

	in.FieldKey = strings.TrimSpace(in.FieldKey)
	in.SourceKind = strings.ToLower(strings.TrimSpace(in.SourceKind))
	in.URL = strings.TrimSpace(in.URL)

	var problems []string
	known := false
	for _, f := range rec.Schema {
		if f.Key == in.FieldKey {
			known = true
			break
		}
	}
	if !known {
		problems = append(problems, fmt.Sprintf("field %q is not in template %s v%d", in.FieldKey, rec.Name, rec.Version))
	}
	item := &models.PlaybookEvidence{
		ResponseID: responseID,
		UserID:     userID,
		FieldKey:   in.FieldKey,
		SourceKind: in.SourceKind,
		Note:       strings.TrimSpace(in.Note),
	}
	switch in.SourceKind {
	case models.EvidenceKindURL:
		u, err := url.Parse(in.URL)
		if in.URL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			problems = append(problems, "url evidence needs an absolute http(s) url")
		} else {
			item.URL = &in.URL
		}
	case models.EvidenceKindTrade:
		if in.SourceID == nil || *in.SourceID == 0 {
			problems = append(problems, "trade evidence needs source_id")
			break
		}
		trade, err := s.Repo.GetTrade(ctx, userID, *in.SourceID)
		if err != nil {
			return nil, err
		}
		if trade == nil {
			problems = append(problems, fmt.Sprintf("trade %d does not exist", *in.SourceID))
		}
		item.SourceID = in.SourceID
	case models.EvidenceKindJournal:
		if in.SourceID == nil || *in.SourceID == 0 {
			problems = append(problems, "journal evidence needs source_id")
		}
		item.SourceID = in.SourceID
	default:
		problems = append(problems, fmt.Sprintf("source_kind must be one of url, trade, journal (got %q)", in.SourceKind))
	}
	if err := apperr.Validation(problems...); err != nil {
		return nil, err
	}
	if err := s.Repo.InsertEvidence(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *PlaybookService) ListEvidence(ctx context.Context, userID, responseID uint64) ([]models.PlaybookEvidence, error) {
	resp, err := s.Repo.GetResponse(ctx, userID, responseID)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, apperr.NotFound("playbook response", responseID)
	}
	items, err := s.Repo.ListEvidence(ctx, userID, responseID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.PlaybookEvidence{}
	}
	return items, nil
}

func (s *PlaybookService) RemoveEvidence(ctx context.Context, userID, responseID, evidenceID uint64) error {
	found, err := s.Repo.DeleteEvidence(ctx, userID, responseID, evidenceID)
	if err != nil {
		return err
	}
	if !found {
		return apperr.NotFound("evidence", evidenceID)
	}
	return nil
}
