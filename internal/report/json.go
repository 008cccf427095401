package report

import (
	"encoding/json"
	"fmt"

	"github.com/xxxsen/readiness/internal/model"
)

func MarshalJSON(r *model.AssessmentReport) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("report is nil")
	}
	return json.MarshalIndent(r, "", "  ")
}

func UnmarshalJSON(data []byte) (*model.AssessmentReport, error) {
	var r model.AssessmentReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}

func FileName(r *model.AssessmentReport, ext string) string {
	return fmt.Sprintf("%s.%s", r.ReportID, ext)
}
