package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/EduCollab-AI/EduCollab-Backend/internal/dto"
	appErrors "github.com/EduCollab-AI/EduCollab-Backend/pkg/errors"
	"github.com/EduCollab-AI/EduCollab-Backend/pkg/export"
)

// Supported summary export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

const (
	columnCourse    = "Course"
	columnTaken     = "Hours taken"
	columnPending   = "Pending hours"
	columnPaid      = "Total paid"
	summaryFilename = "student-summary-%s-%s.%s"
)

type summaryReader interface {
	GetStudentSummary(ctx context.Context, studentID string) (*dto.StudentSummaryResponse, error)
}

type documentRenderer interface {
	ContentType() string
	Extension() string
	Render(data export.Dataset) ([]byte, error)
}

// ExportService renders student summaries as downloadable documents.
type ExportService struct {
	summaries summaryReader
	renderers map[string]documentRenderer
	logger    *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults.
func NewExportService(summaries summaryReader, csv, pdf documentRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		summaries: summaries,
		renderers: map[string]documentRenderer{ExportFormatCSV: csv, ExportFormatPDF: pdf},
		logger:    logger,
	}
}

// ExportStudentSummary renders the student's summary in the requested format.
func (s *ExportService) ExportStudentSummary(ctx context.Context, studentID, format string) (*dto.SummaryExport, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}

	summary, err := s.summaries.GetStudentSummary(ctx, studentID)
	if err != nil {
		return nil, err
	}

	content, err := renderer.Render(summaryDataset(summary))
	if err != nil {
		s.logger.Error("summary export failed", zap.String("student_id", studentID), zap.String("format", format), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render summary")
	}

	return &dto.SummaryExport{
		Filename:    fmt.Sprintf(summaryFilename, summary.StudentID, summary.SummaryDate, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Content:     content,
	}, nil
}

func summaryDataset(summary *dto.StudentSummaryResponse) export.Dataset {
	rows := make([]map[string]string, 0, len(summary.Courses))
	for _, course := range summary.Courses {
		rows = append(rows, map[string]string{
			columnCourse:  course.CourseName,
			columnTaken:   course.HoursTaken.StringFixed(2),
			columnPending: course.PendingHours.StringFixed(2),
			columnPaid:    course.TotalPaidAmount.StringFixed(2),
		})
	}
	return export.Dataset{
		Title: "Student summary",
		Notes: []string{
			"Student: " + summary.StudentID,
			"As of: " + summary.SummaryDate,
		},
		Headers:        []string{columnCourse, columnTaken, columnPending, columnPaid},
		Rows:           rows,
		NumericColumns: []string{columnTaken, columnPending, columnPaid},
	}
}
