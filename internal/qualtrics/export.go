package qualtrics

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Well-known metadata columns of a response export.
const (
	ColRecipientEmail = "RecipientEmail"
	ColRecordedDate   = "RecordedDate"
	ColFinished       = "Finished"
)

// Export progress states.
const (
	exportComplete   = "complete"
	exportFailed     = "failed"
	exportInProgress = "inProgress"
)

// ResponseExport is a parsed response export. Fields preserves the column
// order of the file; Labels maps an export tag (e.g. "Q2") to the question
// label shown to respondents; Rows holds one tag-to-value map per response.
type ResponseExport struct {
	Fields []string
	Labels map[string]string
	Rows   []map[string]string
}

// Label returns the human label of a column, or "" when unknown.
func (e *ResponseExport) Label(tag string) string {
	return e.Labels[tag]
}

// ExportResponses runs the platform's asynchronous export flow for a survey:
// start a CSV export, poll until it finishes, download the zip archive and
// parse the CSV inside. Answer values are exported as their choice labels,
// which for scored questions are the numeric score options.
func (c *Client) ExportResponses(ctx context.Context, surveyID string) (*ResponseExport, error) {
	const op = "export responses"

	var started result[struct {
		ProgressID string `json:"progressId"`
	}]
	body := map[string]any{"useLabels": true, "format": "csv"}
	base := fmt.Sprintf("/surveys/%s/export-responses/", surveyID)
	if err := c.do(ctx, op, http.MethodPost, base, body, &started); err != nil {
		return nil, err
	}

	var fileID string
	for {
		var prog result[struct {
			Status          string  `json:"status"`
			PercentComplete float64 `json:"percentComplete"`
			FileID          string  `json:"fileId"`
		}]
		if err := c.do(ctx, op, http.MethodGet, base+started.Result.ProgressID, nil, &prog); err != nil {
			return nil, err
		}
		if prog.Result.Status == exportFailed {
			return nil, fmt.Errorf("%s: platform reported export failure for survey %s", op, surveyID)
		}
		if prog.Result.Status == exportComplete {
			fileID = prog.Result.FileID
			break
		}
		slog.Debug("export in progress", "survey", surveyID, "percent", prog.Result.PercentComplete)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.PollInterval):
		}
	}
	if fileID == "" {
		return nil, fmt.Errorf("%s: export completed without a file id", op)
	}

	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL+base+fileID+"/file", nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, apiError(op, resp)
	}
	archive, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read archive: %w", op, err)
	}
	return parseExportZip(archive)
}

// parseExportZip extracts the first CSV from an export archive and parses it.
func parseExportZip(archive []byte) (*ResponseExport, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("export responses: open archive: %w", err)
	}
	for _, f := range zr.File {
		if !strings.HasSuffix(f.Name, ".csv") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("export responses: open %s: %w", f.Name, err)
		}
		defer rc.Close()
		return parseResponsesCSV(rc)
	}
	return nil, fmt.Errorf("export responses: archive contains no CSV")
}

// parseResponsesCSV parses the export CSV layout: a header row of export
// tags, a row of question labels, a row of import metadata, then data rows.
// The file may start with a UTF-8 byte order mark, which is stripped.
func parseResponsesCSV(r io.Reader) (*ResponseExport, error) {
	cr := csv.NewReader(transform.NewReader(r, unicode.UTF8BOM.NewDecoder()))
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("export responses: parse CSV: %w", err)
	}
	if len(records) < 3 {
		return nil, fmt.Errorf("export responses: CSV has %d header rows, want 3", len(records))
	}

	fields := records[0]
	labels := make(map[string]string, len(fields))
	for i, tag := range fields {
		labels[tag] = records[1][i]
	}

	export := &ResponseExport{Fields: fields, Labels: labels}
	for _, rec := range records[3:] {
		row := make(map[string]string, len(fields))
		for i, tag := range fields {
			if i < len(rec) {
				row[tag] = rec[i]
			}
		}
		export.Rows = append(export.Rows, row)
	}
	return export, nil
}
