package quantquery

import (
	"encoding/json"
	"fmt"
)

const defaultHistoryLimit = 50

// saveAnalysis persists a completed analysis run.
func (c *Core) saveAnalysis(query string, result *AgentResult) (int64, error) {
	summariesJSON, err := json.Marshal(result.ToolSummaries)
	if err != nil {
		return 0, fmt.Errorf("marshal tool_summaries: %w", err)
	}
	res, err := c.db.Exec(`
		INSERT INTO analysis_history (query, summary, tool_summaries)
		VALUES (?, ?, ?)
	`, query, result.Summary, string(summariesJSON))
	if err != nil {
		return 0, WrapError(ErrCodeDatabase, "insert analysis history", err)
	}
	return res.LastInsertId()
}

// ListAnalysisHistory returns recent analysis runs, newest first.
func (c *Core) ListAnalysisHistory(limit int) ([]AnalysisRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	rows, err := c.db.Query(`
		SELECT id, query, summary, tool_summaries, created_at
		FROM analysis_history
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "query analysis history", err)
	}
	defer rows.Close()

	records := []AnalysisRecord{}
	for rows.Next() {
		var record AnalysisRecord
		var summariesJSON string
		if err := rows.Scan(&record.ID, &record.Query, &record.Summary, &summariesJSON, &record.CreatedAt); err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan analysis history", err)
		}
		if err := json.Unmarshal([]byte(summariesJSON), &record.ToolSummaries); err != nil {
			record.ToolSummaries = map[string]string{}
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
