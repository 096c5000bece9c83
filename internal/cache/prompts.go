package cache

import (
	"context"
	"database/sql"
	"encoding/json"
)

// GetPromptAnswer reads a stored answer for a prompt id in a work
// directory, returning (nil, nil) if none is recorded.
func (s *Store) GetPromptAnswer(ctx context.Context, workdirID, promptID string) (any, error) {
	var answerJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT answer_json FROM prompt_answers WHERE workdir_id = ? AND prompt_id = ?`,
		workdirID, promptID).Scan(&answerJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapIOErr(s.paths.CacheDBPath(), err)
	}

	var answer any
	if err := json.Unmarshal([]byte(answerJSON), &answer); err != nil {
		return nil, err
	}
	return answer, nil
}

// PutPromptAnswer records the answer a user gave to an interactive
// prompt, keyed by work directory and prompt id.
func (s *Store) PutPromptAnswer(ctx context.Context, workdirID, promptID string, answer any) error {
	answerJSON, err := json.Marshal(answer)
	if err != nil {
		return err
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO prompt_answers (workdir_id, prompt_id, answer_json)
			VALUES (?, ?, ?)
			ON CONFLICT(workdir_id, prompt_id) DO UPDATE SET answer_json = excluded.answer_json`,
			workdirID, promptID, string(answerJSON))
		return wrapIOErr(s.paths.CacheDBPath(), err)
	})
}
