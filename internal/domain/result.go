package domain

import "errors"

// Succeeded builds a successful result.
func Succeeded(result interface{}, message string) ToolCallResult {
	return ToolCallResult{Success: true, Result: result, Message: message}
}

// Failed builds a failed result from any error. Errors that are not a
// *ToolError become EXECUTION_ERROR.
func Failed(err error) ToolCallResult {
	if err == nil {
		err = errors.New("unknown error")
	}
	te := AsToolError(err)
	r := ToolCallResult{Success: false, Error: te.Kind, Message: te.Message}
	if len(te.Candidates) > 0 {
		r.Result = map[string]interface{}{"candidates": te.Candidates}
	}
	return r
}

// WithBackup returns a copy of r that references backup id.
func (r ToolCallResult) WithBackup(id int64) ToolCallResult {
	r.BackupID = &id
	return r
}
