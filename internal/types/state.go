package types

// ApplicationState is the record threaded through the pipeline.
// Stages receive it by value and return a new value with only their own fields set.
type ApplicationState struct {
	JobURL        string         `json:"job_url,omitempty"`
	JobText       string         `json:"job_text,omitempty"`
	JobAnalysis   *JobAnalysis   `json:"job_analysis,omitempty"`
	MatchAnalysis *MatchAnalysis `json:"match_analysis,omitempty"`
	WriterOutput  *WriterOutput  `json:"writer_output,omitempty"`
	AdvisorOutput *AdvisorOutput `json:"advisor_output,omitempty"`
	Error         string         `json:"error,omitempty"`
	OutputPath    string         `json:"output_path,omitempty"`
	// DBID is zero until the persistence stage stores the run.
	DBID int64 `json:"db_id,omitempty"`
}

// Failed reports whether a stage has recorded a terminal error.
func (s ApplicationState) Failed() bool {
	return s.Error != ""
}

// Complete reports whether all four outputs are present.
func (s ApplicationState) Complete() bool {
	return s.JobAnalysis != nil && s.MatchAnalysis != nil && s.WriterOutput != nil && s.AdvisorOutput != nil
}
