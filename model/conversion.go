package model

import "time"

// JobState is the lifecycle state of a conversion job.
type JobState string

const (
	JobPending    JobState = "pending"
	JobConverting JobState = "converting"
	JobDone       JobState = "done"
	JobFailed     JobState = "failed"
)

// ConversionJob is the job record tracked from upload to download. It is
// stored as JSON in the job store; the status API returns the Status() view,
// which omits server-side paths.
type ConversionJob struct {
	ID          string    `json:"id"`
	SourceName  string    `json:"sourceName"` // original upload filename
	SourcePath  string    `json:"sourcePath"` // server-side path inside the job dir
	OutputPath  string    `json:"outputPath"`
	State       JobState  `json:"state"`
	Fraction    float64   `json:"fraction"` // heuristic progress, 0..1
	Label       string    `json:"label"`    // current stage description
	Message     string    `json:"message"`  // terminal user-facing status
	ErrorKind   string    `json:"errorKind,omitempty"`
	ArchiveURL  string    `json:"archiveUrl,omitempty"` // presigned object URL when archived
	CreatedAt   time.Time `json:"createdAt"`
	FinishedAt  time.Time `json:"finishedAt,omitempty"`
}

// JobStatus is the API representation of a job.
type JobStatus struct {
	ID          string    `json:"id"`
	SourceName  string    `json:"sourceName"`
	State       JobState  `json:"state"`
	Fraction    float64   `json:"fraction"`
	Label       string    `json:"label"`
	Message     string    `json:"message"`
	ErrorKind   string    `json:"errorKind,omitempty"`
	DownloadURL string    `json:"downloadUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Status builds the client-facing view of the job. A download URL is only
// present once the job has finished successfully.
func (j *ConversionJob) Status() *JobStatus {
	s := &JobStatus{
		ID:         j.ID,
		SourceName: j.SourceName,
		State:      j.State,
		Fraction:   j.Fraction,
		Label:      j.Label,
		Message:    j.Message,
		ErrorKind:  j.ErrorKind,
		CreatedAt:  j.CreatedAt,
	}
	if j.State == JobDone {
		if j.ArchiveURL != "" {
			s.DownloadURL = j.ArchiveURL
		} else {
			s.DownloadURL = "/api/jobs/" + j.ID + "/download"
		}
	}
	return s
}

// ProgressEvent is one update pushed over the job's websocket.
type ProgressEvent struct {
	JobID    string   `json:"jobId"`
	Fraction float64  `json:"fraction"`
	Label    string   `json:"label"`
	State    JobState `json:"state"`
	Message  string   `json:"message,omitempty"`
}

// ConversionRecord is the optional MySQL history row for a finished job.
type ConversionRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	JobID      string    `gorm:"size:36;index" json:"jobId"`
	SourceName string    `gorm:"size:255" json:"sourceName"`
	Outcome    string    `gorm:"size:32" json:"outcome"` // "success" or an error kind
	DurationMS int64     `json:"durationMs"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TableName keeps the history table name stable.
func (ConversionRecord) TableName() string {
	return "conversions"
}
