package history

import (
	"errors"
	"time"

	"github.com/BaSui01/seriesflow/demux"
	"github.com/BaSui01/seriesflow/session"
	"github.com/BaSui01/seriesflow/types"
)

// Role identifies which side of a session produced a record.
type Role string

const (
	RoleClient    Role = "client"
	RoleServer    Role = "server"
	RolePublisher Role = "publisher"
)

// Status is the outcome of a run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is one row of the runs table.
type Run struct {
	ID           uint64    `gorm:"primaryKey" json:"-"`
	RunID        string    `gorm:"column:run_id" json:"run_id"`
	SessionID    string    `gorm:"column:session_id" json:"session_id"`
	Role         Role      `json:"role"`
	Generator    string    `json:"generator"`
	Transport    string    `json:"transport"`
	DataType     string    `gorm:"column:data_type" json:"data_type,omitempty"`
	Subject      string    `json:"subject,omitempty"`
	Cycles       int       `json:"cycles"`
	Partial      int       `json:"partial"`
	Dropped      int       `json:"dropped"`
	Frames       int       `json:"frames"`
	ValueCount   int64     `gorm:"column:value_count" json:"values"`
	Status       Status    `json:"status"`
	ErrorCode    string    `gorm:"column:error_code" json:"error_code,omitempty"`
	ErrorMessage string    `gorm:"column:error_message" json:"error_message,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName binds Run to the migrated table.
func (Run) TableName() string { return "runs" }

// Duration is the wall time of the run.
func (r *Run) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// ClientRun describes a client session, successful or not.
func ClientRun(res session.Result, transport string, started, finished time.Time, err error) *Run {
	r := &Run{
		SessionID:  res.SessionID,
		Role:       RoleClient,
		Generator:  res.Generator,
		Transport:  transport,
		DataType:   string(res.Payload.DataType),
		Cycles:     res.Cycles,
		Partial:    res.Demux.Partial,
		Dropped:    res.Demux.Dropped,
		ValueCount: int64(res.Buffer.Delivered),
		StartedAt:  started,
		FinishedAt: finished,
	}
	r.setOutcome(err)
	return r
}

// StreamRun describes one server-side run of a generator.
type StreamRun struct {
	SessionID string
	Generator string
	Transport string
	Subject   string
	DataType  demux.DataType
	Frames    int
	Values    int
	Started   time.Time
	Finished  time.Time
	Err       error
}

// ServerRun converts a server-side run into a record with the given role.
func ServerRun(role Role, sr StreamRun) *Run {
	r := &Run{
		SessionID:  sr.SessionID,
		Role:       role,
		Generator:  sr.Generator,
		Transport:  sr.Transport,
		DataType:   string(sr.DataType),
		Subject:    sr.Subject,
		Frames:     sr.Frames,
		ValueCount: int64(sr.Values),
		StartedAt:  sr.Started,
		FinishedAt: sr.Finished,
	}
	r.setOutcome(sr.Err)
	return r
}

func (r *Run) setOutcome(err error) {
	if err == nil {
		r.Status = StatusCompleted
		return
	}
	r.Status = StatusFailed
	r.ErrorMessage = err.Error()
	var te *types.Error
	if errors.As(err, &te) {
		r.ErrorCode = string(te.Code)
	}
}
