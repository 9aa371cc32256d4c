package models

// Versioned is implemented by every aggregate document written with
// compare-and-swap. Version 0 means the document has never been stored.
type Versioned interface {
	DocID() string
	DocVersion() int64
	SetDocVersion(v int64)
}

func (p *Project) DocID() string         { return p.ID }
func (p *Project) DocVersion() int64     { return p.Version }
func (p *Project) SetDocVersion(v int64) { p.Version = v }

func (l *ApprovalLedger) DocID() string         { return l.ProjectID }
func (l *ApprovalLedger) DocVersion() int64     { return l.Version }
func (l *ApprovalLedger) SetDocVersion(v int64) { l.Version = v }

func (l *SupervisionLedger) DocID() string         { return l.ProjectID }
func (l *SupervisionLedger) DocVersion() int64     { return l.Version }
func (l *SupervisionLedger) SetDocVersion(v int64) { l.Version = v }

func (d *SelectionDoc) DocID() string         { return d.ProjectID }
func (d *SelectionDoc) DocVersion() int64     { return d.Version }
func (d *SelectionDoc) SetDocVersion(v int64) { d.Version = v }

func (d *SubmissionDoc) DocID() string         { return d.ID }
func (d *SubmissionDoc) DocVersion() int64     { return d.Version }
func (d *SubmissionDoc) SetDocVersion(v int64) { d.Version = v }

func (d *ReviewDoc) DocID() string         { return d.ID }
func (d *ReviewDoc) DocVersion() int64     { return d.Version }
func (d *ReviewDoc) SetDocVersion(v int64) { d.Version = v }

func (s *StudentRating) DocID() string         { return s.Email }
func (s *StudentRating) DocVersion() int64     { return s.Version }
func (s *StudentRating) SetDocVersion(v int64) { s.Version = v }
