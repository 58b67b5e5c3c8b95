// internal/storage/models/submission.go
package models

import "time"

// Submission запись истории отправки вызова программы
type Submission struct {
	BaseModel
	SubmissionID  string  `gorm:"uniqueIndex;not null;type:varchar(36)"`
	Signature     string  `gorm:"index;type:varchar(88)"`
	Authority     string  `gorm:"index;not null;type:varchar(44)"`
	ProgramID     string  `gorm:"not null;type:varchar(44)"`
	Method        string  `gorm:"index;not null;type:varchar(64)"`
	Selector      string  `gorm:"not null;type:varchar(16)"`
	DataLen       int     `gorm:"not null"`
	State         string  `gorm:"not null;type:varchar(20)"`
	Outcome       string  `gorm:"type:varchar(20)"`
	ErrorKind     string  `gorm:"type:varchar(32)"`
	ErrorMessage  string  `gorm:"type:text"`
	Logs          string  `gorm:"type:text"`
	FallbackUsed  bool    `gorm:"default:false"`
	Slot          uint64  `gorm:"default:0"`
	UnitsConsumed uint64  `gorm:"default:0"`
	ExecutionTime float64 `gorm:"type:decimal(10,3)"`
	ConfirmedAt   *time.Time

	Transitions []SubmissionTransition `gorm:"foreignKey:SubmissionID;references:SubmissionID"`
}

// SubmissionTransition переход состояния отправки
type SubmissionTransition struct {
	BaseModel
	SubmissionID string    `gorm:"index;not null;type:varchar(36)"`
	Seq          int       `gorm:"not null"`
	FromState    string    `gorm:"type:varchar(20)"`
	ToState      string    `gorm:"not null;type:varchar(20)"`
	Fallback     bool      `gorm:"default:false"`
	At           time.Time `gorm:"not null"`
}
