package model

import "time"

// CRMEntry is a single sales-lead / interaction record.
// SalePerson is a denormalized copy of User.Username, not a foreign key, so
// entries survive the deletion of the user who created them.
type CRMEntry struct {
	ID             uint      `gorm:"primaryKey"`
	PersonName     string    `gorm:"size:100;not null"`
	CompanyName    string    `gorm:"size:100;not null"`
	Department     string    `gorm:"size:100;not null;default:''"`
	Case           string    `gorm:"column:case_label;size:200;not null;default:''"`
	NextSteps      string    `gorm:"type:text"`
	Status         string    `gorm:"size:50;not null;default:''"`
	Description    string    `gorm:"type:text"`
	SalePerson     string    `gorm:"size:100;not null;index"`
	SubmissionTime time.Time `gorm:"not null;index"`
}

func (CRMEntry) TableName() string { return "crm_entries" }
