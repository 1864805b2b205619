package db

import (
	"time"

	"gorm.io/gorm"
)

const settingVMIP = "vm.ip"

// RuntimeSetting is a value learned while running, e.g. the instance's public IP.
type RuntimeSetting struct {
	ID        uint   `gorm:"primarykey"`
	Name      string `gorm:"uniqueIndex;size:191"`
	Value     string
	UpdatedAt time.Time
}

// Report is one convergence check result.
type Report struct {
	gorm.Model
	Kind   string `gorm:"index;size:32"`
	Status string `gorm:"size:32"`
	Body   string `gorm:"type:text"` // Intentionally denormalized, the response is only ever read back whole
}
