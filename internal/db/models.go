package db

import (
	"time"
)

type Batch struct {
	ID          string
	CapturedAt  int64
	ArchiveHash string
	PlayerCount int64
	CreatedAt   time.Time
}

type TierStat struct {
	BatchID     string
	Tier        string
	Position    int64
	TrThreshold float64
	PlayerCount int64
	PpsAvg      float64
	PpsMin      float64
	PpsMinID    string
	PpsMinName  string
	PpsMax      float64
	PpsMaxID    string
	PpsMaxName  string
	ApmAvg      float64
	ApmMin      float64
	ApmMinID    string
	ApmMinName  string
	ApmMax      float64
	ApmMaxID    string
	ApmMaxName  string
	VsAvg       float64
	VsMin       float64
	VsMinID     string
	VsMinName   string
	VsMax       float64
	VsMaxID     string
	VsMaxName   string
}

type PlayerHistory struct {
	ID         string
	PlayerID   string
	Rating     float64
	CapturedAt int64
	Source     string
	CreatedAt  time.Time
}
